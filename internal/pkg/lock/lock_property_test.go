// Property-based tests for KeyLock.
package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestLockMutualExclusionProperty verifies that for any set of goroutines
// incrementing a shared counter under the same key, no increments are lost.
func TestLockMutualExclusionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kl := New()
		key := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "key")
		goroutines := rapid.IntRange(2, 8).Draw(t, "goroutines")
		increments := rapid.IntRange(1, 50).Draw(t, "increments")

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < increments; j++ {
					kl.Lock(key)
					counter++
					kl.Unlock(key)
				}
			}()
		}
		wg.Wait()

		if counter != goroutines*increments {
			t.Fatalf("lost increments: expected %d, got %d", goroutines*increments, counter)
		}
	})
}

// TestDistinctKeysDoNotBlock verifies TryLock succeeds on a different key
// while another key is held.
func TestDistinctKeysDoNotBlock(t *testing.T) {
	kl := New()

	kl.Lock("a")
	defer kl.Unlock("a")

	if !kl.TryLock("b") {
		t.Fatal("TryLock on a distinct key should succeed")
	}
	kl.Unlock("b")
}

// TestTryLockHeldKey verifies TryLock fails while the same key is held.
func TestTryLockHeldKey(t *testing.T) {
	kl := New()

	kl.Lock("a")
	if kl.TryLock("a") {
		t.Fatal("TryLock on a held key should fail")
	}
	kl.Unlock("a")

	if !kl.TryLock("a") {
		t.Fatal("TryLock after release should succeed")
	}
	kl.Unlock("a")
}

// TestWithLockReleasesOnError verifies the lock is released when the
// function returns an error.
func TestWithLockReleasesOnError(t *testing.T) {
	kl := New()

	err := kl.WithLock("a", func() error {
		return errFake
	})
	if err != errFake {
		t.Fatalf("expected errFake, got %v", err)
	}

	if !kl.TryLock("a") {
		t.Fatal("lock should be released after WithLock returns")
	}
	kl.Unlock("a")
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "fake error" }
