package engage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fanpulse/internal/model"
)

// DraftStore persists a pending gated-action payload so it survives process
// restarts. Keys are namespaced by feature, actor kind and entity, so a
// guest's draft and a signed-in user's draft for the same entity never
// collide. Writes are whole-payload replacements, never partial merges.
type DraftStore struct {
	kv KV
}

// NewDraftStore creates a draft store over the local key-value storage.
func NewDraftStore(kv KV) *DraftStore {
	return &DraftStore{kv: kv}
}

func draftKey(feature string, actor model.Actor, entityID string) string {
	return fmt.Sprintf("draft:%s:%s:%s", feature, actor.Key(), entityID)
}

// Save writes a draft, overwriting any previous draft for the same key.
func (s *DraftStore) Save(ctx context.Context, feature string, actor model.Actor, entityID string, fields map[string]any) error {
	d := model.Draft{
		EntityID:  entityID,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, draftKey(feature, actor, entityID), string(data)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load reads back a draft. The second return is false when no draft exists.
func (s *DraftStore) Load(ctx context.Context, feature string, actor model.Actor, entityID string) (model.Draft, bool, error) {
	raw, ok, err := s.kv.Get(ctx, draftKey(feature, actor, entityID))
	if err != nil {
		return model.Draft{}, false, fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return model.Draft{}, false, nil
	}

	var d model.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// A corrupt draft is unrecoverable; drop it rather than wedge
		// every future load.
		_ = s.kv.Del(ctx, draftKey(feature, actor, entityID))
		return model.Draft{}, false, fmt.Errorf("unmarshal draft: %w", err)
	}
	return d, true, nil
}

// Clear removes a draft. Called the instant a submission succeeds.
func (s *DraftStore) Clear(ctx context.Context, feature string, actor model.Actor, entityID string) error {
	return s.kv.Del(ctx, draftKey(feature, actor, entityID))
}
