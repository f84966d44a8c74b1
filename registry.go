package server

import (
	"gridvoice/server/internal/world"
)

// Registry is the authoritative map from entity id to voice identity and
// cached routing attributes. It is owned by exactly one engine instance and
// synchronized by the engine's lock; it does no locking of its own.
type Registry struct {
	entities map[world.EntityID]*Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[world.EntityID]*Entity)}
}

// Upsert records or refreshes a participant's voice identity. Routing flags
// that arrived before the identity (radio enabled, speaker members) survive
// the refresh.
func (r *Registry) Upsert(info VoiceClientInfo) *Entity {
	entity, ok := r.entities[info.ID]
	if !ok {
		entity = &Entity{ID: info.ID}
		r.entities[info.ID] = entity
	}
	entity.ClientID = info.ClientID
	entity.Range = info.Range
	entity.ForceMuted = info.ForceMuted
	return entity
}

// Get returns the live record for an entity id.
func (r *Registry) Get(id world.EntityID) (*Entity, bool) {
	entity, ok := r.entities[id]
	return entity, ok
}

// Ensure returns the record for id, creating a placeholder without a client
// id when none exists yet. Attribute mutations arriving before the voice
// identity land on the placeholder.
func (r *Registry) Ensure(id world.EntityID) *Entity {
	entity, ok := r.entities[id]
	if !ok {
		entity = &Entity{ID: id}
		r.entities[id] = entity
	}
	return entity
}

// Remove drops the record for id and returns it for teardown bookkeeping.
func (r *Registry) Remove(id world.EntityID) (*Entity, bool) {
	entity, ok := r.entities[id]
	if ok {
		delete(r.entities, id)
	}
	return entity, ok
}

// Len reports the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entities)
}

// ClientIDs resolves ids to registered backend client ids, silently
// skipping entities that have no voice identity yet.
func (r *Registry) ClientIDs(ids []world.EntityID) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if entity, ok := r.entities[id]; ok && entity.ClientID != 0 {
			out = append(out, entity.ClientID)
		}
	}
	return out
}
