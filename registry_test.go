package server

import (
	"testing"

	"gridvoice/server/internal/world"
)

func TestRegistryUpsertPreservesRoutingFlags(t *testing.T) {
	reg := NewRegistry()
	placeholder := reg.Ensure(7)
	placeholder.RadioEnabled = true
	placeholder.PhoneSpeakerMembers = []world.EntityID{9}

	entity := reg.Upsert(VoiceClientInfo{ID: 7, ClientID: 42, Range: 15})
	if !entity.RadioEnabled || len(entity.PhoneSpeakerMembers) != 1 {
		t.Fatal("upsert dropped flags that arrived before the voice identity")
	}
	if entity.ClientID != 42 || entity.Range != 15 {
		t.Fatalf("identity not applied: %+v", entity)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one entity, got %d", reg.Len())
	}
}

func TestRegistryClientIDsSkipsUnregistered(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(VoiceClientInfo{ID: 1, ClientID: 10})
	reg.Ensure(2)

	ids := reg.ClientIDs([]world.EntityID{1, 2, 3})
	if len(ids) != 1 || ids[0] != 10 {
		t.Fatalf("expected only the registered client id, got %v", ids)
	}
}

func TestRegistryRemoveReturnsRecord(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(VoiceClientInfo{ID: 5, ClientID: 50})
	entity, ok := reg.Remove(5)
	if !ok || entity.ClientID != 50 {
		t.Fatalf("remove did not hand back the record: %+v ok=%v", entity, ok)
	}
	if _, ok := reg.Get(5); ok {
		t.Fatal("record still present after remove")
	}
}
