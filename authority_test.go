package server

import (
	"fmt"
	"sync"
	"testing"

	"gridvoice/server/internal/world"
)

type sinkEvent struct {
	to        world.EntityID
	broadcast bool
	ev        Event
}

type recordingSink struct {
	mu      sync.Mutex
	events  []sinkEvent
	removed []world.EntityID
}

func (s *recordingSink) Deliver(to world.EntityID, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{to: to, ev: ev})
}

func (s *recordingSink) Broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{broadcast: true, ev: ev})
}

func (s *recordingSink) Remove(id world.EntityID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
}

func (s *recordingSink) all() []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkEvent(nil), s.events...)
}

func (s *recordingSink) ofKind(kind EventKind) []sinkEvent {
	var out []sinkEvent
	for _, e := range s.all() {
		if e.ev.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func newTestAuthority(cfg AuthorityConfig, provider world.Provider) (*Authority, *recordingSink) {
	sink := &recordingSink{}
	auth := NewAuthority(cfg, sink, provider, nil, nil)
	return auth, sink
}

func addRadioParticipant(auth *Authority, id world.EntityID) {
	auth.AddParticipant(id)
	auth.VoiceClientJoined(id, int(id)*100)
	auth.EnableRadio(id, true)
}

func TestFrequencySingleMembershipAfterReassignments(t *testing.T) {
	auth, _ := newTestAuthority(AuthorityConfig{}, nil)
	addRadioParticipant(auth, 1)

	used := make(map[string]struct{})
	for i := 0; i < 25; i++ {
		freq := fmt.Sprintf("%d", 100+i%5)
		used[freq] = struct{}{}
		auth.ChangeRadioFrequency(1, 1, freq)
	}
	memberships := 0
	for freq := range used {
		for _, id := range auth.FrequencyMembers(freq) {
			if id == 1 {
				memberships++
			}
		}
	}
	if memberships != 1 {
		t.Fatalf("participant held %d memberships after reassignments, want 1", memberships)
	}
}

func TestEmptyFrequencyEntryIsDeleted(t *testing.T) {
	auth, _ := newTestAuthority(AuthorityConfig{}, nil)
	addRadioParticipant(auth, 1)

	auth.ChangeRadioFrequency(1, 1, "450")
	auth.ChangeRadioFrequency(1, 1, UnsetFrequency)

	auth.mu.Lock()
	_, exists := auth.frequencies["450"]
	auth.mu.Unlock()
	if exists {
		t.Fatal("empty frequency entry survived the last leave")
	}
}

func TestCallGraphSymmetry(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.AddParticipant(2)
	auth.VoiceClientJoined(1, 100)
	auth.VoiceClientJoined(2, 200)
	sink.reset()

	auth.SetCall(1, 2, true)
	if !auth.InCall(1, 2) || !auth.InCall(2, 1) {
		t.Fatal("call edge must be symmetric")
	}
	links := sink.ofKind(EventPhoneLink)
	if len(links) != 2 {
		t.Fatalf("both parties must be notified, got %d events", len(links))
	}

	auth.SetCall(1, 2, false)
	if auth.InCall(1, 2) || auth.InCall(2, 1) {
		t.Fatal("both directions must be removed together")
	}
}

func TestRemoveParticipantTearsDownCallsAndFrequencies(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	addRadioParticipant(auth, 1)
	addRadioParticipant(auth, 2)
	auth.ChangeRadioFrequency(1, 1, "300")
	auth.ChangeRadioFrequency(2, 1, "300")
	auth.SetCall(1, 2, true)
	auth.SetPhoneSpeaker(1, true)
	sink.reset()

	auth.RemoveParticipant(1)

	if members := auth.FrequencyMembers("300"); len(members) != 1 || members[0] != 2 {
		t.Fatalf("departed participant still under frequency: %v", members)
	}
	if auth.InCall(1, 2) || auth.InCall(2, 1) {
		t.Fatal("call edge survived removal")
	}
	ends := sink.ofKind(EventPhoneLink)
	if len(ends) != 1 || ends[0].to != 2 || ends[0].ev.Flag {
		t.Fatalf("peer must see the call end, got %+v", ends)
	}
	destroyed := sink.ofKind(EventEntityDestroyed)
	if len(destroyed) != 1 || !destroyed[0].broadcast {
		t.Fatalf("destruction must be broadcast, got %+v", destroyed)
	}
}

func TestTalkFanoutBroadcastWithTowerDegradation(t *testing.T) {
	w := newFakeWorld()
	w.positions[1] = world.Vec3{X: 10}
	w.positions[2] = world.Vec3{X: 80}
	w.positions[3] = world.Vec3{X: 900}
	auth, sink := newTestAuthority(AuthorityConfig{
		Towers: []Tower{{Position: world.Vec3{}, Radius: 100}},
	}, w)
	for _, id := range []world.EntityID{1, 2, 3} {
		addRadioParticipant(auth, id)
		auth.SetLongRangeRadio(id, true)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	auth.RadioTalking(1, true, 1, 10)

	fanned := sink.ofKind(EventRadioTalking)
	if len(fanned) != 1 {
		t.Fatalf("expected one audible receiver, got %d", len(fanned))
	}
	got := fanned[0]
	if got.to != 2 || got.ev.Target != 1 || !got.ev.Flag {
		t.Fatalf("unexpected fan-out: %+v", got)
	}
	// The receiver is farther from the tower than the talker, so the pair
	// degrades at the receiver's level.
	want := signalErrorLevel(80, 100)
	if got.ev.ErrorLevel != want {
		t.Fatalf("errorLevel %f, want worse-end level %f", got.ev.ErrorLevel, want)
	}
}

func TestTalkFanoutShortRangePair(t *testing.T) {
	w := newFakeWorld()
	w.positions[1] = world.Vec3{}
	w.positions[2] = world.Vec3{X: 100}
	w.positions[3] = world.Vec3{X: 5000}
	auth, sink := newTestAuthority(AuthorityConfig{
		ShortRangeDistance: 300,
		Towers:             []Tower{{Position: world.Vec3{}, Radius: 10000}},
	}, w)
	for _, id := range []world.EntityID{1, 2, 3} {
		addRadioParticipant(auth, id)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	// Nobody carries a long-range radio: audibility is bounded by the
	// short-range distance regardless of tower coverage.
	auth.RadioTalking(1, true, 1, 0)
	fanned := sink.ofKind(EventRadioTalking)
	if len(fanned) != 1 || fanned[0].to != 2 || !fanned[0].ev.ShortRange {
		t.Fatalf("expected only the nearby short-range pair, got %+v", fanned)
	}
}

func TestTalkStopDeliveredAfterCoverageLoss(t *testing.T) {
	w := newFakeWorld()
	w.positions[1] = world.Vec3{X: 10}
	w.positions[2] = world.Vec3{X: 50}
	auth, sink := newTestAuthority(AuthorityConfig{
		Towers: []Tower{{Position: world.Vec3{}, Radius: 100}},
	}, w)
	for _, id := range []world.EntityID{1, 2} {
		addRadioParticipant(auth, id)
		auth.SetLongRangeRadio(id, true)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	auth.RadioTalking(1, true, 1, 10)
	if on := sink.ofKind(EventRadioTalking); len(on) != 1 || !on[0].ev.Flag {
		t.Fatalf("expected one on event, got %+v", on)
	}

	// The talker wanders outside tower coverage before releasing the key.
	w.set(func(w *fakeWorld) { w.positions[1] = world.Vec3{X: 900} })
	sink.reset()
	auth.RadioTalking(1, false, 1, 900)
	offs := sink.ofKind(EventRadioTalking)
	if len(offs) != 1 || offs[0].to != 2 || offs[0].ev.Flag {
		t.Fatalf("receiver must get the off event despite coverage loss, got %+v", offs)
	}
}

func TestTalkStopDeliveredAfterShortRangeDrift(t *testing.T) {
	w := newFakeWorld()
	w.positions[1] = world.Vec3{}
	w.positions[2] = world.Vec3{X: 100}
	auth, sink := newTestAuthority(AuthorityConfig{ShortRangeDistance: 300}, w)
	for _, id := range []world.EntityID{1, 2} {
		addRadioParticipant(auth, id)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	auth.RadioTalking(1, true, 1, 0)
	if on := sink.ofKind(EventRadioTalking); len(on) != 1 || !on[0].ev.Flag {
		t.Fatalf("expected one on event, got %+v", on)
	}

	// The pair drifts past the short-range bound mid-transmission.
	w.set(func(w *fakeWorld) { w.positions[2] = world.Vec3{X: 5000} })
	sink.reset()
	auth.RadioTalking(1, false, 1, 0)
	offs := sink.ofKind(EventRadioTalking)
	if len(offs) != 1 || offs[0].to != 2 || offs[0].ev.Flag {
		t.Fatalf("receiver must get the off event despite the drift, got %+v", offs)
	}
}

func TestTalkStopDeliveredWhileTalkerForceMuted(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	for _, id := range []world.EntityID{1, 2} {
		addRadioParticipant(auth, id)
		auth.SetLongRangeRadio(id, true)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	auth.RadioTalking(1, true, 1, -1)
	if on := sink.ofKind(EventRadioTalking); len(on) != 1 || !on[0].ev.Flag {
		t.Fatalf("expected one on event, got %+v", on)
	}

	// Force-muting mid-transmission blocks new starts, never the stop.
	auth.SetForceMuted(1, true)
	sink.reset()
	auth.RadioTalking(1, false, 1, -1)
	offs := sink.ofKind(EventRadioTalking)
	if len(offs) != 1 || offs[0].to != 2 || offs[0].ev.Flag {
		t.Fatalf("receiver must get the off event while force-muted, got %+v", offs)
	}
	sink.reset()
	auth.RadioTalking(1, true, 1, -1)
	if on := sink.ofKind(EventRadioTalking); len(on) != 0 {
		t.Fatalf("force-muted talker must not start a transmission, got %+v", on)
	}
}

func TestTalkFanoutWhisperDeliversTargetsToTalker(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{WhisperMode: true}, nil)
	for _, id := range []world.EntityID{1, 2, 3} {
		addRadioParticipant(auth, id)
		auth.SetLongRangeRadio(id, true)
		auth.ChangeRadioFrequency(id, 1, "500")
	}
	sink.reset()

	auth.RadioTalking(1, true, 1, -1)
	whispers := sink.ofKind(EventRadioWhisperTargets)
	if len(whispers) != 1 || whispers[0].to != 1 {
		t.Fatalf("whisper targets must go to the talker, got %+v", whispers)
	}
	if len(whispers[0].ev.IDs) != 2 {
		t.Fatalf("expected both other members as targets, got %v", whispers[0].ev.IDs)
	}
	if len(sink.ofKind(EventRadioTalking)) != 0 {
		t.Fatal("whisper mode must not broadcast talk events")
	}
}

func TestMutedMemberExcludedFromFanout(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	addRadioParticipant(auth, 1)
	addRadioParticipant(auth, 2)
	auth.ChangeRadioFrequency(1, 1, "500")
	auth.ChangeRadioFrequency(2, 1, "500")
	auth.MuteRadioChannel(2, 1)
	sink.reset()

	auth.RadioTalking(1, true, 1, -1)
	if fanned := sink.ofKind(EventRadioTalking); len(fanned) != 0 {
		t.Fatalf("muted member must not receive talk events, got %+v", fanned)
	}
}

func TestPhoneSpeakerPublishAndCallEnd(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.AddParticipant(2)
	auth.VoiceClientJoined(1, 100)
	auth.VoiceClientJoined(2, 200)
	auth.SetCall(1, 2, true)
	sink.reset()

	auth.SetPhoneSpeaker(1, true)
	published := sink.ofKind(EventPhoneSpeaker)
	if len(published) != 1 || !published[0].broadcast {
		t.Fatalf("speaker membership must be broadcast, got %+v", published)
	}
	if len(published[0].ev.IDs) != 1 || published[0].ev.IDs[0] != 2 {
		t.Fatalf("speaker members must be the call peers, got %v", published[0].ev.IDs)
	}

	// Ending the call republishes an empty member list.
	sink.reset()
	auth.SetCall(1, 2, false)
	published = sink.ofKind(EventPhoneSpeaker)
	if len(published) == 0 {
		t.Fatal("call end must refresh the speaker broadcast")
	}
	for _, p := range published {
		if p.ev.Target == 1 && len(p.ev.IDs) != 0 {
			t.Fatalf("speaker membership must be empty after call end, got %v", p.ev.IDs)
		}
	}
}

func TestOffTableVoiceRangeRejected(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.VoiceClientJoined(1, 100)
	sink.reset()

	auth.ChangeVoiceRange(1, 12.5)
	if changed := sink.ofKind(EventVoiceRangeChanged); len(changed) != 0 {
		t.Fatalf("off-table range must be dropped, got %+v", changed)
	}
	auth.ChangeVoiceRange(1, 15)
	if changed := sink.ofKind(EventVoiceRangeChanged); len(changed) != 1 {
		t.Fatal("table range must be broadcast")
	}
}

func TestRangeCapClampsCurrentRange(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.VoiceClientJoined(1, 100)
	auth.ChangeVoiceRange(1, 40)
	sink.reset()

	auth.SetMaxVoiceRangeStep(1, 4)
	caps := sink.ofKind(EventMaxVoiceRangeChanged)
	if len(caps) != 1 || caps[0].ev.Step != 4 || caps[0].broadcast {
		t.Fatalf("cap must be delivered to the participant, got %+v", caps)
	}
	changed := sink.ofKind(EventVoiceRangeChanged)
	if len(changed) != 1 || changed[0].ev.Range != VoiceRangeForStep(4) {
		t.Fatalf("range above the cap must be pulled down, got %+v", changed)
	}

	sink.reset()
	auth.SetMaxVoiceRangeStep(1, 6)
	if changed := sink.ofKind(EventVoiceRangeChanged); len(changed) != 0 {
		t.Fatal("raising the cap must not touch the current range")
	}
}

func TestPluginInactiveEscalatesToRemoval(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.PluginInactive(1)
	if len(sink.removed) != 1 || sink.removed[0] != 1 {
		t.Fatalf("plugin inactivity must remove the participant, got %v", sink.removed)
	}
}

func TestActiveMegaphoneReplayedToLateJoiner(t *testing.T) {
	auth, sink := newTestAuthority(AuthorityConfig{}, nil)
	auth.AddParticipant(1)
	auth.VoiceClientJoined(1, 100)
	auth.UseMegaphone(1, true)

	sink.reset()
	auth.AddParticipant(2)
	auth.VoiceClientJoined(2, 200)
	replayed := sink.ofKind(EventMegaphoneChanged)
	if len(replayed) != 1 || replayed[0].to != 2 || replayed[0].ev.Target != 1 || !replayed[0].ev.Flag {
		t.Fatalf("joiner must learn about the active megaphone, got %+v", replayed)
	}

	sink.reset()
	auth.RemoveParticipant(1)
	released := sink.ofKind(EventMegaphoneChanged)
	if len(released) != 1 || released[0].ev.Flag {
		t.Fatalf("removal must release the active megaphone, got %+v", released)
	}
}

func TestVoiceNamesAreUnique(t *testing.T) {
	auth, _ := newTestAuthority(AuthorityConfig{NamePrefix: "vc"}, nil)
	seen := make(map[string]struct{})
	for id := world.EntityID(1); id <= 50; id++ {
		info := auth.AddParticipant(id)
		if _, dup := seen[info.IngameName]; dup {
			t.Fatalf("duplicate voice name %q", info.IngameName)
		}
		seen[info.IngameName] = struct{}{}
	}
}
