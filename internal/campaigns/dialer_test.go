package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/config"
	"salesvoice/internal/customers"
	"salesvoice/internal/session"
)

type fakeCaller struct {
	placed  []string
	failFor map[string]error
	n       int
}

func (f *fakeCaller) PlaceCall(ctx context.Context, to string) (string, error) {
	if err, ok := f.failFor[to]; ok {
		return "", err
	}
	f.n++
	f.placed = append(f.placed, to)
	return "CA-out-" + to, nil
}

func testDialer(t *testing.T) (*Dialer, *MemoryStore, *agents.MemoryStore, *session.MemoryStore, *customers.MemoryStore, *fakeCaller) {
	t.Helper()
	store := NewMemoryStore()
	as := agents.NewMemoryStore()
	ss := session.NewMemoryStore()
	cs := customers.NewMemoryStore()
	caller := &fakeCaller{failFor: map[string]error{}}
	d := NewDialer(store, as, ss, cs, caller, nil, config.DialerConfig{
		TickInterval: 30 * time.Second,
		BatchSize:    5,
	}, nil)
	d.Now = func() time.Time { return nowRef }
	return d, store, as, ss, cs, caller
}

func seedActiveCampaign(t *testing.T, store *MemoryStore, contacts ...Contact) Campaign {
	t.Helper()
	ctx := context.Background()
	c := Campaign{
		ID:        "camp-1",
		AccountID: "acct-1",
		AgentID:   "agent-1",
		Name:      "q3-push",
		Status:    StatusActive,
		CreatedAt: nowRef,
		UpdatedAt: nowRef,
	}
	if err := store.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	if err := store.AddContacts(ctx, contacts); err != nil {
		t.Fatalf("seed contacts: %v", err)
	}
	return c
}

func pendingContact(id, phone string, priority int) Contact {
	return Contact{
		ID:         id,
		CampaignID: "camp-1",
		Phone:      phone,
		Status:     ContactPending,
		Priority:   priority,
		CreatedAt:  nowRef,
		UpdatedAt:  nowRef,
	}
}

func TestTickDialsByDescendingPriority(t *testing.T) {
	d, store, as, ss, _, caller := testDialer(t)
	seedCampaignAgent(t, as, 10)
	seedActiveCampaign(t, store,
		pendingContact("ct-low", "+15550001111", 2),
		pendingContact("ct-high", "+15550002222", 9),
	)

	d.Tick(context.Background())

	if len(caller.placed) != 2 {
		t.Fatalf("calls placed = %d, want 2", len(caller.placed))
	}
	if caller.placed[0] != "+15550002222" {
		t.Fatalf("first call = %s, want the priority-9 contact", caller.placed[0])
	}

	// Each placed call gets an outbound session keyed to the provider id.
	s, found, err := ss.GetByProviderCallID(context.Background(), "CA-out-+15550002222")
	if err != nil || !found {
		t.Fatalf("outbound session missing: found=%v err=%v", found, err)
	}
	if s.CampaignID != "camp-1" || s.AgentID != "agent-1" || s.Direction != session.DirectionOutbound {
		t.Fatalf("session = %+v", s)
	}

	ct, _ := store.GetContact(context.Background(), "ct-high")
	if ct.Status != ContactCalling || ct.Attempts != 1 {
		t.Fatalf("contact = %+v, want calling after one attempt", ct)
	}
}

func TestTickIsolatesContactFailure(t *testing.T) {
	d, store, as, _, _, caller := testDialer(t)
	seedCampaignAgent(t, as, 10)
	caller.failFor["+15550002222"] = errors.New("provider rejected number")
	seedActiveCampaign(t, store,
		pendingContact("ct-bad", "+15550002222", 9),
		pendingContact("ct-good", "+15550001111", 2),
	)

	d.Tick(context.Background())

	bad, _ := store.GetContact(context.Background(), "ct-bad")
	if bad.Status != ContactFailed || bad.LastError == "" {
		t.Fatalf("failed contact = %+v", bad)
	}
	good, _ := store.GetContact(context.Background(), "ct-good")
	if good.Status != ContactCalling {
		t.Fatalf("good contact = %+v; failure must not abort the batch", good)
	}
}

func TestTickSkipsDoNotCall(t *testing.T) {
	d, store, as, _, cs, caller := testDialer(t)
	seedCampaignAgent(t, as, 10)
	cs.UpsertProfile(context.Background(), customers.Profile{
		AgentID:   "agent-1",
		Phone:     "+15550001111",
		DoNotCall: true,
	})
	seedActiveCampaign(t, store, pendingContact("ct-dnc", "+15550001111", 5))

	d.Tick(context.Background())

	if len(caller.placed) != 0 {
		t.Fatalf("placed %v, want no calls to do-not-call numbers", caller.placed)
	}
	ct, _ := store.GetContact(context.Background(), "ct-dnc")
	if ct.Status != ContactFailed || ct.LastError != "do-not-call" {
		t.Fatalf("contact = %+v", ct)
	}
}

func TestTickRespectsWorkingHours(t *testing.T) {
	d, store, as, _, _, caller := testDialer(t)
	ctx := context.Background()
	err := as.Create(ctx, agents.Agent{
		ID:               "agent-1",
		AccountID:        "acct-1",
		Direction:        session.DirectionOutbound,
		Status:           agents.StatusActive,
		WorkingHourStart: 13,
		WorkingHourEnd:   18,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	seedActiveCampaign(t, store, pendingContact("ct-1", "+15550001111", 5))

	d.Tick(ctx) // 10:00, outside the 13-18 window

	if len(caller.placed) != 0 {
		t.Fatalf("placed %v, want none outside working hours", caller.placed)
	}
	ct, _ := store.GetContact(ctx, "ct-1")
	if ct.Status != ContactPending {
		t.Fatalf("contact = %+v, want untouched", ct)
	}
}

func TestTickActivatesDueScheduledCampaign(t *testing.T) {
	d, store, as, _, _, caller := testDialer(t)
	seedCampaignAgent(t, as, 10)
	ctx := context.Background()

	due := nowRef.Add(-time.Minute)
	c := Campaign{
		ID:          "camp-1",
		AccountID:   "acct-1",
		AgentID:     "agent-1",
		Name:        "deferred",
		Status:      StatusScheduled,
		ScheduledAt: &due,
		CreatedAt:   nowRef,
		UpdatedAt:   nowRef,
	}
	store.CreateCampaign(ctx, c)
	store.AddContacts(ctx, []Contact{pendingContact("ct-1", "+15550001111", 5)})

	d.Tick(ctx)

	got, _ := store.GetCampaign(ctx, "camp-1")
	if got.Status != StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	if len(caller.placed) != 1 {
		t.Fatalf("calls placed = %d, want 1", len(caller.placed))
	}
}

func TestHookSettlesContactAndCompletesCampaign(t *testing.T) {
	d, store, as, _, _, _ := testDialer(t)
	seedCampaignAgent(t, as, 10)
	seedActiveCampaign(t, store, pendingContact("ct-1", "+15550001111", 5))
	ctx := context.Background()

	d.Tick(ctx)

	hook := d.Hook()
	err := hook(ctx, session.CallSession{
		ID:         "s-1",
		AccountID:  "acct-1",
		CampaignID: "camp-1",
		To:         "+15550001111",
		Status:     session.StatusCompleted,
		Outcome:    session.OutcomeAnswered,
	})
	if err != nil {
		t.Fatalf("hook: %v", err)
	}

	ct, _ := store.GetContact(ctx, "ct-1")
	if ct.Status != ContactCompleted {
		t.Fatalf("contact = %+v, want completed", ct)
	}

	// Next tick sees no pending or calling contacts and closes the campaign.
	d.Tick(ctx)
	got, _ := store.GetCampaign(ctx, "camp-1")
	if got.Status != StatusCompleted {
		t.Fatalf("campaign status = %s, want completed", got.Status)
	}
}

func TestHookFailedCallMarksContactFailed(t *testing.T) {
	d, store, as, _, _, _ := testDialer(t)
	seedCampaignAgent(t, as, 10)
	seedActiveCampaign(t, store, pendingContact("ct-1", "+15550001111", 5))
	ctx := context.Background()

	d.Tick(ctx)

	hook := d.Hook()
	if err := hook(ctx, session.CallSession{
		ID:         "s-1",
		AccountID:  "acct-1",
		CampaignID: "camp-1",
		To:         "+15550001111",
		Status:     session.StatusNoAnswer,
	}); err != nil {
		t.Fatalf("hook: %v", err)
	}

	ct, _ := store.GetContact(ctx, "ct-1")
	if ct.Status != ContactFailed || ct.LastError != string(session.StatusNoAnswer) {
		t.Fatalf("contact = %+v", ct)
	}
}
