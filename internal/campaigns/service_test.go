package campaigns

import (
	"context"
	"testing"
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/customers"
	"salesvoice/internal/session"
)

// Monday 10:00 local.
var nowRef = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func testService(t *testing.T) (*Service, *MemoryStore, *agents.MemoryStore, *session.MemoryStore, *customers.MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	as := agents.NewMemoryStore()
	ss := session.NewMemoryStore()
	cs := customers.NewMemoryStore()
	svc := NewService(store, as, ss, cs, nil)
	svc.Now = func() time.Time { return nowRef }
	return svc, store, as, ss, cs
}

func seedCampaignAgent(t *testing.T, as *agents.MemoryStore, conversionRate float64) {
	t.Helper()
	err := as.Create(context.Background(), agents.Agent{
		ID:             "agent-1",
		AccountID:      "acct-1",
		Direction:      session.DirectionOutbound,
		Status:         agents.StatusActive,
		ConversionRate: conversionRate,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func seedHistory(t *testing.T, ss *session.MemoryStore, hour, n int, outcome session.Outcome) {
	t.Helper()
	for i := 0; i < n; i++ {
		day := -(1 + i%5)
		at := nowRef.AddDate(0, 0, day)
		at = time.Date(at.Year(), at.Month(), at.Day(), hour, 0, 0, 0, at.Location())
		id := string(rune('a'+hour)) + "-" + string(rune('0'+i))
		err := ss.Create(context.Background(), session.CallSession{
			ID:             id,
			AccountID:      "acct-1",
			ProviderCallID: "CA-" + id,
			AgentID:        "agent-1",
			Direction:      session.DirectionOutbound,
			Status:         session.StatusCompleted,
			Outcome:        outcome,
			StartedAt:      at,
		})
		if err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}
}

func TestCreatePrioritizesContacts(t *testing.T) {
	svc, store, as, _, cs := testService(t)
	seedCampaignAgent(t, as, 10)
	ctx := context.Background()

	// A hot profile with a positive last outcome outranks an unknown number.
	last := nowRef.AddDate(0, 0, -2)
	cs.UpsertProfile(ctx, customers.Profile{
		AgentID:       "agent-1",
		Phone:         "+15550002222",
		Interest:      customers.InterestHot,
		LastOutcome:   session.OutcomeInterested,
		LastContactAt: &last,
	})

	c, summary, err := svc.Create(ctx, "acct-1", "agent-1", "q3-push", []NewContact{
		{Phone: "+15550001111"},
		{Phone: "+15550002222"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if summary.High != 1 || summary.Medium != 1 {
		t.Fatalf("priority summary = %+v, want one high and one medium", summary)
	}

	contacts, err := store.NextPending(ctx, c.ID, 10)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("contacts = %d, want 2", len(contacts))
	}
	if contacts[0].Phone != "+15550002222" {
		t.Fatalf("highest priority = %s, want the hot lead", contacts[0].Phone)
	}
	if contacts[0].Priority <= contacts[1].Priority {
		t.Fatalf("priorities not descending: %d then %d", contacts[0].Priority, contacts[1].Priority)
	}
	if contacts[0].PriorityRationale == "" {
		t.Fatal("priority rationale not persisted")
	}
}

func TestStartActivatesOnStrongHistory(t *testing.T) {
	svc, _, as, ss, _ := testService(t)
	seedCampaignAgent(t, as, 18)
	seedHistory(t, ss, 10, 6, session.OutcomeConverted)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, "acct-1", "agent-1", "q3-push", []NewContact{{Phone: "+15550001111"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c, d, err := svc.Start(ctx, c.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.ShouldStart || c.Status != StatusActive {
		t.Fatalf("status = %s, decision %+v; want active", c.Status, d.Decision)
	}
	if c.StartRationale == "" {
		t.Fatal("start rationale not persisted")
	}
}

func TestStartDefersToRecommendedHour(t *testing.T) {
	svc, _, as, ss, _ := testService(t)
	seedCampaignAgent(t, as, 16)
	// Successes clustered at 15:00 while it is currently 10:00.
	seedHistory(t, ss, 15, 5, session.OutcomeConverted)
	ctx := context.Background()

	c, _, _ := svc.Create(ctx, "acct-1", "agent-1", "q3-push", []NewContact{{Phone: "+15550001111"}})
	c, d, err := svc.Start(ctx, c.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if d.ShouldStart {
		t.Fatalf("decision %+v, want deferral", d.Decision)
	}
	if c.Status != StatusScheduled || c.ScheduledAt == nil {
		t.Fatalf("campaign = %+v, want scheduled", c)
	}
	if c.ScheduledAt.Hour() != 15 {
		t.Fatalf("scheduled hour = %d, want 15", c.ScheduledAt.Hour())
	}
}

func TestStartNoHistorySchedulesBusinessHours(t *testing.T) {
	svc, _, as, _, _ := testService(t)
	seedCampaignAgent(t, as, 0)
	ctx := context.Background()

	c, _, _ := svc.Create(ctx, "acct-1", "agent-1", "cold-list", []NewContact{{Phone: "+15550001111"}})
	c, d, err := svc.Start(ctx, c.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if d.ShouldStart {
		t.Fatal("no history must not start immediately")
	}
	if c.Status != StatusScheduled || c.ScheduledAt == nil || c.ScheduledAt.Hour() != 9 {
		t.Fatalf("campaign = %+v, want next 9:00 schedule", c)
	}
	if d.Rationale != "insufficient data" {
		t.Fatalf("rationale = %q", d.Rationale)
	}
}

func TestStartRejectsActiveCampaign(t *testing.T) {
	svc, store, as, ss, _ := testService(t)
	seedCampaignAgent(t, as, 18)
	seedHistory(t, ss, 10, 6, session.OutcomeConverted)
	ctx := context.Background()

	c, _, _ := svc.Create(ctx, "acct-1", "agent-1", "q3-push", []NewContact{{Phone: "+15550001111"}})
	if _, _, err := svc.Start(ctx, c.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, _, err := svc.Start(ctx, c.ID); err == nil {
		t.Fatal("second start must fail")
	}
	got, _ := store.GetCampaign(ctx, c.ID)
	if got.Status != StatusActive {
		t.Fatalf("status = %s, want active unchanged", got.Status)
	}
}
