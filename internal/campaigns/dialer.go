package campaigns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"salesvoice/internal/agents"
	"salesvoice/internal/config"
	"salesvoice/internal/customers"
	"salesvoice/internal/observability"
	"salesvoice/internal/session"
	"salesvoice/pkg/utils"
)

// Caller places one outbound call and returns the provider's call id.
type Caller interface {
	PlaceCall(ctx context.Context, to string) (string, error)
}

// Dialer is the scheduler loop that works through active campaigns. Each
// tick it activates due campaigns, picks the highest-priority pending
// contacts, and initiates their calls. One contact failing never aborts the
// batch.
type Dialer struct {
	Store     Store
	Agents    agents.Store
	Sessions  session.Store
	Customers customers.Store
	Caller    Caller
	RDB       *redis.Client
	Log       *slog.Logger
	Metrics   *observability.Metrics

	BatchSize     int
	MaxConcurrent int
	tickInterval  time.Duration

	cron *cron.Cron
	Now  func() time.Time
}

func NewDialer(store Store, ag agents.Store, ss session.Store, cs customers.Store, caller Caller, rdb *redis.Client, cfg config.DialerConfig, log *slog.Logger) *Dialer {
	return &Dialer{
		Store:         store,
		Agents:        ag,
		Sessions:      ss,
		Customers:     cs,
		Caller:        caller,
		RDB:           rdb,
		Log:           log,
		BatchSize:     cfg.BatchSize,
		MaxConcurrent: cfg.MaxConcurrentPerAccount,
		tickInterval:  cfg.TickInterval,
		Now:           time.Now,
	}
}

// Start launches the cron loop. Stop must be called on shutdown.
func (d *Dialer) Start() error {
	d.cron = cron.New()
	spec := fmt.Sprintf("@every %s", d.tickInterval)
	if _, err := d.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.tickInterval)
		defer cancel()
		d.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("dialer schedule: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the loop and waits for the running tick.
func (d *Dialer) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
}

// Tick processes one scheduler pass. Exported so tests and admin endpoints
// can drive it directly.
func (d *Dialer) Tick(ctx context.Context) {
	now := d.Now()
	log := d.log()

	dialable, err := d.Store.ListDialable(ctx, now)
	if err != nil {
		log.ErrorContext(ctx, "dialer campaign scan failed", slog.Any("error", err))
		return
	}
	for _, c := range dialable {
		if c.Status == StatusScheduled {
			c.Status = StatusActive
			c.UpdatedAt = now
			if err := d.Store.UpdateCampaign(ctx, c); err != nil {
				log.ErrorContext(ctx, "campaign activation failed",
					slog.String("campaign_id", c.ID), slog.Any("error", err))
				continue
			}
			log.InfoContext(ctx, "scheduled campaign activated", slog.String("campaign_id", c.ID))
		}
		d.dialCampaign(ctx, c, now)
	}
}

func (d *Dialer) dialCampaign(ctx context.Context, c Campaign, now time.Time) {
	log := d.log()

	agent, err := d.Agents.Get(ctx, c.AgentID)
	if err != nil {
		log.ErrorContext(ctx, "dialer agent lookup failed",
			slog.String("campaign_id", c.ID), slog.Any("error", err))
		return
	}
	if agent.Status != agents.StatusActive && agent.Status != agents.StatusBusy {
		return
	}
	if !agent.InWorkingHours(now) {
		return
	}
	if agent.MaxDailyCalls > 0 && d.callsToday(ctx, agent.ID, now) >= agent.MaxDailyCalls {
		return
	}

	contacts, err := d.Store.NextPending(ctx, c.ID, d.BatchSize)
	if err != nil {
		log.ErrorContext(ctx, "dialer contact scan failed",
			slog.String("campaign_id", c.ID), slog.Any("error", err))
		return
	}
	if len(contacts) == 0 {
		d.maybeComplete(ctx, c, now)
		return
	}

	for _, contact := range contacts {
		if err := d.dialContact(ctx, c, agent, contact, now); err != nil {
			// One bad contact never aborts the batch.
			log.WarnContext(ctx, "contact dial failed",
				slog.String("contact_id", contact.ID), slog.Any("error", err))
		}
	}
}

func (d *Dialer) dialContact(ctx context.Context, c Campaign, agent agents.Agent, contact Contact, now time.Time) error {
	if p, found, _ := d.Customers.FindProfileByPhone(ctx, agent.ID, contact.Phone); found && p.DoNotCall {
		contact.Status = ContactFailed
		contact.LastError = "do-not-call"
		contact.UpdatedAt = now
		d.count("skipped_do_not_call")
		return d.Store.UpdateContact(ctx, contact)
	}

	if d.RDB != nil {
		acquired, err := utils.AcquireConcurrencyCap(ctx, d.RDB, d.capKey(c.AccountID), d.MaxConcurrent, 10*time.Minute)
		if err != nil {
			return fmt.Errorf("concurrency cap: %w", err)
		}
		if !acquired {
			// Account at capacity; leave the contact pending for the next
			// tick.
			return nil
		}
	}

	contact.Status = ContactCalling
	contact.Attempts++
	contact.UpdatedAt = now
	if err := d.Store.UpdateContact(ctx, contact); err != nil {
		d.releaseCap(ctx, c.AccountID)
		return err
	}

	providerCallID, err := d.Caller.PlaceCall(ctx, contact.Phone)
	if err != nil {
		contact.Status = ContactFailed
		contact.LastError = err.Error()
		contact.UpdatedAt = now
		d.count("place_failed")
		d.releaseCap(ctx, c.AccountID)
		if uerr := d.Store.UpdateContact(ctx, contact); uerr != nil {
			return uerr
		}
		return err
	}

	s := session.CallSession{
		ID:             uuid.NewString(),
		AccountID:      c.AccountID,
		Direction:      session.DirectionOutbound,
		Status:         session.StatusInitiated,
		To:             contact.Phone,
		AgentID:        agent.ID,
		CampaignID:     c.ID,
		ProviderCallID: providerCallID,
		StartedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.Sessions.Create(ctx, s); err != nil {
		return fmt.Errorf("create outbound session: %w", err)
	}

	d.count("placed")
	d.log().InfoContext(ctx, "outbound call placed",
		slog.String("campaign_id", c.ID),
		slog.String("contact_id", contact.ID),
		slog.String("provider_call_id", providerCallID))
	return nil
}

// Hook settles the campaign contact when its call reaches a terminal state
// and frees the account's concurrency slot.
func (d *Dialer) Hook() session.CompletionHook {
	return func(ctx context.Context, s session.CallSession) error {
		if s.CampaignID == "" {
			return nil
		}
		d.releaseCap(ctx, s.AccountID)

		contact, found, err := d.Store.FindCallingContact(ctx, s.CampaignID, s.To)
		if err != nil || !found {
			return err
		}
		contact.Status = ContactCompleted
		if s.Status != session.StatusCompleted {
			contact.Status = ContactFailed
			contact.LastError = string(s.Status)
		}
		contact.UpdatedAt = d.Now()
		return d.Store.UpdateContact(ctx, contact)
	}
}

func (d *Dialer) maybeComplete(ctx context.Context, c Campaign, now time.Time) {
	counts, err := d.Store.CountByStatus(ctx, c.ID)
	if err != nil || counts[ContactPending] > 0 || counts[ContactCalling] > 0 {
		return
	}
	c.Status = StatusCompleted
	c.UpdatedAt = now
	if err := d.Store.UpdateCampaign(ctx, c); err == nil {
		d.log().InfoContext(ctx, "campaign completed", slog.String("campaign_id", c.ID))
	}
}

func (d *Dialer) callsToday(ctx context.Context, agentID string, now time.Time) int {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	history, err := d.Sessions.ListByAgentSince(ctx, agentID, midnight)
	if err != nil {
		return 0
	}
	return len(history)
}

func (d *Dialer) count(result string) {
	if d.Metrics != nil {
		d.Metrics.DialerCalls.WithLabelValues(result).Inc()
	}
}

func (d *Dialer) capKey(accountID string) string {
	return "dialer:active:" + accountID
}

func (d *Dialer) releaseCap(ctx context.Context, accountID string) {
	if d.RDB == nil {
		return
	}
	if err := utils.ReleaseConcurrencyCap(ctx, d.RDB, d.capKey(accountID)); err != nil {
		d.log().WarnContext(ctx, "concurrency cap release failed",
			slog.String("account_id", accountID), slog.Any("error", err))
	}
}

func (d *Dialer) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
