// Package httpapi groups the JSON admin API. Keep handlers thin: parse and
// validate input, call internal services, return JSON.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salesvoice/internal/agents"
	"salesvoice/internal/audit"
	"salesvoice/internal/campaigns"
	"salesvoice/internal/customers"
	"salesvoice/internal/decision"
	"salesvoice/internal/reporting"
	"salesvoice/internal/session"
)

// Handlers groups the HTTP handlers for dependency injection.
type Handlers struct {
	Agents    agents.Store
	Sessions  session.Store
	Customers customers.Store
	Campaigns *campaigns.Service
	Reports   *reporting.Service
	Audit     *audit.Service
	Keywords  []string

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Agents ---

type createAgentRequest struct {
	AccountID      string `json:"account_id"`
	Name           string `json:"name"`
	Direction      string `json:"direction"`
	AutoAccept     bool   `json:"auto_accept"`
	Specialization string `json:"specialization"`
	Persona        string `json:"persona"`
	Script         string `json:"script"`

	Playbook         agents.Playbook `json:"playbook"`
	WorkingHourStart int             `json:"working_hour_start"`
	WorkingHourEnd   int             `json:"working_hour_end"`
	MaxDailyCalls    int             `json:"max_daily_calls"`
}

func (h Handlers) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" || req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id and name required"})
		return
	}
	dir := session.Direction(req.Direction)
	if dir != session.DirectionInbound && dir != session.DirectionOutbound {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "direction must be inbound or outbound"})
		return
	}

	now := h.now()
	a := agents.Agent{
		ID:               uuid.NewString(),
		AccountID:        req.AccountID,
		Name:             req.Name,
		Direction:        dir,
		Status:           agents.StatusActive,
		AutoAccept:       req.AutoAccept,
		Specialization:   req.Specialization,
		Persona:          req.Persona,
		Script:           req.Script,
		Playbook:         req.Playbook,
		WorkingHourStart: req.WorkingHourStart,
		WorkingHourEnd:   req.WorkingHourEnd,
		MaxDailyCalls:    req.MaxDailyCalls,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Agents.Create(c.Request.Context(), a); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "agent create failed"})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) ListAgents(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}
	list, err := h.Agents.List(c.Request.Context(), accountID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "agent list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

// --- Campaigns ---

type createCampaignRequest struct {
	AccountID string                 `json:"account_id"`
	AgentID   string                 `json:"agent_id"`
	Name      string                 `json:"name"`
	Contacts  []campaigns.NewContact `json:"contacts"`
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	camp, summary, err := h.Campaigns.Create(c.Request.Context(), req.AccountID, req.AgentID, req.Name, req.Contacts)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": camp, "priority_summary": summary})
}

// StartCampaign runs the start decision and applies it; the decision and
// its rationale are returned and audited.
func (h Handlers) StartCampaign(c *gin.Context) {
	id := c.Param("id")
	camp, d, err := h.Campaigns.Start(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if h.Audit != nil {
		// Best-effort; the decision already persisted its rationale.
		_ = h.Audit.LogDecision(c.Request.Context(), camp.AccountID,
			audit.EventTypeCampaignStart, d.Decision, camp.AgentID, camp.ID, "")
	}
	c.JSON(http.StatusOK, gin.H{"campaign": camp, "decision": d})
}

// --- Sessions ---

func (h Handlers) GetSession(c *gin.Context) {
	id := c.Param("id")
	s, err := h.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session fetch failed"})
		return
	}
	turns, err := h.Sessions.ListTurns(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "transcript fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s, "transcript": turns})
}

// --- Reports ---

func (h Handlers) OutcomeSummary(c *gin.Context) {
	var req reporting.OutcomeSummaryRequest
	req.AccountID = c.Query("account_id")
	req.AgentID = c.Query("agent_id")
	var err error
	if req.Range.From, err = time.Parse(time.RFC3339, c.Query("from")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	if req.Range.To, err = time.Parse(time.RFC3339, c.Query("to")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	out, err := h.Reports.OutcomeSummary(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Callbacks and follow-ups ---

type scheduleCallbackRequest struct {
	AccountID  string `json:"account_id"`
	AgentID    string `json:"agent_id"`
	CustomerID string `json:"customer_id"`
}

// ScheduleCallback picks the best slot from the agent's learning history
// and persists the callback with the decision rationale.
func (h Handlers) ScheduleCallback(c *gin.Context) {
	var req scheduleCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" || req.AgentID == "" || req.CustomerID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id, agent_id, customer_id required"})
		return
	}
	ctx := c.Request.Context()

	a, err := h.Agents.Get(ctx, req.AgentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	profile, err := h.Customers.GetProfile(ctx, req.CustomerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}

	d := decision.ScheduleCallback(decision.CallbackSnapshot{
		Now:      h.now(),
		Patterns: a.Memory.SuccessfulPatterns,
	})
	pri := decision.PrioritizeContact(decision.ContactSnapshot{
		Now:         h.now(),
		Interest:    profile.Interest,
		LastContact: profile.LastContactAt,
		LastOutcome: profile.LastOutcome,
	})

	cb := customers.Callback{
		ID:          uuid.NewString(),
		AccountID:   req.AccountID,
		AgentID:     req.AgentID,
		CustomerID:  req.CustomerID,
		ScheduledAt: d.ScheduledAt,
		Priority:    pri.Priority,
		Status:      customers.CallbackPending,
		Rationale:   d.Rationale,
		CreatedAt:   h.now(),
	}
	if err := h.Customers.CreateCallback(ctx, cb); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "callback create failed"})
		return
	}
	if h.Audit != nil {
		_ = h.Audit.LogDecision(ctx, req.AccountID, audit.EventTypeCallback, d.Decision, req.AgentID, "", "")
	}
	c.JSON(http.StatusCreated, gin.H{"callback": cb, "decision": d})
}

type followUpRequest struct {
	AccountID    string `json:"account_id"`
	AgentID      string `json:"agent_id"`
	CustomerID   string `json:"customer_id"`
	OutcomeNotes string `json:"outcome_notes"`
}

// ApproveFollowUp runs the follow-up decision; approvals create a pending
// callback at the recommended delay, rejections are left for manual review.
func (h Handlers) ApproveFollowUp(c *gin.Context) {
	var req followUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" || req.AgentID == "" || req.CustomerID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id, agent_id, customer_id required"})
		return
	}
	ctx := c.Request.Context()

	a, err := h.Agents.Get(ctx, req.AgentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	profile, err := h.Customers.GetProfile(ctx, req.CustomerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}

	d := decision.ApproveFollowUp(decision.FollowUpSnapshot{
		Now:              h.now(),
		Interest:         profile.Interest,
		OutcomeNotes:     req.OutcomeNotes,
		PositiveKeywords: h.Keywords,
		Patterns:         a.Memory.SuccessfulPatterns,
	})
	if h.Audit != nil {
		_ = h.Audit.LogDecision(ctx, req.AccountID, audit.EventTypeFollowUp, d.Decision, req.AgentID, "", "")
	}

	if !d.Approved {
		c.JSON(http.StatusOK, gin.H{"decision": d})
		return
	}

	cb := customers.Callback{
		ID:          uuid.NewString(),
		AccountID:   req.AccountID,
		AgentID:     req.AgentID,
		CustomerID:  req.CustomerID,
		ScheduledAt: h.now().Add(d.Delay),
		Priority:    5,
		Status:      customers.CallbackPending,
		Rationale:   d.Rationale,
		CreatedAt:   h.now(),
	}
	if err := h.Customers.CreateCallback(ctx, cb); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "follow-up create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"decision": d, "callback": cb})
}

// --- Decisions ---

func (h Handlers) RecentDecisions(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}
	events, err := h.Audit.Recent(c.Request.Context(), accountID, 100)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": events})
}
