package telephony

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salesvoice/internal/conversation"
	"salesvoice/internal/observability"
	"salesvoice/internal/routing"
	"salesvoice/internal/session"
)

// Handler serves the provider voice webhook. Every path returns valid voice
// markup with HTTP 200; provider retries are reconciled by the journal and
// the state machine, never rejected.
type Handler struct {
	Machine  *session.Machine
	Sessions session.Store
	Router   *routing.Engine
	Orch     *conversation.Orchestrator
	Journal  *session.Journal
	Log      *slog.Logger
	Metrics  *observability.Metrics

	// ActionURL is where Gather posts the next speech result.
	ActionURL     string
	ListenTimeout time.Duration

	Now func() time.Time
}

// Voice handles POST from the telephony provider for every call event:
// inbound call start, status callbacks, and speech results.
func (h *Handler) Voice(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log()
	now := h.now()

	form, err := ParseVoiceForm(c.Request)
	if err != nil || form.CallSid == "" {
		log.WarnContext(ctx, "unparseable voice webhook", slog.Any("error", err))
		h.respond(c, &VoiceResponse{})
		return
	}
	ev := form.Event(now)
	if h.Metrics != nil {
		h.Metrics.WebhookEvents.WithLabelValues(string(ev.Type)).Inc()
	}

	// Duplicate status deliveries are acknowledged without side effects.
	if ev.Type != session.EventSpeechReceived && h.Journal != nil {
		first, jerr := h.Journal.FirstDelivery(ctx, ev.ProviderCallID, ev.Status)
		if jerr != nil {
			log.WarnContext(ctx, "webhook journal unavailable", slog.Any("error", jerr))
		} else if !first {
			h.respond(c, &VoiceResponse{})
			return
		}
	}

	result, err := h.Machine.Apply(ctx, ev)
	if err != nil {
		log.ErrorContext(ctx, "state machine rejected event",
			slog.String("provider_call_id", ev.ProviderCallID), slog.Any("error", err))
		h.respond(c, new(VoiceResponse).Say("We are unable to take your call right now. Please try again later.").Hangup())
		return
	}

	switch {
	case ev.Type == session.EventSpeechReceived:
		d := h.Orch.HandleSpeech(ctx, ev.ProviderCallID, ev.SpeechText, ev.SpeechConfidence)
		h.respondDirective(c, d)
	case result.Created && result.Session.Direction == session.DirectionInbound:
		if h.Metrics != nil {
			h.Metrics.ActiveCalls.Inc()
		}
		h.answerInbound(c, result.Session)
	case result.Session.Status.Terminal():
		if h.Metrics != nil {
			h.Metrics.ActiveCalls.Dec()
			h.Metrics.CallOutcomes.WithLabelValues(string(result.Session.Outcome)).Inc()
		}
		h.respond(c, &VoiceResponse{})
	default:
		// Intermediate status callback; acknowledge.
		h.respond(c, &VoiceResponse{})
	}
}

// answerInbound routes the new call to an agent and opens the conversation.
// With no agent available the caller is offered voicemail instead of being
// dropped.
func (h *Handler) answerInbound(c *gin.Context, s session.CallSession) {
	ctx := c.Request.Context()
	log := h.log()

	d, err := h.Router.Route(ctx, s.AccountID, s.From)
	if err == nil && h.Metrics != nil {
		h.Metrics.RoutingDecisions.WithLabelValues(string(d.Reason)).Inc()
	}
	if err != nil {
		log.WarnContext(ctx, "inbound routing exhausted",
			slog.String("session_id", s.ID), slog.Any("error", err))
		h.respond(c, new(VoiceResponse).
			Say("All of our agents are currently unavailable. Please leave a message after the tone.").
			RecordVoicemail(h.ActionURL, 120*time.Second).
			Hangup())
		return
	}

	greeting := d.Agent.Playbook.Opening
	if greeting == "" {
		greeting = "Hello! Thanks for calling. How can I help you today?"
	}

	s.AgentID = d.Agent.ID
	s.UpdatedAt = h.now()
	if err := h.Sessions.Update(ctx, s); err != nil {
		log.ErrorContext(ctx, "agent assignment persist failed",
			slog.String("session_id", s.ID), slog.Any("error", err))
	}

	h.respond(c, new(VoiceResponse).GatherSpeech(h.ActionURL, h.ListenTimeout, greeting))
}

func (h *Handler) respondDirective(c *gin.Context, d conversation.Directive) {
	v := &VoiceResponse{}
	switch {
	case d.HangUp:
		v.Say(d.Say).Hangup()
	default:
		timeout := d.ListenTimeout
		if timeout <= 0 {
			timeout = h.ListenTimeout
		}
		v.GatherSpeech(h.ActionURL, timeout, d.Say)
	}
	h.respond(c, v)
}

func (h *Handler) respond(c *gin.Context, v *VoiceResponse) {
	xml, err := v.Render()
	if err != nil {
		h.log().ErrorContext(c.Request.Context(), "twiml render failed", slog.Any("error", err))
		xml = `<?xml version="1.0" encoding="UTF-8"?><Response/>`
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(xml))
}

func (h *Handler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
