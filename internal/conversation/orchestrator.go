package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/observability"
	"salesvoice/internal/session"
	"salesvoice/internal/voiceai"
)

// Directive tells the telephony layer what to do next on the live call.
// Exactly one of Listen or HangUp is set; Say may accompany either.
type Directive struct {
	Say           string
	Listen        bool
	ListenTimeout time.Duration
	HangUp        bool
}

// Orchestrator processes one customer speech event per request. All mutable
// per-call state lives in the session store, so any handler instance can
// serve any turn.
type Orchestrator struct {
	Sessions session.Store
	Agents   agents.Store
	AI       voiceai.Client
	Detector *Detector
	Log      *slog.Logger
	Metrics  *observability.Metrics

	// ListenTimeout bounds how long the call waits for the next customer
	// utterance after a reply.
	ListenTimeout time.Duration

	Now func() time.Time
}

func NewOrchestrator(sessions session.Store, ag agents.Store, ai voiceai.Client, det *Detector, listenTimeout time.Duration, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		Sessions:      sessions,
		Agents:        ag,
		AI:            ai,
		Detector:      det,
		Log:           log,
		ListenTimeout: listenTimeout,
		Now:           time.Now,
	}
}

// HandleSpeech runs one turn: interrupt check, reply generation with local
// fallback, transcript append, and speech-timing bookkeeping. It always
// returns a usable directive; internal failures degrade to a safe reply
// rather than surfacing to the webhook.
func (o *Orchestrator) HandleSpeech(ctx context.Context, providerCallID, text string, confidence float64) Directive {
	now := o.Now()
	log := o.Log
	if log == nil {
		log = slog.Default()
	}

	s, ok, err := o.Sessions.GetByProviderCallID(ctx, providerCallID)
	if err != nil || !ok {
		log.WarnContext(ctx, "speech event for unknown session",
			slog.String("provider_call_id", providerCallID), slog.Any("error", err))
		return Directive{Say: "I'm sorry, could you repeat that?", Listen: true, ListenTimeout: o.ListenTimeout}
	}
	if s.Status.Terminal() {
		return Directive{HangUp: true}
	}

	agent, agentErr := o.loadAgent(ctx, s.AgentID)
	if agentErr != nil {
		log.WarnContext(ctx, "agent lookup failed, using fallback persona",
			slog.String("session_id", s.ID), slog.Any("error", agentErr))
	}

	// Interrupt check against the utterance currently in flight.
	var ack string
	if s.AgentSpeechStartedAt != nil && s.AgentSpeechExpected > 0 {
		elapsed := now.Sub(*s.AgentSpeechStartedAt)
		if o.Detector.IsInterruption(elapsed, s.AgentSpeechExpected) {
			s.InterruptCount++
			ack = Acknowledgment(s.InterruptCount)
			if o.Metrics != nil {
				o.Metrics.Interruptions.Inc()
			}
		}
	}

	o.appendTurn(ctx, &s, session.SpeakerCustomer, text, "", "", confidence, now)

	genStart := time.Now()
	reply := o.generate(ctx, &s, agent, text, log)
	if o.Metrics != nil {
		o.Metrics.ObserveTurnLatency(time.Since(genStart))
	}
	say := reply.Text
	if ack != "" {
		if emp, ok := empatheticAcknowledgment(reply.Emotion); ok {
			ack = emp
		}
		say = ack + " " + say
	}

	o.appendTurn(ctx, &s, session.SpeakerAgent, say, reply.Emotion, reply.Intent, reply.Confidence, now)

	d := Directive{Say: say, Listen: true, ListenTimeout: o.ListenTimeout}
	if wantsToEnd(text, reply.Intent) {
		s.Outcome = closingOutcome(text)
		s.AgentSpeechStartedAt = nil
		s.AgentSpeechExpected = 0
		d = Directive{Say: say, HangUp: true}
	} else {
		expected := o.Detector.EstimateDuration(say)
		s.AgentSpeechStartedAt = &now
		s.AgentSpeechExpected = expected
	}
	s.UpdatedAt = now

	if err := o.Sessions.Update(ctx, s); err != nil {
		log.ErrorContext(ctx, "session update failed after turn",
			slog.String("session_id", s.ID), slog.Any("error", err))
	}
	return d
}

func (o *Orchestrator) loadAgent(ctx context.Context, agentID string) (agents.Agent, error) {
	if agentID == "" {
		return agents.Agent{}, nil
	}
	return o.Agents.Get(ctx, agentID)
}

// generate asks the collaborator for a reply, retrying once on transient
// failure, then falls back to the deterministic local responder.
func (o *Orchestrator) generate(ctx context.Context, s *session.CallSession, agent agents.Agent, text string, log *slog.Logger) voiceai.Reply {
	if o.AI != nil {
		if s.VoiceSessionID == "" {
			id, err := o.AI.CreateSession(ctx, voiceai.SessionRequest{
				Persona:   agent.Persona,
				Script:    agent.Script,
				Knowledge: agent.Playbook.KnowledgeText(),
			})
			if err == nil {
				s.VoiceSessionID = id
			} else {
				log.WarnContext(ctx, "voiceai session create failed",
					slog.String("session_id", s.ID), slog.Any("error", err))
			}
		}
		if s.VoiceSessionID != "" {
			req := voiceai.UtteranceRequest{
				SessionID: s.VoiceSessionID,
				Text:      text,
				Context:   o.recentContext(ctx, s.ID),
			}
			reply, err := o.AI.SendUtterance(ctx, req)
			if err != nil && voiceai.IsTransient(err) {
				reply, err = o.AI.SendUtterance(ctx, req)
			}
			if err == nil && reply.Text != "" {
				return reply
			}
			log.WarnContext(ctx, "voiceai reply failed, using local fallback",
				slog.String("session_id", s.ID), slog.Any("error", err))
		}
	}

	if o.Metrics != nil {
		o.Metrics.FallbackReplies.Inc()
	}
	fallback, cat := FallbackReply(agent.Playbook, text)
	return voiceai.Reply{Text: fallback, Intent: string(cat), Confidence: 0.3}
}

// contextDepth bounds how many recent turns are replayed to the
// collaborator.
const contextDepth = 6

func (o *Orchestrator) recentContext(ctx context.Context, sessionID string) []string {
	turns, err := o.Sessions.ListTurns(ctx, sessionID)
	if err != nil {
		return nil
	}
	if len(turns) > contextDepth {
		turns = turns[len(turns)-contextDepth:]
	}
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, string(t.Speaker)+": "+t.Text)
	}
	return out
}

func (o *Orchestrator) appendTurn(ctx context.Context, s *session.CallSession, speaker session.Speaker, text, emotion, intent string, confidence float64, now time.Time) {
	t := session.Turn{
		SessionID:  s.ID,
		Index:      s.TurnCount,
		Speaker:    speaker,
		Text:       text,
		Emotion:    emotion,
		Intent:     intent,
		Confidence: confidence,
		CreatedAt:  now,
	}
	if err := o.Sessions.AppendTurn(ctx, t); err != nil && o.Log != nil {
		o.Log.ErrorContext(ctx, "transcript append failed",
			slog.String("session_id", s.ID), slog.Any("error", err))
	}
	s.TurnCount++
}

var endPhrases = []string{"goodbye", "good bye", "stop calling", "do not call", "don't call", "remove me", "hang up"}

func wantsToEnd(customerText, replyIntent string) bool {
	if replyIntent == "end_call" {
		return true
	}
	lower := strings.ToLower(customerText)
	for _, p := range endPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func closingOutcome(customerText string) session.Outcome {
	lower := strings.ToLower(customerText)
	for _, p := range []string{"stop calling", "do not call", "don't call", "remove me"} {
		if strings.Contains(lower, p) {
			return session.OutcomeDoNotCall
		}
	}
	return session.OutcomeAnswered
}
