package conversation

import (
	"strings"

	"salesvoice/internal/agents"
)

// Category labels what kind of utterance the local fallback matched.
type Category string

const (
	CategoryObjection Category = "objection"
	CategoryPricing   Category = "pricing"
	CategoryTrust     Category = "trust"
	CategoryGeneral   Category = "general"
)

// rule maps an utterance predicate to a category. Rules are evaluated in
// order; the first match wins.
type rule struct {
	category Category
	match    func(string) bool
}

func containsAny(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

var fallbackRules = []rule{
	{CategoryObjection, containsAny("not interested", "no thanks", "don't need", "already have", "busy", "bad time", "stop calling")},
	{CategoryPricing, containsAny("price", "cost", "expensive", "how much", "afford", "budget", "discount")},
	{CategoryTrust, containsAny("scam", "legit", "trust", "never heard", "who are you", "is this real")},
}

// Classify returns the category of a customer utterance for the local
// fallback responder. Unmatched text is general.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, r := range fallbackRules {
		if r.match(lower) {
			return r.category
		}
	}
	return CategoryGeneral
}

var defaultResponses = map[Category]string{
	CategoryObjection: "I completely understand. Would it be alright if I shared just one thing that might change your mind?",
	CategoryPricing:   "Great question. Our plans are flexible, and I can walk you through the options that fit your budget.",
	CategoryTrust:     "That's a fair concern. We work with hundreds of businesses, and I'm happy to send over references.",
	CategoryGeneral:   "That's a good point. Could you tell me a bit more about what matters most to you?",
}

// FallbackReply produces a deterministic reply from the agent's playbook,
// falling back to stock phrasing where the playbook is silent. The live
// conversation never stalls on a collaborator failure.
func FallbackReply(p agents.Playbook, text string) (string, Category) {
	cat := Classify(text)
	var configured string
	switch cat {
	case CategoryObjection:
		configured = p.Objection
	case CategoryPricing:
		configured = p.Pricing
	case CategoryTrust:
		configured = p.Trust
	default:
		configured = p.General
	}
	if configured != "" {
		return configured, cat
	}
	return defaultResponses[cat], cat
}
