package analyst

import (
	"strings"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/translator"
)

// ============================================================================
// FOLLOW-UP DETECTOR — Does the question continue the conversation?
// ============================================================================
// A question is a follow-up when it contains a continuation word, or when it
// mentions an entity from earlier turns: concrete values and explicitly named
// metrics from user turns, catalogue vocabulary found in assistant turns.
// Plain substring matching; short words give false positives by nature.
// ============================================================================

var continuationWords = []string{
	"more", "what about", "tell me", "further", "also",
	"next", "continue", "same", "cost", "drivers",
}

// assistantVocabulary is looked for in prior assistant answers.
var assistantVocabulary = buildAssistantVocabulary()

func buildAssistantVocabulary() []string {
	vocab := make([]string, 0, len(engine.GroupingDimensions)+2*len(engine.AllMetrics)+1)
	for _, d := range engine.GroupingDimensions {
		vocab = append(vocab, string(d))
	}
	for _, m := range engine.AllMetrics {
		vocab = append(vocab, m.Label())
		if m.Label() != string(m) {
			vocab = append(vocab, string(m))
		}
	}
	return append(vocab, "cost drivers")
}

// FollowUpDetector decides whether a question builds on earlier turns.
type FollowUpDetector struct {
	interpreter *translator.Keyword
}

// NewFollowUpDetector creates a detector. User turns are re-read with k;
// nil uses the default keyword tables.
func NewFollowUpDetector(k *translator.Keyword) *FollowUpDetector {
	if k == nil {
		k = translator.NewKeyword()
	}
	return &FollowUpDetector{interpreter: k}
}

// IsFollowUp reports whether text continues the conversation in turns.
func (d *FollowUpDetector) IsFollowUp(text string, turns []engine.ConversationTurn) bool {
	t := strings.ToLower(text)
	for _, w := range continuationWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	for _, e := range d.Entities(turns) {
		if strings.Contains(t, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// Entities collects the entity set of the prior conversation.
func (d *FollowUpDetector) Entities(turns []engine.ConversationTurn) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(e string) {
		if e != "" && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case engine.RoleUser:
			q := d.interpreter.Parse(turn.Content)
			for _, f := range q.DimensionFilters {
				if !f.IsGrouping() {
					add(f.Value)
				}
			}
			if !q.MetricsDefaulted {
				for _, m := range q.Metrics {
					add(string(m))
					add(m.Label())
				}
			}
		case engine.RoleAssistant:
			content := strings.ToLower(turn.Content)
			for _, v := range assistantVocabulary {
				if strings.Contains(content, strings.ToLower(v)) {
					add(v)
				}
			}
		}
	}
	return out
}
