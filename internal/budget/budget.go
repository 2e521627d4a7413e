// Package budget provides token budget estimation and history trimming for
// the chat agent. The agent supports multiple LLM backends with different
// tokenizers, so estimation uses a character heuristic rather than a real
// tokenizer. The corpus is bilingual: CJK text tokenizes far denser than
// ASCII, roughly one token per character versus one per four bytes, so the
// two script classes are weighted separately.
package budget

import (
	"unicode"

	"github.com/cloudwego/eino/schema"
)

const (
	// bytesPerASCIIToken is the byte-to-token ratio for ASCII prose and SQL.
	bytesPerASCIIToken = 4

	// DefaultMaxContextTokens is the default input context budget. Small
	// enough to fit 8k-context local models with room for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s: one token per CJK rune plus one
// per four bytes of everything else. Non-empty strings estimate at least 1.
func Estimate(s string) int {
	cjk, other := 0, 0
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			cjk++
		} else {
			other += len(string(r))
		}
	}
	n := cjk + other/bytesPerASCIIToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// messages, summing role + content plus a small per-message overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory drops the oldest history messages until fixed + history fits
// within maxTokens. fixed holds messages that must survive (system prompt,
// retrieved context, the current user message); history holds prior turns.
// If even an empty history exceeds the budget the empty slice is returned;
// fixed messages are never dropped here.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}
	fixedTokens := EstimateMessages(fixed)
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}
