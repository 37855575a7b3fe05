package usecase

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/Brenntron/resume-bot/internal/domain"
)

// perMessageOverhead approximates the framing tokens the chat format
// adds around each message.
const perMessageOverhead = 4

// trimToTokenBudget drops the oldest history messages until the
// assembled prompt fits within budget. The two leading system messages
// and the trailing user question always survive.
func trimToTokenBudget(messages []domain.ChatMessage, model string, budget int) []domain.ChatMessage {
	if budget <= 0 || len(messages) <= 3 {
		return messages
	}
	count := newTokenCounter(model)

	total := 0
	for _, m := range messages {
		total += count(m.Content) + perMessageOverhead
	}
	for total > budget && len(messages) > 3 {
		dropped := messages[2]
		messages = append(messages[:2:2], messages[3:]...)
		total -= count(dropped.Content) + perMessageOverhead
	}
	return messages
}

// newTokenCounter returns a counting function for the model's
// encoding. If the encoding cannot be loaded, a bytes/4 estimate keeps
// trimming functional.
func newTokenCounter(model string) func(string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return func(s string) int { return len(s)/4 + 1 }
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
}
