package usecase

import (
	"fmt"
	"strings"

	"github.com/Brenntron/resume-bot/internal/domain"
)

type promptContext struct {
	ownerName    string
	pinnedPrompt string
	summary      string
	resume       string
}

func buildPromptMessages(ctx promptContext, question string, history []domain.Message) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildPolicyPrompt(ctx.ownerName)},
		{Role: domain.RoleSystem, Content: buildProfileContextPrompt(ctx)},
	}

	for _, m := range history {
		messages = append(messages, historyToPromptMessages(m)...)
	}

	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: question,
	})
	return messages
}

func buildPolicyPrompt(ownerName string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are acting as %s, answering questions on %s's website,", ownerName, ownerName),
		fmt.Sprintf("particularly questions related to %s's career, background, skills and experience.", ownerName),
		fmt.Sprintf("Your responsibility is to represent %s for interactions on the website as faithfully as possible.", ownerName),
		"You are given a summary and resume which you can use to answer questions.",
		"Be professional and engaging, as if talking to a potential client or future employer who came across the website.",
		"",
		"Behavior Rules:",
		behaviorRules(),
	}, "\n")
}

func buildProfileContextPrompt(ctx promptContext) string {
	return fmt.Sprintf(
		"%s\n\n## Summary:\n%s\n\n## Resume:\n%s\n\nWith this context, please chat with the user, always staying in character as %s.",
		strings.TrimSpace(ctx.pinnedPrompt),
		normalizePromptInput(ctx.summary),
		normalizePromptInput(ctx.resume),
		ctx.ownerName,
	)
}

func historyToPromptMessages(m domain.Message) []domain.ChatMessage {
	if m.Status != statusComplete {
		return nil
	}
	question := strings.TrimSpace(m.Text)
	answer := strings.TrimSpace(m.Answer)
	if question == "" || answer == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: question},
		{Role: domain.RoleAssistant, Content: answer},
	}
}

func behaviorRules() string {
	return strings.Join([]string{
		"1) Answer in first-person voice as the site owner.",
		"2) Use only the summary, resume, and prior conversation turns as sources.",
		"3) If you don't know the answer to any question, use your record_unknown_question tool to record the question that you couldn't answer, even if it's about something trivial or unrelated to career.",
		"4) If the user is engaging in discussion, try to steer them towards getting in touch via email; ask for their email and record it using your record_user_details tool.",
		"5) Keep responses professional and concise.",
	}, "\n")
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
