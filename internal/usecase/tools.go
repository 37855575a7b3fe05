package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Brenntron/resume-bot/internal/domain"
)

const (
	toolRecordUserDetails     = "record_user_details"
	toolRecordUnknownQuestion = "record_unknown_question"
)

const (
	toolResultOK    = `{"recorded":"ok"}`
	toolResultError = `{"recorded":"error"}`
)

type userDetailsArgs struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

type unknownQuestionArgs struct {
	Question string `json:"question"`
}

func toolSpecs() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name:        toolRecordUserDetails,
			Description: "Use this tool to record that a user is interested in being in touch and provided an email address",
			Parameters: []byte(`{
				"type":"object",
				"additionalProperties":false,
				"properties":{
					"email":{"type":"string","description":"The email address of this user"},
					"name":{"type":"string","description":"The user's name, if they provided it"},
					"notes":{"type":"string","description":"Any additional information about the conversation that's worth recording to give context"}
				},
				"required":["email"]
			}`),
		},
		{
			Name:        toolRecordUnknownQuestion,
			Description: "Always use this tool to record any question that couldn't be answered as you didn't know the answer",
			Parameters: []byte(`{
				"type":"object",
				"additionalProperties":false,
				"properties":{
					"question":{"type":"string","description":"The question that couldn't be answered"}
				},
				"required":["question"]
			}`),
		},
	}
}

// dispatchTool executes one tool call and returns the JSON result fed
// back to the model. Tool failures never abort the visitor's request;
// they are logged and reported to the model only.
func (s *ChatService) dispatchTool(ctx context.Context, conversationID string, call domain.ToolCall) string {
	slog.Info("tool called", "name", call.Name, "conversationId", conversationID)

	switch call.Name {
	case toolRecordUserDetails:
		return s.recordUserDetails(ctx, conversationID, call.Arguments)
	case toolRecordUnknownQuestion:
		return s.recordUnknownQuestion(ctx, call.Arguments)
	default:
		slog.Warn("unknown tool requested", "name", call.Name)
		return toolResultError
	}
}

func (s *ChatService) recordUserDetails(ctx context.Context, conversationID, rawArgs string) string {
	var args userDetailsArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		slog.Error("decode record_user_details arguments", "err", err)
		return toolResultError
	}
	args.Email = strings.TrimSpace(args.Email)
	if args.Email == "" || !strings.Contains(args.Email, "@") {
		return toolResultError
	}
	if strings.TrimSpace(args.Name) == "" {
		args.Name = "Name not provided"
	}
	if strings.TrimSpace(args.Notes) == "" {
		args.Notes = "not provided"
	}

	lead := domain.ContactLead{
		ID:             newUUID(),
		ConversationID: conversationID,
		Email:          args.Email,
		Name:           args.Name,
		Notes:          args.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.state.SaveContactLead(ctx, lead); err != nil {
		slog.Error("save contact lead", "err", err)
		return toolResultError
	}

	text := fmt.Sprintf("Recording %s with email %s and notes %s", args.Name, args.Email, args.Notes)
	if err := s.notifier.Push(ctx, text); err != nil {
		slog.Error("push contact notification", "err", err)
		return toolResultError
	}
	return toolResultOK
}

func (s *ChatService) recordUnknownQuestion(ctx context.Context, rawArgs string) string {
	var args unknownQuestionArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		slog.Error("decode record_unknown_question arguments", "err", err)
		return toolResultError
	}
	if strings.TrimSpace(args.Question) == "" {
		return toolResultError
	}

	if err := s.notifier.Push(ctx, fmt.Sprintf("Recording %s", args.Question)); err != nil {
		slog.Error("push unknown-question notification", "err", err)
		return toolResultError
	}
	return toolResultOK
}
