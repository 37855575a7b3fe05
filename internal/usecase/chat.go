package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Brenntron/resume-bot/internal/domain"
)

const (
	defaultMaxContext  = 20
	defaultMaxQuestion = 1000
	defaultRateLimit   = 10
	defaultTokenBudget = 3500

	maxConversationTurns = 10
	maxToolRounds        = 4
	statusComplete       = "complete"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, tools []domain.ToolSpec) (domain.Completion, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type Notifier interface {
	Push(ctx context.Context, message string) error
}

type StateReadWriter interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	SaveCompletedTurn(ctx context.Context, conversationID, question, answer string, turns int) error
	SaveContactLead(ctx context.Context, lead domain.ContactLead) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService answers visitor questions as the site owner, records
// contact leads, and persists completed conversation turns.
type ChatService struct {
	params   ParamGetter
	llm      LLMClient
	notifier Notifier
	state    StateReadWriter
	limiter  RateLimiter

	paramPrefix     string
	resumeText      string
	maxContextItems int
	maxQuestionLen  int
	ratePerMinute   int
	tokenBudget     int

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	summary      string
	pinnedPrompt string
	ownerName    string
	openaiModel  string
}

// ChatServiceDeps bundles the collaborators of the service.
type ChatServiceDeps struct {
	Params   ParamGetter
	LLM      LLMClient
	Notifier Notifier
	State    StateReadWriter
	Limiter  RateLimiter
}

// ChatServiceConfig bundles the static knobs of the service.
type ChatServiceConfig struct {
	ParamPrefix        string
	ResumeText         string
	MaxContextItems    int
	MaxQuestionLength  int
	RateLimitPerMinute int
	PromptTokenBudget  int
}

type ChatInput struct {
	Message        string
	ConversationID string
	SourceIP       string
}

type ChatOutput struct {
	Answer         string
	ConversationID string
}

func NewChatService(deps ChatServiceDeps, cfg ChatServiceConfig) (*ChatService, error) {
	if deps.Params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if deps.LLM == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if deps.Notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if deps.State == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if deps.Limiter == nil {
		return nil, errors.New("usecase: rate limiter must not be nil")
	}
	prefix := strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if prefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if strings.TrimSpace(cfg.ResumeText) == "" {
		return nil, errors.New("usecase: resume text must not be empty")
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = defaultMaxQuestion
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = defaultRateLimit
	}
	if cfg.PromptTokenBudget <= 0 {
		cfg.PromptTokenBudget = defaultTokenBudget
	}
	return &ChatService{
		params:          deps.Params,
		llm:             deps.LLM,
		notifier:        deps.Notifier,
		state:           deps.State,
		limiter:         deps.Limiter,
		paramPrefix:     prefix,
		resumeText:      cfg.ResumeText,
		maxContextItems: cfg.MaxContextItems,
		maxQuestionLen:  cfg.MaxQuestionLength,
		ratePerMinute:   cfg.RateLimitPerMinute,
		tokenBudget:     cfg.PromptTokenBudget,
	}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	question := strings.TrimSpace(in.Message)
	if question == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(question) > s.maxQuestionLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	if ip := strings.TrimSpace(in.SourceIP); ip != "" {
		allowed, err := s.limiter.Allow(ctx, ip, s.ratePerMinute, time.Minute)
		if err != nil {
			return ChatOutput{}, newError(ErrorInternal, "rate_limit_error", err)
		}
		if !allowed {
			return ChatOutput{}, newError(ErrorRateLimited, "client_rate_limited", nil)
		}
	}

	if err := s.ensureConfig(ctx); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	convID := strings.TrimSpace(in.ConversationID)
	newConversation := convID == ""
	if newConversation {
		convID = newUUID()
	}

	existingTurns := 0
	if !newConversation {
		turnCount, err := s.state.GetConversationTurnCount(ctx, convID)
		if err != nil {
			return ChatOutput{}, newError(ErrorInternal, "dynamodb_turn_count_error", err)
		}
		existingTurns = turnCount
		if existingTurns >= maxConversationTurns {
			return ChatOutput{}, newError(ErrorInvalidInput, "conversation_turn_limit", nil)
		}
	}

	flagged, err := s.llm.Moderate(ctx, question)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return ChatOutput{}, newError(ErrorRateLimited, "moderation_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "moderation_error", err)
	}
	if flagged {
		return ChatOutput{}, newError(ErrorInvalidQuestion, "moderation_flagged", nil)
	}

	var history []domain.Message
	if !newConversation {
		history, err = s.state.GetHistory(ctx, convID, s.maxContextItems)
		if err != nil {
			return ChatOutput{}, newError(ErrorInternal, "dynamodb_history_error", err)
		}
	}

	messages := buildPromptMessages(
		promptContext{
			ownerName:    s.ownerName,
			pinnedPrompt: s.pinnedPrompt,
			summary:      s.summary,
			resume:       s.resumeText,
		},
		question,
		history,
	)
	messages = trimToTokenBudget(messages, s.openaiModel, s.tokenBudget)

	answer, err := s.runCompletionLoop(ctx, convID, messages)
	if err != nil {
		return ChatOutput{}, err
	}

	if err := s.state.SaveCompletedTurn(ctx, convID, question, answer, existingTurns+1); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}

	return ChatOutput{
		Answer:         answer,
		ConversationID: convID,
	}, nil
}

// runCompletionLoop drives the completion until the model produces a
// final answer, dispatching tool calls between rounds.
func (s *ChatService) runCompletionLoop(ctx context.Context, conversationID string, messages []domain.ChatMessage) (string, error) {
	for round := 0; ; round++ {
		comp, err := s.llm.Chat(ctx, s.openaiModel, messages, toolSpecs())
		if err != nil {
			if status, ok := upstreamStatusCode(err); ok && status == 429 {
				return "", newError(ErrorRateLimited, "openai_rate_limited", err)
			}
			return "", newError(ErrorUpstream, "openai_error", err)
		}

		if comp.FinishReason == domain.FinishReasonToolCalls && len(comp.Message.ToolCalls) > 0 {
			if round >= maxToolRounds {
				return "", newError(ErrorUpstream, "tool_round_limit", nil)
			}
			messages = append(messages, comp.Message)
			for _, call := range comp.Message.ToolCalls {
				messages = append(messages, domain.ChatMessage{
					Role:       domain.RoleTool,
					Content:    s.dispatchTool(ctx, conversationID, call),
					ToolCallID: call.ID,
				})
			}
			continue
		}

		answer := strings.TrimSpace(comp.Message.Content)
		if answer == "" {
			return "", newError(ErrorUpstream, "openai_empty_answer", nil)
		}
		return answer, nil
	}
}

func (s *ChatService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	summary, pinnedPrompt, ownerName, openaiModel, err := s.loadSSMParams(ctx)
	if err != nil {
		return err
	}

	s.summary = summary
	s.pinnedPrompt = pinnedPrompt
	s.ownerName = ownerName
	s.openaiModel = openaiModel
	s.cacheLoaded = true
	return nil
}

func (s *ChatService) loadSSMParams(ctx context.Context) (summary, pinnedPrompt, ownerName, openaiModel string, err error) {
	prefix := strings.TrimRight(s.paramPrefix, "/")

	summary, err = s.params.GetParameter(ctx, prefix+"/summary")
	if err != nil {
		return "", "", "", "", fmt.Errorf("usecase: load summary: %w", err)
	}
	pinnedPrompt, err = s.params.GetParameter(ctx, prefix+"/pinned_prompt")
	if err != nil {
		return "", "", "", "", fmt.Errorf("usecase: load pinned prompt: %w", err)
	}
	ownerName, err = s.params.GetParameter(ctx, prefix+"/owner_name")
	if err != nil {
		return "", "", "", "", fmt.Errorf("usecase: load owner name: %w", err)
	}
	openaiModel, err = s.params.GetParameter(ctx, prefix+"/config/openai_model")
	if err != nil {
		return "", "", "", "", fmt.Errorf("usecase: load openai model: %w", err)
	}
	return summary, pinnedPrompt, ownerName, openaiModel, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
