package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/Brenntron/resume-bot/handler"
	"github.com/Brenntron/resume-bot/internal/config"
	"github.com/Brenntron/resume-bot/internal/integrations/openai"
	"github.com/Brenntron/resume-bot/internal/integrations/paramstore"
	"github.com/Brenntron/resume-bot/internal/integrations/pushover"
	"github.com/Brenntron/resume-bot/internal/repository"
	"github.com/Brenntron/resume-bot/internal/resume"
	"github.com/Brenntron/resume-bot/internal/usecase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	resumeText, err := resume.Load(cfg.ResumePDFPath)
	if err != nil {
		slog.Error("failed to load resume PDF", "path", cfg.ResumePDFPath, "err", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	pushoverClient, err := pushover.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		slog.Error("failed to create Pushover client", "err", err)
		os.Exit(1)
	}

	chatService, err := usecase.NewChatService(
		usecase.ChatServiceDeps{
			Params:   ssmClient,
			LLM:      openaiClient,
			Notifier: pushoverClient,
			State:    stateClient,
			Limiter:  stateClient,
		},
		usecase.ChatServiceConfig{
			ParamPrefix:        cfg.ParamPrefix,
			ResumeText:         resumeText,
			MaxContextItems:    cfg.MaxContextItems,
			MaxQuestionLength:  cfg.MaxQuestionLength,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			PromptTokenBudget:  cfg.PromptTokenBudget,
		},
	)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService,
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
		handler.WithHSTS(cfg.IsProduction()),
	)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
