package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/Brenntron/resume-bot/internal/usecase"
)

type stubService struct {
	out usecase.ChatOutput
	err error
	in  usecase.ChatInput
}

func (s *stubService) Chat(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		RequestContext: events.APIGatewayProxyRequestContext{
			Identity: events.APIGatewayRequestIdentity{SourceIP: "203.0.113.7"},
		},
		Body: body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	svc := &stubService{out: usecase.ChatOutput{Answer: "hello", ConversationID: "conv-1"}}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"What do you do?","conversationId":"conv-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.ChatInput{
		Message:        "What do you do?",
		ConversationID: "conv-1",
		SourceIP:       "203.0.113.7",
	}, svc.in)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "hello", out.Response)
	require.Equal(t, "conv-1", out.ConversationID)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, "nosniff", resp.Headers["X-Content-Type-Options"])
	require.Equal(t, "DENY", resp.Headers["X-Frame-Options"])
}

func TestHandle_InvalidBody(t *testing.T) {
	svc := &stubService{}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_OversizedBody(t *testing.T) {
	h, err := NewHandler(&stubService{})
	require.NoError(t, err)

	big := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	resp, err := h.Handle(context.Background(), makeEvent(big))
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandle_MethodAndPath(t *testing.T) {
	h, err := NewHandler(&stubService{})
	require.NoError(t, err)

	event := makeEvent(`{}`)
	event.HTTPMethod = http.MethodGet
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	event = makeEvent(`{}`)
	event.Path = "/nope"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "invalid question", err: &usecase.Error{Code: usecase.ErrorInvalidQuestion, Reason: "moderation_flagged"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidQuestion)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "client_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "openai_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "dynamodb_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.err}
			h, err := NewHandler(svc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"message":"What do you do?"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	svc := &stubService{out: usecase.ChatOutput{Answer: "ok", ConversationID: "conv-1"}}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	event := makeEvent(`{"message":"What do you do?"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_CORSAllowedOrigin(t *testing.T) {
	svc := &stubService{out: usecase.ChatOutput{Answer: "ok", ConversationID: "conv-1"}}
	h, err := NewHandler(svc, WithAllowedOrigins([]string{"https://example.com"}))
	require.NoError(t, err)

	event := makeEvent(`{"message":"hi"}`)
	event.Headers["Origin"] = "https://example.com"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", resp.Headers["Access-Control-Allow-Origin"])
	require.Equal(t, http.MethodPost, resp.Headers["Access-Control-Allow-Methods"])
}

func TestHandle_CORSUnknownOrigin(t *testing.T) {
	h, err := NewHandler(&stubService{out: usecase.ChatOutput{Answer: "ok"}}, WithAllowedOrigins([]string{"https://example.com"}))
	require.NoError(t, err)

	event := makeEvent(`{"message":"hi"}`)
	event.Headers["Origin"] = "https://evil.test"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Empty(t, resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_Preflight(t *testing.T) {
	h, err := NewHandler(&stubService{}, WithAllowedOrigins([]string{"https://example.com"}))
	require.NoError(t, err)

	event := makeEvent("")
	event.HTTPMethod = http.MethodOptions
	event.Headers["Origin"] = "https://example.com"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://example.com", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_HSTSHeader(t *testing.T) {
	h, err := NewHandler(&stubService{out: usecase.ChatOutput{Answer: "ok"}}, WithHSTS(true))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hi"}`))
	require.NoError(t, err)
	require.Contains(t, resp.Headers["Strict-Transport-Security"], "max-age=")
}
