// Package handler translates API Gateway proxy events into chat
// service calls and maps service errors back to HTTP responses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/Brenntron/resume-bot/internal/usecase"
)

const (
	chatPath     = "/chat"
	maxBodyBytes = 4096
	corsMaxAge   = 60
)

// Service is the chat use case consumed by the handler.
type Service interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type Handler struct {
	service        Service
	allowedOrigins map[string]struct{}
	hsts           bool
}

type Option func(*Handler)

// WithAllowedOrigins sets the CORS origin allow-list. Requests from
// other origins still get an answer, just no CORS grant.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		for _, o := range origins {
			o = strings.TrimRight(strings.TrimSpace(o), "/")
			if o != "" {
				h.allowedOrigins[o] = struct{}{}
			}
		}
	}
}

// WithHSTS enables the Strict-Transport-Security response header.
func WithHSTS(enabled bool) Option {
	return func(h *Handler) {
		h.hsts = enabled
	}
}

func NewHandler(svc Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	h := &Handler{
		service:        svc,
		allowedOrigins: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle processes one API Gateway proxy request.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := h.baseHeaders(event)

	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: headers}, nil
	}
	if event.Path != "" && event.Path != chatPath {
		return errorReply(headers, http.StatusNotFound, usecase.ErrorInvalidInput, "unknown_path"), nil
	}
	if event.HTTPMethod != "" && event.HTTPMethod != http.MethodPost {
		return errorReply(headers, http.StatusMethodNotAllowed, usecase.ErrorInvalidInput, "method_not_allowed"), nil
	}
	if len(event.Body) > maxBodyBytes {
		return errorReply(headers, http.StatusRequestEntityTooLarge, usecase.ErrorInvalidInput, "request_too_large"), nil
	}

	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorReply(headers, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_json"), nil
	}

	out, err := h.service.Chat(ctx, usecase.ChatInput{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		SourceIP:       event.RequestContext.Identity.SourceIP,
	})
	if err != nil {
		return h.errorToReply(headers, err), nil
	}

	body, err := json.Marshal(chatResponse{
		Response:       out.Answer,
		ConversationID: out.ConversationID,
	})
	if err != nil {
		slog.Error("marshal chat response", "err", err)
		return errorReply(headers, http.StatusInternalServerError, usecase.ErrorInternal, "encode_error"), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// baseHeaders builds the security, correlation, and CORS headers that
// go on every reply.
func (h *Handler) baseHeaders(event events.APIGatewayProxyRequest) map[string]string {
	headers := map[string]string{
		"Content-Type":           "application/json",
		"X-Correlation-Id":       correlationID(event.Headers),
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	if h.hsts {
		headers["Strict-Transport-Security"] = "max-age=31536000; includeSubDomains"
	}

	origin := strings.TrimRight(strings.TrimSpace(headerValue(event.Headers, "Origin")), "/")
	if origin != "" {
		if _, ok := h.allowedOrigins[origin]; ok {
			headers["Access-Control-Allow-Origin"] = origin
			headers["Access-Control-Allow-Methods"] = http.MethodPost
			headers["Access-Control-Allow-Headers"] = "Content-Type, X-Correlation-Id"
			headers["Access-Control-Allow-Credentials"] = "true"
			headers["Access-Control-Max-Age"] = strconv.Itoa(corsMaxAge)
			headers["Vary"] = "Origin"
		}
	}
	return headers
}

// errorToReply maps a usecase error to its HTTP representation.
func (h *Handler) errorToReply(headers map[string]string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("unexpected chat error", "err", err)
		return errorReply(headers, http.StatusInternalServerError, usecase.ErrorInternal, "")
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput, usecase.ErrorInvalidQuestion:
		status = http.StatusBadRequest
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		slog.Error("chat request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	}
	return errorReply(headers, status, ucErr.Code, ucErr.Reason)
}

func errorReply(headers map[string]string, status int, code usecase.ErrorCode, reason string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: string(code), Reason: reason})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}

// correlationID returns the inbound correlation header, case
// insensitive, or a fresh UUID.
func correlationID(headers map[string]string) string {
	if v := headerValue(headers, "X-Correlation-Id"); v != "" {
		return v
	}
	return uuid.NewString()
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
