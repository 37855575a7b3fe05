package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brenntron/resume-bot/internal/domain"
)

func toolTestService(t *testing.T, state *mockState, notifier *mockNotifier) *ChatService {
	t.Helper()
	return newTestService(t, ChatServiceDeps{State: state, Notifier: notifier})
}

func TestDispatchTool_RecordUserDetails(t *testing.T) {
	state := &mockState{}
	notifier := &mockNotifier{}
	svc := toolTestService(t, state, notifier)

	result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
		ID:        "call-1",
		Name:      toolRecordUserDetails,
		Arguments: `{"email":"visitor@example.com","name":"Pat","notes":"interested in contract work"}`,
	})
	require.Equal(t, toolResultOK, result)

	require.Len(t, state.leads, 1)
	lead := state.leads[0]
	require.Equal(t, "conv-1", lead.ConversationID)
	require.Equal(t, "visitor@example.com", lead.Email)
	require.Equal(t, "Pat", lead.Name)
	require.NotEmpty(t, lead.ID)
	require.False(t, lead.CreatedAt.IsZero())

	require.Len(t, notifier.pushed, 1)
	require.Equal(t, "Recording Pat with email visitor@example.com and notes interested in contract work", notifier.pushed[0])
}

func TestDispatchTool_RecordUserDetails_Defaults(t *testing.T) {
	state := &mockState{}
	notifier := &mockNotifier{}
	svc := toolTestService(t, state, notifier)

	result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
		Name:      toolRecordUserDetails,
		Arguments: `{"email":"visitor@example.com"}`,
	})
	require.Equal(t, toolResultOK, result)
	require.Equal(t, "Name not provided", state.leads[0].Name)
	require.Equal(t, "not provided", state.leads[0].Notes)
}

func TestDispatchTool_RecordUserDetails_BadInput(t *testing.T) {
	cases := []struct {
		name string
		args string
	}{
		{"malformed json", `not-json`},
		{"missing email", `{"name":"Pat"}`},
		{"invalid email", `{"email":"nope"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := &mockState{}
			svc := toolTestService(t, state, &mockNotifier{})
			result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
				Name:      toolRecordUserDetails,
				Arguments: tc.args,
			})
			require.Equal(t, toolResultError, result)
			require.Empty(t, state.leads)
		})
	}
}

func TestDispatchTool_RecordUserDetails_FailuresReportedToModel(t *testing.T) {
	t.Run("lead store failure", func(t *testing.T) {
		state := &mockState{leadErr: errors.New("dynamo down")}
		svc := toolTestService(t, state, &mockNotifier{})
		result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
			Name:      toolRecordUserDetails,
			Arguments: `{"email":"visitor@example.com"}`,
		})
		require.Equal(t, toolResultError, result)
	})

	t.Run("notify failure", func(t *testing.T) {
		notifier := &mockNotifier{err: errors.New("pushover down")}
		svc := toolTestService(t, &mockState{}, notifier)
		result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
			Name:      toolRecordUserDetails,
			Arguments: `{"email":"visitor@example.com"}`,
		})
		require.Equal(t, toolResultError, result)
	})
}

func TestDispatchTool_RecordUnknownQuestion(t *testing.T) {
	notifier := &mockNotifier{}
	svc := toolTestService(t, &mockState{}, notifier)

	result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
		Name:      toolRecordUnknownQuestion,
		Arguments: `{"question":"What is your favorite color?"}`,
	})
	require.Equal(t, toolResultOK, result)
	require.Equal(t, []string{"Recording What is your favorite color?"}, notifier.pushed)
}

func TestDispatchTool_RecordUnknownQuestion_EmptyQuestion(t *testing.T) {
	notifier := &mockNotifier{}
	svc := toolTestService(t, &mockState{}, notifier)

	result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
		Name:      toolRecordUnknownQuestion,
		Arguments: `{"question":"  "}`,
	})
	require.Equal(t, toolResultError, result)
	require.Empty(t, notifier.pushed)
}

func TestDispatchTool_UnknownTool(t *testing.T) {
	svc := toolTestService(t, &mockState{}, &mockNotifier{})

	result := svc.dispatchTool(context.Background(), "conv-1", domain.ToolCall{
		Name:      "drop_tables",
		Arguments: `{}`,
	})
	require.Equal(t, toolResultError, result)
}

func TestToolSpecs_SchemasAreValidJSON(t *testing.T) {
	specs := toolSpecs()
	require.Len(t, specs, 2)
	for _, spec := range specs {
		require.NotEmpty(t, spec.Name)
		require.NotEmpty(t, spec.Description)
		require.True(t, json.Valid(spec.Parameters), "schema for %s must be valid JSON", spec.Name)
	}
}
