package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"defi-chat/internal/config"
	"defi-chat/internal/domain"
)

type stubSender struct {
	message string
	scoped  config.Env
	calls   int
}

func (s *stubSender) SendMessage(_ context.Context, message string, scoped config.Env) domain.ChatMessage {
	s.calls++
	s.message = message
	s.scoped = scoped
	return domain.ChatMessage{ID: "msg-1", Role: domain.RoleAssistant, Content: "reply to " + message}
}

func newTestExecutor(t *testing.T) (*Executor, *stubSender) {
	t.Helper()
	sender := &stubSender{}
	exec, err := NewExecutor(sender)
	require.NoError(t, err)
	return exec, sender
}

func resultJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestNewExecutor_ValidatesDependency(t *testing.T) {
	_, err := NewExecutor(nil)
	require.Error(t, err)
}

func TestExecute_Health(t *testing.T) {
	exec, sender := newTestExecutor(t)

	res := exec.Execute(context.Background(), Request{Query: `{ _health }`})
	require.False(t, res.HasErrors(), "%v", res.Errors)
	require.JSONEq(t, `{"_health":"ok"}`, resultJSON(t, res.Data))
	require.Equal(t, 0, sender.calls)
}

func TestExecute_SendMessage(t *testing.T) {
	exec, sender := newTestExecutor(t)
	ctx := config.WithEnv(context.Background(), config.Env{config.KeyModel: "deepseek-reasoner"})

	res := exec.Execute(ctx, Request{
		Query: `mutation Send($input: SendMessageInput!) {
			sendMessage(input: $input) { message { id role content } }
		}`,
		Variables:     map[string]any{"input": map[string]any{"message": "what is impermanent loss?"}},
		OperationName: "Send",
	})
	require.False(t, res.HasErrors(), "%v", res.Errors)
	require.JSONEq(t, `{"sendMessage":{"message":{"id":"msg-1","role":"assistant","content":"reply to what is impermanent loss?"}}}`,
		resultJSON(t, res.Data))
	require.Equal(t, "what is impermanent loss?", sender.message)
	require.Equal(t, config.Env{config.KeyModel: "deepseek-reasoner"}, sender.scoped)
}

func TestExecute_SendMessageInlineArgument(t *testing.T) {
	exec, sender := newTestExecutor(t)

	res := exec.Execute(context.Background(), Request{
		Query: `mutation { sendMessage(input: {message: "hi"}) { message { content } } }`,
	})
	require.False(t, res.HasErrors(), "%v", res.Errors)
	require.JSONEq(t, `{"sendMessage":{"message":{"content":"reply to hi"}}}`, resultJSON(t, res.Data))
	require.Nil(t, sender.scoped)
}

func TestExecute_MissingInputIsValidationError(t *testing.T) {
	exec, sender := newTestExecutor(t)

	res := exec.Execute(context.Background(), Request{
		Query: `mutation { sendMessage { message { content } } }`,
	})
	require.True(t, res.HasErrors())
	require.Equal(t, 0, sender.calls)
}

func TestExecute_UnknownField(t *testing.T) {
	exec, _ := newTestExecutor(t)

	res := exec.Execute(context.Background(), Request{Query: `{ nope }`})
	require.True(t, res.HasErrors())
}
