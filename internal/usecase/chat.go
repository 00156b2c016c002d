package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"defi-chat/internal/config"
	"defi-chat/internal/domain"
	"defi-chat/internal/integrations/deepseek"
)

const (
	missingKeyText   = "服务器缺少 DEEPSEEK_API_KEY，请在 SSM Parameter Store 或环境变量中配置后再试。"
	noContentText    = "DeepSeek 没有返回内容，请稍后再试。"
	timeoutTextFmt   = "与 DeepSeek 的连接在 %d 秒后超时，请重试。"
	failureTextFmt   = "抱歉，调用 DeepSeek 出错：%s"
	unknownCauseText = "未知原因"
)

type Completer interface {
	Complete(ctx context.Context, in deepseek.Request) (string, error)
}

// SecretSource supplies request-scoped values loaded from a secret store.
type SecretSource interface {
	Env(ctx context.Context) (config.Env, error)
}

type ChatService struct {
	llm      Completer
	secrets  SecretSource
	fallback config.Env
}

// NewChatService wires the completion client with the process-wide fallback
// configuration. secrets may be nil when no secret store is configured.
func NewChatService(llm Completer, secrets SecretSource, fallback config.Env) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if fallback == nil {
		fallback = config.Env{}
	}
	return &ChatService{
		llm:      llm,
		secrets:  secrets,
		fallback: fallback,
	}, nil
}

// SendMessage answers message as the assistant. Failures are reported in the
// message content, never as an error.
func (s *ChatService) SendMessage(ctx context.Context, message string, scoped config.Env) domain.ChatMessage {
	return domain.ChatMessage{
		ID:      newUUID(),
		Role:    domain.RoleAssistant,
		Content: s.Reply(ctx, message, scoped),
	}
}

// Reply resolves configuration for this request, fetches a completion and
// returns display-ready text.
func (s *ChatService) Reply(ctx context.Context, message string, scoped config.Env) string {
	settings := config.Resolve(s.requestEnv(ctx, scoped), s.fallback)
	content, err := s.Fetch(ctx, message, settings)
	if err != nil {
		return Describe(err, settings)
	}
	return content
}

func (s *ChatService) requestEnv(ctx context.Context, scoped config.Env) config.Env {
	if s.secrets == nil {
		return scoped
	}
	stored, err := s.secrets.Env(ctx)
	if err != nil {
		slog.Error("failed to load secrets", "err", err)
		return scoped
	}
	return config.Merge(stored, scoped)
}

// Fetch performs one completion call bounded by settings.Timeout. Every
// returned error is a *Error.
func (s *ChatService) Fetch(ctx context.Context, message string, settings config.Settings) (string, error) {
	if settings.APIKey == "" {
		slog.Warn("missing API key", "key", config.KeyAPIKey)
		return "", newError(ErrorMissingCredential, "api_key_unset", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	content, err := s.llm.Complete(callCtx, deepseek.Request{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
		Messages:    buildPromptMessages(message),
	})
	if err == nil {
		return content, nil
	}

	var out *Error
	switch {
	case ctx.Err() != nil:
		out = newError(ErrorUpstream, "caller_context_done", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		out = newError(ErrorTimeout, "deadline_exceeded", err)
	case errors.Is(err, deepseek.ErrNoContent):
		out = newError(ErrorMalformedResponse, "empty_content", err)
	default:
		out = newError(ErrorUpstream, "deepseek_error", err)
	}
	attrs := []any{"code", out.Code, "reason", out.Reason, "err", err}
	if status, ok := upstreamStatusCode(err); ok {
		attrs = append(attrs, "status", status)
	}
	slog.Error("deepseek request failed", attrs...)
	return "", out
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// Describe turns a Fetch failure into the user-facing text for its kind.
func Describe(err error, settings config.Settings) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf(failureTextFmt, causeText(err))
	}
	switch e.Code {
	case ErrorMissingCredential:
		return missingKeyText
	case ErrorMalformedResponse:
		return noContentText
	case ErrorTimeout:
		return fmt.Sprintf(timeoutTextFmt, int64(math.Floor(settings.TimeoutMS()/1000)))
	default:
		return fmt.Sprintf(failureTextFmt, causeText(e.Err))
	}
}

func causeText(err error) string {
	if err == nil || err.Error() == "" {
		return unknownCauseText
	}
	return err.Error()
}

var newUUID = func() string {
	return uuid.NewString()
}
