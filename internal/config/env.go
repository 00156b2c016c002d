package config

import (
	"context"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	KeyAPIKey    = "DEEPSEEK_API_KEY"
	KeyModel     = "DEEPSEEK_MODEL"
	KeyTimeoutMS = "DEEPSEEK_TIMEOUT_MS"
	KeyBaseURL   = "DEEPSEEK_BASE_URL"

	DefaultModel     = "deepseek-chat"
	DefaultBaseURL   = "https://api.deepseek.com"
	DefaultTimeoutMS = 25_000
)

// Env is a set of configuration values keyed by variable name.
type Env map[string]string

// Settings is the fully resolved configuration for one completion call.
type Settings struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	// TimeoutMillis is the configured value before clamping to Timeout's range.
	TimeoutMillis float64
}

// TimeoutMS reports the configured timeout in (possibly fractional)
// milliseconds.
func (s Settings) TimeoutMS() float64 {
	if s.TimeoutMillis > 0 {
		return s.TimeoutMillis
	}
	return float64(s.Timeout) / float64(time.Millisecond)
}

// Lookup returns the first non-blank value for key, checking scoped before
// fallback. Blank values count as unset.
func Lookup(key string, scoped, fallback Env) (string, bool) {
	if v, ok := scoped[key]; ok && strings.TrimSpace(v) != "" {
		slog.Debug("config lookup", "key", key, "source", "request")
		return v, true
	}
	if v, ok := fallback[key]; ok && strings.TrimSpace(v) != "" {
		slog.Debug("config lookup", "key", key, "source", "process")
		return v, true
	}
	slog.Debug("config lookup", "key", key, "source", "unset")
	return "", false
}

// Resolve builds Settings from the two sources, applying defaults for every
// unset or unusable value. A missing API key is left empty.
func Resolve(scoped, fallback Env) Settings {
	s := Settings{
		Model:         DefaultModel,
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeoutMS * time.Millisecond,
		TimeoutMillis: DefaultTimeoutMS,
	}
	if v, ok := Lookup(KeyAPIKey, scoped, fallback); ok {
		s.APIKey = v
	}
	if v, ok := Lookup(KeyModel, scoped, fallback); ok {
		s.Model = v
	}
	if v, ok := Lookup(KeyBaseURL, scoped, fallback); ok {
		s.BaseURL = v
	}
	if v, ok := Lookup(KeyTimeoutMS, scoped, fallback); ok {
		if ms, ok := parseTimeoutMS(v); ok {
			s.Timeout = millisToDuration(ms)
			s.TimeoutMillis = ms
		}
	}
	return s
}

func parseTimeoutMS(raw string) (float64, bool) {
	ms, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(ms, 0) || math.IsNaN(ms) || ms <= 0 {
		return 0, false
	}
	return ms, true
}

// millisToDuration converts ms to a Duration clamped to [1ns, math.MaxInt64].
func millisToDuration(ms float64) time.Duration {
	ns := ms * float64(time.Millisecond)
	if ns >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	if ns < 1 {
		return time.Nanosecond
	}
	return time.Duration(ns)
}

// ProcessEnv snapshots the process environment.
func ProcessEnv() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// Merge returns a new Env holding base overlaid by every non-blank value of
// overrides.
func Merge(base, overrides Env) Env {
	out := make(Env, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

type envKey struct{}

// WithEnv attaches a request-scoped Env to ctx.
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext returns the request-scoped Env attached by WithEnv, or nil.
func EnvFromContext(ctx context.Context) Env {
	env, _ := ctx.Value(envKey{}).(Env)
	return env
}
