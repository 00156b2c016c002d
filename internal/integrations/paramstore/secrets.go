package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"defi-chat/internal/config"
)

const apiKeyParameter = "/deepseek-api-key"

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// Secrets exposes SSM-stored credentials as configuration values. A
// successful load is reused for the lifetime of the process; failures are
// retried on the next call.
type Secrets struct {
	getter      Getter
	paramPrefix string

	mu     sync.Mutex
	loaded config.Env
}

// NewSecrets creates a Secrets source reading parameters under paramPrefix.
func NewSecrets(getter Getter, paramPrefix string) (*Secrets, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	return &Secrets{getter: getter, paramPrefix: paramPrefix}, nil
}

// Env returns the stored secrets keyed by configuration variable name.
func (s *Secrets) Env(ctx context.Context) (config.Env, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return s.loaded, nil
	}

	key, err := fetchAPIKey(ctx, s.getter, s.paramPrefix+apiKeyParameter)
	if err != nil {
		return nil, err
	}
	s.loaded = config.Env{config.KeyAPIKey: key}
	return s.loaded, nil
}

func fetchAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch api key: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal api key value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("paramstore: api key token is empty")
	}
	return tp.Token, nil
}
