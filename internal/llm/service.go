package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/logger"
)

// Generator produces text completions for a given role
type Generator interface {
	Generate(ctx context.Context, role config.Role, system, user string) (string, error)
}

// chatter is the transport used by the service, satisfied by *Client
type chatter interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// Service routes generation requests through per-role fallback chains.
//
// Models that report an exhausted quota ("limit: 0") are added to a
// blocklist and skipped for the lifetime of the service. Identical
// prompts are served from an LRU cache without an API call.
type Service struct {
	chat       chatter
	cfg        config.ModelConfig
	cache      *lru.Cache[string, string]
	maxRetries int
	baseDelay  time.Duration

	mu      sync.Mutex
	blocked map[string]bool

	// sleep is swappable for tests
	sleep func(time.Duration)
}

// NewService creates a generation service from config
func NewService(chat chatter, cfg config.ModelConfig) (*Service, error) {
	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	baseDelay := time.Duration(cfg.RetryBaseDelay) * time.Second
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &Service{
		chat:       chat,
		cfg:        cfg,
		cache:      cache,
		maxRetries: cfg.MaxRetries,
		baseDelay:  baseDelay,
		blocked:    make(map[string]bool),
		sleep:      time.Sleep,
	}, nil
}

// Generate produces a completion for the role, trying each model in the
// role's fallback chain until one succeeds
func (s *Service) Generate(ctx context.Context, role config.Role, system, user string) (string, error) {
	key := cacheKey(role, system, user)
	if cached, ok := s.cache.Get(key); ok {
		logger.Debug("LLM cache hit for role %s", role)
		return cached, nil
	}

	messages := []Message{}
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})

	var lastErr error
	for _, model := range s.chainFor(role) {
		if s.isBlocked(model) {
			logger.Debug("Skipping blocked model %s", model)
			continue
		}

		content, err := s.tryModel(ctx, model, messages)
		if err == nil {
			s.cache.Add(key, content)
			return content, nil
		}
		lastErr = err

		if isHardBlocked(err) {
			logger.Warn("Model %s quota exhausted, blocking for this session", model)
			s.block(model)
		} else {
			logger.Warn("Model %s failed for role %s: %v", model, role, err)
		}
	}

	if lastErr == nil {
		return "", fmt.Errorf("no usable model for role %s", role)
	}
	return "", fmt.Errorf("all models failed for role %s: %w", role, lastErr)
}

// tryModel calls one model with retry and exponential backoff
func (s *Service) tryModel(ctx context.Context, model string, messages []Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		content, err := s.chat.Chat(ctx, model, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if isHardBlocked(err) || !isRetryable(err) {
			return "", err
		}

		if attempt < s.maxRetries {
			delay := s.baseDelay << (attempt - 1)
			logger.Debug("Retrying model %s in %v (attempt %d/%d)", model, delay, attempt, s.maxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
				s.sleep(delay)
			}
		}
	}
	return "", lastErr
}

// Reset clears the model blocklist
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = make(map[string]bool)
}

// Reload applies a new model configuration, clearing the blocklist
// and the response cache
func (s *Service) Reload(cfg config.ModelConfig) error {
	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create response cache: %w", err)
	}

	baseDelay := time.Duration(cfg.RetryBaseDelay) * time.Second
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.cache = cache
	s.maxRetries = cfg.MaxRetries
	s.baseDelay = baseDelay
	s.blocked = make(map[string]bool)
	return nil
}

func (s *Service) chainFor(role config.Role) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ChainFor(role)
}

// BlockedModels returns the currently blocked model names
func (s *Service) BlockedModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	models := make([]string, 0, len(s.blocked))
	for model := range s.blocked {
		models = append(models, model)
	}
	return models
}

// ClearCache drops all cached responses
func (s *Service) ClearCache() {
	s.cache.Purge()
}

// CacheLen returns the number of cached responses
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

func (s *Service) isBlocked(model string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[model]
}

func (s *Service) block(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[model] = true
}

// cacheKey hashes role and prompt into a fixed-size key
func cacheKey(role config.Role, system, user string) string {
	h := sha256.Sum256([]byte(string(role) + "::" + system + "::" + user))
	return hex.EncodeToString(h[:])
}

// isHardBlocked reports whether the error indicates a permanently
// exhausted quota rather than a transient rate limit
func isHardBlocked(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "limit: 0") || strings.Contains(msg, "limit:0")
}

// isRetryable reports whether the error is worth retrying on the
// same model (rate limits and server errors)
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}
