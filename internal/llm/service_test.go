package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hession/krishimate/internal/config"
)

// fakeChatter scripts per-model responses for service tests
type fakeChatter struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeChatter) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	if resp, ok := f.responses[model]; ok {
		return resp, nil
	}
	return "", errors.New("unknown model")
}

func testModelConfig() config.ModelConfig {
	return config.ModelConfig{
		BaseURL:     "https://api.test.com",
		Temperature: 0.3,
		MaxTokens:   1024,
		Classifier:  "small",
		Agent:       "large",
		Synthesis:   "small",
		FallbackChains: map[string][]string{
			string(config.RoleAgent): {"large", "small"},
		},
		MaxRetries:     2,
		RetryBaseDelay: 1,
		CacheSize:      16,
	}
}

func newTestService(t *testing.T, chat chatter) *Service {
	t.Helper()
	svc, err := NewService(chat, testModelConfig())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.sleep = func(time.Duration) {}
	return svc
}

func TestGenerateSuccess(t *testing.T) {
	chat := &fakeChatter{responses: map[string]string{"large": "hello farmer"}}
	svc := newTestService(t, chat)

	got, err := svc.Generate(context.Background(), config.RoleAgent, "system", "user")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "hello farmer" {
		t.Errorf("Expected 'hello farmer', got %q", got)
	}
}

func TestGenerateFallbackChain(t *testing.T) {
	chat := &fakeChatter{
		responses: map[string]string{"small": "fallback answer"},
		errs:      map[string]error{"large": &APIError{StatusCode: 400, Body: "bad request"}},
	}
	svc := newTestService(t, chat)

	got, err := svc.Generate(context.Background(), config.RoleAgent, "", "question")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "fallback answer" {
		t.Errorf("Expected fallback answer, got %q", got)
	}
}

func TestGenerateRetryOnRateLimit(t *testing.T) {
	attempts := 0
	chat := &scriptedChatter{fn: func(model string) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &APIError{StatusCode: 429, Body: "rate limit exceeded"}
		}
		return "after retry", nil
	}}
	svc := newTestService(t, chat)

	got, err := svc.Generate(context.Background(), config.RoleAgent, "", "question")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "after retry" {
		t.Errorf("Expected 'after retry', got %q", got)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

// scriptedChatter delegates to a function
type scriptedChatter struct {
	fn func(model string) (string, error)
}

func (s *scriptedChatter) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	return s.fn(model)
}

func TestGenerateHardBlock(t *testing.T) {
	chat := &fakeChatter{
		responses: map[string]string{"small": "from small"},
		errs:      map[string]error{"large": &APIError{StatusCode: 429, Body: "quota limit: 0"}},
	}
	svc := newTestService(t, chat)
	ctx := context.Background()

	got, err := svc.Generate(ctx, config.RoleAgent, "", "first question")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "from small" {
		t.Errorf("Expected fallback response, got %q", got)
	}

	blocked := svc.BlockedModels()
	if len(blocked) != 1 || blocked[0] != "large" {
		t.Errorf("Expected 'large' to be blocked, got %v", blocked)
	}

	// Blocked model is skipped entirely on the next call
	chat.calls = nil
	if _, err := svc.Generate(ctx, config.RoleAgent, "", "second question"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, model := range chat.calls {
		if model == "large" {
			t.Error("Blocked model should not be called")
		}
	}

	// Reset clears the blocklist
	svc.Reset()
	if len(svc.BlockedModels()) != 0 {
		t.Error("Expected empty blocklist after Reset")
	}
}

func TestGenerateCache(t *testing.T) {
	chat := &fakeChatter{responses: map[string]string{"large": "cached answer"}}
	svc := newTestService(t, chat)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, config.RoleAgent, "sys", "same prompt"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := svc.Generate(ctx, config.RoleAgent, "sys", "same prompt"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(chat.calls) != 1 {
		t.Errorf("Expected 1 API call with cache hit, got %d", len(chat.calls))
	}

	// Different role misses the cache
	chat.responses["small"] = "other"
	if _, err := svc.Generate(ctx, config.RoleSynthesis, "sys", "same prompt"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(chat.calls) != 2 {
		t.Errorf("Expected cache miss for different role, got %d calls", len(chat.calls))
	}

	svc.ClearCache()
	if svc.CacheLen() != 0 {
		t.Errorf("Expected empty cache after ClearCache, got %d", svc.CacheLen())
	}
}

func TestReload(t *testing.T) {
	chat := &fakeChatter{
		responses: map[string]string{"small": "from small"},
		errs:      map[string]error{"large": &APIError{StatusCode: 429, Body: "quota limit: 0"}},
	}
	svc := newTestService(t, chat)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, config.RoleAgent, "", "question"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(svc.BlockedModels()) != 1 {
		t.Fatal("Expected one blocked model before Reload")
	}

	cfg := testModelConfig()
	cfg.FallbackChains = map[string][]string{string(config.RoleAgent): {"small"}}
	if err := svc.Reload(cfg); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if len(svc.BlockedModels()) != 0 {
		t.Error("Reload should clear the blocklist")
	}
	if svc.CacheLen() != 0 {
		t.Error("Reload should clear the response cache")
	}

	// New chain is in effect
	chat.calls = nil
	if _, err := svc.Generate(ctx, config.RoleAgent, "", "question"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(chat.calls) != 1 || chat.calls[0] != "small" {
		t.Errorf("Expected only 'small' to be called, got %v", chat.calls)
	}
}

func TestGenerateAllModelsFail(t *testing.T) {
	chat := &fakeChatter{errs: map[string]error{
		"large": errors.New("connection refused"),
		"small": errors.New("connection refused"),
	}}
	svc := newTestService(t, chat)

	_, err := svc.Generate(context.Background(), config.RoleAgent, "", "question")
	if err == nil {
		t.Fatal("Expected error when all models fail")
	}
}
