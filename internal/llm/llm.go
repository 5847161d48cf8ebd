// Package llm reaches the generative model through a narrow Client interface.
// Providers are Gemini (google.golang.org/genai) and any OpenAI-compatible API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/edgard/tgassist/internal/config"
)

// ErrUnknownModel is returned by SetModel for a name outside the configured list.
var ErrUnknownModel = errors.New("unknown model")

// Gemini model names offered when ai.models is empty.
var DefaultGeminiModels = []string{"gemini-pro", "gemini-exp-1206", "gemini-2.0-flash-exp"}

// DefaultGeminiModel is active at startup when ai.model is empty.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// Client generates text from a single prompt with a switchable model.
type Client interface {
	// Generate sends prompt to the active model and returns its text answer.
	Generate(ctx context.Context, prompt string) (string, error)
	// Model returns the active model name.
	Model() string
	// Models lists the selectable model names.
	Models() []string
	// SetModel switches the active model.
	SetModel(name string) error
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, cfg, logger)
	case "openai":
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// modelSet tracks the selectable models and the active one. It is shared by the
// providers and safe for concurrent use.
type modelSet struct {
	mu      sync.RWMutex
	current string
	models  []string
}

func newModelSet(current string, models []string) (*modelSet, error) {
	if len(models) == 0 {
		if current == "" {
			return nil, errors.New("no models configured")
		}
		models = []string{current}
	}
	if current == "" {
		current = models[len(models)-1]
	}
	if !slices.Contains(models, current) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, current)
	}
	return &modelSet{current: current, models: slices.Clone(models)}, nil
}

func (m *modelSet) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *modelSet) Models() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.models)
}

func (m *modelSet) SetModel(name string) error {
	if !slices.Contains(m.models, name) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	m.mu.Lock()
	m.current = name
	m.mu.Unlock()
	return nil
}
