// Package analysis runs the on-demand and automatic model analyses over archived
// chat history and persists their results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/llm"
	"github.com/edgard/tgassist/internal/prompt"
)

var (
	// ErrTooFewMessages is returned when a chat lacks the messages an analysis needs.
	ErrTooFewMessages = errors.New("too few messages")
	// ErrModel wraps failures of the generative model.
	ErrModel = errors.New("model call failed")
)

const (
	// MinBackgroundMessages is the smallest history a manual background analysis accepts.
	MinBackgroundMessages = 5
	// MinSuggestMessages is the smallest window a reply suggestion accepts.
	MinSuggestMessages = 2

	// noActionsPrefix marks model answers that report no action items.
	noActionsPrefix = "没有"
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Timeout       time.Duration
	HistoryLimit  int
	ActionsWindow int
	Location      *time.Location
}

// Result is the model output for one group.
type Result struct {
	Group   database.Group
	Content string
}

// GroupReport is one entry of the all-groups action report. Err is set when the
// group failed and Content is empty.
type GroupReport struct {
	Group   database.Group
	Content string
	Err     error
}

// Service runs analyses. Background analyses of one chat are serialized so concurrent
// triggers share a single model call and a single stored result.
type Service struct {
	store database.Store
	llm   llm.Client
	log   *slog.Logger
	opts  Options
	now   func() time.Time

	flight singleflight.Group
}

// NewService creates an analysis service.
func NewService(store database.Store, client llm.Client, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = database.DefaultHistoryLimit
	}
	if opts.ActionsWindow <= 0 {
		opts.ActionsWindow = 50
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		store: store,
		llm:   client,
		log:   logger.With("component", "analysis"),
		opts:  opts,
		now:   time.Now,
	}
}

// Background analyses the chat history, stores the result and returns it.
func (s *Service) Background(ctx context.Context, chatID int64) (*Result, error) {
	group, err := s.store.GetGroupInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}
	content, err := s.background(ctx, chatID, MinBackgroundMessages)
	if err != nil {
		return nil, err
	}
	return &Result{Group: *group, Content: content}, nil
}

// MaybeAutoAnalyze runs a background analysis when the trigger rule fires.
func (s *Service) MaybeAutoAnalyze(ctx context.Context, chatID int64) (bool, error) {
	fire, err := s.store.CheckAndAnalyzeGroup(ctx, chatID)
	if err != nil || !fire {
		return false, err
	}

	s.log.InfoContext(ctx, "Auto analysis triggered", "chat_id", chatID)
	if _, err := s.background(ctx, chatID, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) background(ctx context.Context, chatID int64, minMessages int) (string, error) {
	key := strconv.FormatInt(database.KeyOf(chatID).Int64(), 10)

	// The shared call outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.flight.Do(key, func() (any, error) {
		lines, err := s.store.GetChatHistory(flightCtx, chatID, s.opts.HistoryLimit)
		if err != nil {
			return "", err
		}
		if len(lines) < minMessages {
			return "", fmt.Errorf("%w: %d of %d", ErrTooFewMessages, len(lines), minMessages)
		}

		template, err := s.store.GetSystemPrompt(flightCtx, database.AnalysisBackground)
		if err != nil {
			return "", fmt.Errorf("failed to load background prompt: %w", err)
		}

		content, err := s.generate(flightCtx, prompt.Build(database.AnalysisBackground, template, "", prompt.FormatTranscript(lines)))
		if err != nil {
			return "", err
		}
		if _, err := s.store.StoreAnalysis(flightCtx, chatID, database.AnalysisBackground, content); err != nil {
			return "", err
		}
		return content, nil
	})
	if shared {
		s.log.DebugContext(ctx, "Background analysis shared with a concurrent caller", "chat_key", key)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Actions extracts action items from the chat's recent window.
func (s *Service) Actions(ctx context.Context, chatID int64) (*Result, error) {
	group, err := s.store.GetGroupInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.GetRecentMessages(ctx, chatID, s.opts.ActionsWindow)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: chat %d is empty", ErrTooFewMessages, chatID)
	}

	content, err := s.withContext(ctx, database.AnalysisActions, chatID, lines, prompt.WindowRecent)
	if err != nil {
		return nil, err
	}
	return &Result{Group: *group, Content: content}, nil
}

// ActionsToday extracts today's action items for every group with messages today.
// Groups whose answer is empty or reports no action items are left out; a failing
// group is reported without aborting the others.
func (s *Service) ActionsToday(ctx context.Context) ([]GroupReport, error) {
	groups, err := s.store.GetAllGroups(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.opts.Location)
	var reports []GroupReport
	for _, g := range groups {
		lines, err := s.store.GetTodayMessages(ctx, g.ID, today)
		if err != nil {
			reports = append(reports, GroupReport{Group: g, Err: err})
			continue
		}
		if len(lines) == 0 {
			continue
		}

		content, err := s.withContext(ctx, database.AnalysisActions, g.ID, lines, prompt.WindowToday)
		if err != nil {
			s.log.WarnContext(ctx, "Action items failed for group", "chat_key", g.ID, "error", err)
			reports = append(reports, GroupReport{Group: g, Err: err})
			continue
		}
		if content == "" || strings.HasPrefix(content, noActionsPrefix) {
			continue
		}
		reports = append(reports, GroupReport{Group: g, Content: content})
	}
	return reports, nil
}

// Suggest proposes a reply from the latest count messages of the chat.
func (s *Service) Suggest(ctx context.Context, chatID int64, count int) (*Result, error) {
	group, err := s.store.GetGroupInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.GetRecentMessages(ctx, chatID, prompt.ClampSuggestCount(count))
	if err != nil {
		return nil, err
	}
	if len(lines) < MinSuggestMessages {
		return nil, fmt.Errorf("%w: %d of %d", ErrTooFewMessages, len(lines), MinSuggestMessages)
	}

	content, err := s.withContext(ctx, database.AnalysisSuggestion, chatID, lines, prompt.WindowRecent)
	if err != nil {
		return nil, err
	}
	return &Result{Group: *group, Content: content}, nil
}

// withContext runs a kind that embeds the stored background and persists the answer.
func (s *Service) withContext(ctx context.Context, kind database.AnalysisType, chatID int64, lines []database.Line, w prompt.Window) (string, error) {
	template, err := s.store.GetSystemPrompt(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("failed to load %s prompt: %w", kind, err)
	}

	var background string
	a, err := s.store.GetBackgroundAnalysis(ctx, chatID)
	switch {
	case err == nil:
		background = a.Content
	case !errors.Is(err, database.ErrNotFound):
		return "", err
	}

	content, err := s.generate(ctx, prompt.BuildWindow(kind, template, background, prompt.FormatTranscript(lines), w))
	if err != nil {
		return "", err
	}
	if _, err := s.store.StoreAnalysis(ctx, chatID, kind, content); err != nil {
		return "", err
	}
	return content, nil
}

func (s *Service) generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := s.llm.Generate(ctx, text)
	if err != nil {
		s.log.ErrorContext(ctx, "Model call failed", "model", s.llm.Model(), "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("%w: %v", ErrModel, err)
	}
	s.log.DebugContext(ctx, "Model call finished", "model", s.llm.Model(), "duration", time.Since(start))
	return out, nil
}
