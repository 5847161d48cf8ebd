package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/tgassist/internal/database"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	calls   atomic.Int32
	reply   func(prompt string) (string, error)
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeLLM) Generate(ctx context.Context, p string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.reply != nil {
		return f.reply(p)
	}
	return "ok", nil
}

func (f *fakeLLM) Model() string             { return "fake" }
func (f *fakeLLM) Models() []string          { return []string{"fake"} }
func (f *fakeLLM) SetModel(name string) error { return nil }

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var testDay = time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, client *fakeLLM) (*Service, database.Store) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "analysis.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil, "zh")
	svc := NewService(store, client, nil, Options{Timeout: 5 * time.Second, Location: time.UTC})
	svc.now = func() time.Time { return testDay }
	return svc, store
}

func seed(t *testing.T, store database.Store, chatID int64, n int, day time.Time) {
	t.Helper()
	msgs := make([]*database.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &database.Message{
			ChatID:      chatID,
			UserID:      int64(i + 1),
			Username:    fmt.Sprintf("user%d", i),
			MessageText: fmt.Sprintf("text %d", i),
			Timestamp:   day.Add(time.Duration(i) * time.Second).Format("2006-01-02T15:04:05"),
		})
	}
	if _, err := store.StoreMessagesBatch(context.Background(), msgs); err != nil {
		t.Fatalf("StoreMessagesBatch() error = %v", err)
	}
}

func TestBackground(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{reply: func(string) (string, error) { return "group summary", nil }}
	svc, store := newTestService(t, client)

	seed(t, store, -10, MinBackgroundMessages-1, testDay)
	if _, err := svc.Background(ctx, -10); !errors.Is(err, ErrTooFewMessages) {
		t.Fatalf("Background(4 messages) error = %v, want ErrTooFewMessages", err)
	}
	if client.calls.Load() != 0 {
		t.Fatal("model called for a too-small history")
	}

	seed(t, store, -10, MinBackgroundMessages+3, testDay.Add(time.Hour))
	res, err := svc.Background(ctx, 10)
	if err != nil {
		t.Fatalf("Background() error = %v", err)
	}
	if res.Content != "group summary" || res.Group.ID != 10 {
		t.Errorf("Background() = %+v", res)
	}

	stored, err := store.GetBackgroundAnalysis(ctx, -10)
	if err != nil || stored.Content != "group summary" {
		t.Errorf("stored background = %v, %v", stored, err)
	}
	if !strings.Contains(client.lastPrompt(), "user0: text 0") {
		t.Errorf("prompt does not contain the transcript: %q", client.lastPrompt())
	}
}

func TestBackgroundUnknownGroup(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, &fakeLLM{})

	if _, err := svc.Background(context.Background(), 404); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Background(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestBackgroundSerializedPerChat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{gate: make(chan struct{}), entered: make(chan struct{}, 4)}
	svc, store := newTestService(t, client)
	seed(t, store, -20, 10, testDay)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = svc.Background(ctx, -20)
	}()
	<-client.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[1] = svc.Background(ctx, 20)
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(200 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
	}
	if n := client.calls.Load(); n != 1 {
		t.Errorf("model calls = %d, want 1", n)
	}
}

func TestMaybeAutoAnalyze(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{}
	svc, store := newTestService(t, client)

	seed(t, store, -30, database.AutoAnalyzeThreshold-1, testDay)
	fired, err := svc.MaybeAutoAnalyze(ctx, -30)
	if err != nil || fired {
		t.Fatalf("MaybeAutoAnalyze(19) = (%v, %v), want (false, nil)", fired, err)
	}

	seed(t, store, -30, 1, testDay.Add(time.Hour))
	fired, err = svc.MaybeAutoAnalyze(ctx, -30)
	if err != nil || !fired {
		t.Fatalf("MaybeAutoAnalyze(20) = (%v, %v), want (true, nil)", fired, err)
	}

	fired, err = svc.MaybeAutoAnalyze(ctx, -30)
	if err != nil || fired {
		t.Fatalf("MaybeAutoAnalyze(after analysis) = (%v, %v), want (false, nil)", fired, err)
	}
}

func TestSuggestWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{reply: func(string) (string, error) { return "say hi", nil }}
	svc, store := newTestService(t, client)

	seed(t, store, -40, 1, testDay)
	if _, err := svc.Suggest(ctx, -40, 3); !errors.Is(err, ErrTooFewMessages) {
		t.Fatalf("Suggest(1 message) error = %v, want ErrTooFewMessages", err)
	}

	seed(t, store, -40, 5, testDay.Add(time.Hour))
	res, err := svc.Suggest(ctx, -40, 3)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if res.Content != "say hi" {
		t.Errorf("Suggest() content = %q", res.Content)
	}

	p := client.lastPrompt()
	if !strings.Contains(p, "暂无群组背景信息") {
		t.Errorf("prompt lacks background placeholder: %q", p)
	}
	// Only the last three messages of the second batch are in the window.
	if strings.Count(p, "\n[") != 3 || !strings.Contains(p, "user4: text 4") || strings.Contains(p, "user1: text 1") {
		t.Errorf("prompt window is wrong: %q", p)
	}
}

func TestActionsUsesBackground(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{reply: func(string) (string, error) { return "1. ship it", nil }}
	svc, store := newTestService(t, client)
	seed(t, store, -50, 3, testDay)

	if _, err := store.StoreAnalysis(ctx, -50, database.AnalysisBackground, "a release team"); err != nil {
		t.Fatalf("StoreAnalysis() error = %v", err)
	}
	res, err := svc.Actions(ctx, 50)
	if err != nil {
		t.Fatalf("Actions() error = %v", err)
	}
	if res.Content != "1. ship it" {
		t.Errorf("Actions() content = %q", res.Content)
	}
	if p := client.lastPrompt(); !strings.Contains(p, "群组背景信息：\na release team") || !strings.Contains(p, "最近消息：") {
		t.Errorf("actions prompt = %q", p)
	}
}

func TestActionsToday(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &fakeLLM{reply: func(p string) (string, error) {
		switch {
		case strings.Contains(p, "from-a"):
			return "1. call Bob", nil
		case strings.Contains(p, "from-b"):
			return "没有待办事项", nil
		default:
			return "", errors.New("quota exceeded")
		}
	}}
	svc, store := newTestService(t, client)

	add := func(chatID int64, text string, ts time.Time) {
		t.Helper()
		err := store.StoreMessage(ctx, &database.Message{
			ChatID: chatID, UserID: 1, Username: "u", MessageText: text,
			Timestamp: ts.Format("2006-01-02T15:04:05"),
		})
		if err != nil {
			t.Fatalf("StoreMessage() error = %v", err)
		}
	}
	add(-1, "from-a", testDay)
	add(-2, "from-b", testDay)
	add(-3, "from-c", testDay)
	add(-4, "yesterday", testDay.AddDate(0, 0, -1))

	reports, err := svc.ActionsToday(ctx)
	if err != nil {
		t.Fatalf("ActionsToday() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("ActionsToday() = %d reports, want 2: %+v", len(reports), reports)
	}
	if reports[0].Group.ID != 1 || reports[0].Content != "1. call Bob" {
		t.Errorf("first report = %+v", reports[0])
	}
	if reports[1].Group.ID != 3 || !errors.Is(reports[1].Err, ErrModel) {
		t.Errorf("second report = %+v, want model error for group 3", reports[1])
	}
	if p := client.lastPrompt(); !strings.Contains(p, "今日消息：") {
		t.Errorf("today prompt lacks today label: %q", p)
	}
	if client.calls.Load() != 3 {
		t.Errorf("model calls = %d, want 3 (yesterday's group skipped)", client.calls.Load())
	}
}
