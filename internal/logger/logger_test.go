package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tc := range testCases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer message", 8, "a lon..."},
		{"你好世界再见", 5, "你好..."},
		{"abc", 2, "..."},
	}
	for _, tc := range testCases {
		if got := truncateString(tc.in, tc.max); got != tc.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestMiddlewareAttachesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "info", true)

	var seen string
	h := Middleware(log)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		seen = RequestID(ctx)
	})
	h(context.Background(), nil, &models.Update{
		ID:      7,
		Message: &models.Message{ID: 1, Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup}, Text: "hi"},
	})

	if seen == "" {
		t.Fatal("handler saw no request id")
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log output is not one JSON record: %v: %s", err, buf.String())
	}
	if rec["request_id"] != seen || rec["update_type"] != "message" {
		t.Errorf("log record = %v", rec)
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "info", false)

	h := Recover(log)(func(context.Context, *bot.Bot, *models.Update) {
		panic("boom")
	})
	h(context.Background(), nil, &models.Update{ID: 9})

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}
