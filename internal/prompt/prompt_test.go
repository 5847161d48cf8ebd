package prompt_test

import (
	"testing"

	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/prompt"
)

func TestFormatTranscript(t *testing.T) {
	t.Parallel()

	rows := []database.Line{
		{Username: "alice", MessageText: "hi", Timestamp: "2024-01-01T10:00:00"},
		{Username: "bob", MessageText: "hello there", Timestamp: "2024-01-01T10:01:00"},
	}
	want := "[2024-01-01T10:00:00] alice: hi\n[2024-01-01T10:01:00] bob: hello there"
	if got := prompt.FormatTranscript(rows); got != want {
		t.Errorf("FormatTranscript() = %q, want %q", got, want)
	}
	if got := prompt.FormatTranscript(nil); got != "" {
		t.Errorf("FormatTranscript(nil) = %q, want empty", got)
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		kind       database.AnalysisType
		background string
		window     prompt.Window
		expected   string
	}{
		{
			name:     "background ignores stored background",
			kind:     database.AnalysisBackground,
			expected: "T\n[t] u: x",
		},
		{
			name:       "actions with background",
			kind:       database.AnalysisActions,
			background: "B",
			expected:   "T\n\n群组背景信息：\nB\n\n最近消息：\n[t] u: x",
		},
		{
			name:     "suggestion falls back to placeholder",
			kind:     database.AnalysisSuggestion,
			expected: "T\n\n群组背景信息：\n暂无群组背景信息\n\n最近消息：\n[t] u: x",
		},
		{
			name:       "today window",
			kind:       database.AnalysisActions,
			background: "B",
			window:     prompt.WindowToday,
			expected:   "T\n\n群组背景信息：\nB\n\n今日消息：\n[t] u: x",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := prompt.BuildWindow(tc.kind, "T", tc.background, "[t] u: x", tc.window)
			if got != tc.expected {
				t.Errorf("BuildWindow() = %q, want %q", got, tc.expected)
			}
		})
	}

	if a, b := prompt.Build(database.AnalysisActions, "T", "B", "x"),
		prompt.BuildWindow(database.AnalysisActions, "T", "B", "x", prompt.WindowRecent); a != b {
		t.Errorf("Build() = %q, want recent window %q", a, b)
	}
}

func TestClampSuggestCount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   int
		want int
	}{
		{in: 0, want: database.DefaultSuggestCount},
		{in: -3, want: database.DefaultSuggestCount},
		{in: 1, want: 2},
		{in: 2, want: 2},
		{in: 17, want: 17},
		{in: 50, want: 50},
		{in: 51, want: 50},
	}
	for _, tc := range testCases {
		if got := prompt.ClampSuggestCount(tc.in); got != tc.want {
			t.Errorf("ClampSuggestCount(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
