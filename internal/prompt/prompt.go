// Package prompt assembles the text sent to the generative model from a stored
// template, an optional group background and a transcript.
package prompt

import (
	"fmt"
	"strings"

	"github.com/edgard/tgassist/internal/database"
)

// Labels used inside assembled prompts. They match the language of the seeded templates.
const (
	BackgroundLabel       = "群组背景信息："
	RecentMessagesLabel   = "最近消息："
	TodayMessagesLabel    = "今日消息："
	BackgroundPlaceholder = "暂无群组背景信息"
)

// Suggestion window bounds.
const (
	MinSuggestCount = 2
	MaxSuggestCount = 50
)

// Window selects which message section label is used.
type Window int

const (
	// WindowRecent labels the transcript as the recent messages.
	WindowRecent Window = iota
	// WindowToday labels the transcript as today's messages.
	WindowToday
)

func (w Window) label() string {
	if w == WindowToday {
		return TodayMessagesLabel
	}
	return RecentMessagesLabel
}

// FormatTranscript renders rows as "[timestamp] username: text", one per line.
func FormatTranscript(rows []database.Line) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", r.Timestamp, r.Username, r.MessageText))
	}
	return strings.Join(lines, "\n")
}

// Build assembles a prompt for kind with the recent-messages label.
func Build(kind database.AnalysisType, template, background, transcript string) string {
	return BuildWindow(kind, template, background, transcript, WindowRecent)
}

// BuildWindow assembles a prompt for kind. Background analyses use the template and
// transcript alone; the other kinds embed the background (or a placeholder) and a
// labelled transcript section.
func BuildWindow(kind database.AnalysisType, template, background, transcript string, w Window) string {
	if kind == database.AnalysisBackground {
		return template + "\n" + transcript
	}

	if strings.TrimSpace(background) == "" {
		background = BackgroundPlaceholder
	}

	var b strings.Builder
	b.WriteString(template)
	b.WriteString("\n\n")
	b.WriteString(BackgroundLabel)
	b.WriteString("\n")
	b.WriteString(background)
	b.WriteString("\n\n")
	b.WriteString(w.label())
	b.WriteString("\n")
	b.WriteString(transcript)
	return b.String()
}

// ClampSuggestCount bounds n to the accepted suggestion window. Zero or negative
// values fall back to the default.
func ClampSuggestCount(n int) int {
	switch {
	case n <= 0:
		return database.DefaultSuggestCount
	case n < MinSuggestCount:
		return MinSuggestCount
	case n > MaxSuggestCount:
		return MaxSuggestCount
	}
	return n
}
