package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/analysis"
	"github.com/edgard/tgassist/internal/config"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/i18n"
	"github.com/edgard/tgassist/internal/importer"
	"github.com/edgard/tgassist/internal/llm"
	"github.com/edgard/tgassist/internal/session"
)

const (
	ownerID    = int64(1001)
	strangerID = int64(2002)
	botID      = int64(3003)
	token      = "test-token"
)

type apiCall struct {
	method string
	params map[string]string
}

// fakeTelegram answers Bot API calls and records them.
type fakeTelegram struct {
	mu           sync.Mutex
	calls        []apiCall
	memberStatus string
	files        map[string]string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		f.mu.Lock()
		body, ok := f.files[path.Base(r.URL.Path)]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
		return
	}

	method := path.Base(r.URL.Path)
	params := readParams(r)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	status := f.memberStatus
	f.mu.Unlock()

	var result any = true
	switch method {
	case "sendMessage", "editMessageText":
		chatID, _ := strconv.ParseInt(params["chat_id"], 10, 64)
		result = map[string]any{"message_id": 100, "date": 0, "chat": map[string]any{"id": chatID, "type": "private"}}
	case "getChatMember":
		result = map[string]any{"status": status, "user": map[string]any{"id": ownerID, "is_bot": false, "first_name": "Owner"}}
	case "getFile":
		result = map[string]any{"file_id": params["file_id"], "file_unique_id": "u1", "file_path": "documents/" + params["file_id"]}
	case "getMe":
		result = map[string]any{"id": botID, "is_bot": true, "first_name": "TGAssist", "username": "tgassist_bot"}
	case "getChat":
		chatID, _ := strconv.ParseInt(params["chat_id"], 10, 64)
		result = map[string]any{"id": chatID, "type": "supergroup", "title": "Fresh Title"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func readParams(r *http.Request) map[string]string {
	out := make(map[string]string)
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				out[k] = v[0]
			}
		}
	case strings.HasPrefix(ct, "application/json"):
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err == nil {
			for k, v := range m {
				if s, ok := v.(string); ok {
					out[k] = s
					continue
				}
				raw, _ := json.Marshal(v)
				out[k] = string(raw)
			}
		}
	default:
		if err := r.ParseForm(); err == nil {
			for k, v := range r.Form {
				out[k] = v[0]
			}
		}
	}
	return out
}

func (f *fakeTelegram) called(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// lastText returns the text of the latest sendMessage or editMessageText call.
func (f *fakeTelegram) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if c := f.calls[i]; c.method == "sendMessage" || c.method == "editMessageText" {
			return c.params["text"]
		}
	}
	return ""
}

func (f *fakeTelegram) setMemberStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberStatus = status
}

func (f *fakeTelegram) addFile(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = body
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeLLM struct {
	mu      sync.Mutex
	current string
	reply   string
}

func (f *fakeLLM) Generate(context.Context, string) (string, error) { return f.reply, nil }

func (f *fakeLLM) Model() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeLLM) Models() []string { return []string{"model-a", "model-b"} }

func (f *fakeLLM) SetModel(name string) error {
	if name != "model-a" && name != "model-b" {
		return fmt.Errorf("%w: %s", llm.ErrUnknownModel, name)
	}
	f.mu.Lock()
	f.current = name
	f.mu.Unlock()
	return nil
}

type harness struct {
	tg       *fakeTelegram
	b        *bot.Bot
	deps     HandlerDeps
	handlers map[string]RegisteredHandler
	fallback bot.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tg := &fakeTelegram{memberStatus: "member", files: make(map[string]string)}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New(token, bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("bot.New() error = %v", err)
	}

	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, log, i18n.Chinese)
	client := &fakeLLM{current: "model-a", reply: "model answer"}
	cfg := &config.Config{
		Telegram: config.TelegramConfig{Token: token, OwnerID: ownerID},
		Bot:      config.BotConfig{DefaultLanguage: i18n.Chinese, Timezone: "UTC"},
	}

	deps := HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		LLM:        client,
		Analysis:   analysis.NewService(store, client, log, analysis.Options{Timeout: 5 * time.Second, HistoryLimit: 100, ActionsWindow: 50, Location: time.UTC}),
		Importer:   importer.New(store, log),
		Sessions:   session.NewStore(time.Minute),
		Backlog:    NewBacklog(10),
		HTTPClient: srv.Client(),
		FileServer: srv.URL,
	}
	return &harness{tg: tg, b: b, deps: deps, handlers: RegisterAllCommands(deps), fallback: NewMessageHandler(deps)}
}

// command runs a registered command through its middleware chain.
func (h *harness) command(t *testing.T, name string, update *models.Update) {
	t.Helper()
	reg, ok := h.handlers[name]
	if !ok {
		t.Fatalf("handler %q not registered", name)
	}
	handler := reg.Handler
	for i := len(reg.Middleware) - 1; i >= 0; i-- {
		handler = reg.Middleware[i](handler)
	}
	handler(context.Background(), h.b, update)
}

func (h *harness) press(t *testing.T, userID int64, data string) {
	t.Helper()
	h.command(t, "callback", &models.Update{ID: 2, CallbackQuery: &models.CallbackQuery{
		ID:      "cb",
		From:    models.User{ID: userID},
		Data:    data,
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{ID: 55, Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate}}},
	}})
}

func (h *harness) seed(t *testing.T, chatID int64, n int) {
	t.Helper()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	msgs := make([]*database.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &database.Message{
			ChatID: chatID, UserID: 1, Username: "alice", MessageText: fmt.Sprintf("line %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(database.TimestampLayout),
		})
	}
	if _, err := h.deps.Store.StoreMessagesBatch(context.Background(), msgs); err != nil {
		t.Fatalf("StoreMessagesBatch() error = %v", err)
	}
	if err := h.deps.Store.UpdateChatInfo(context.Background(), chatID, "Team"); err != nil {
		t.Fatalf("UpdateChatInfo() error = %v", err)
	}
}

func privateText(userID int64, text string) *models.Update {
	return &models.Update{ID: 1, Message: &models.Message{
		ID:   10,
		From: &models.User{ID: userID, FirstName: "User"},
		Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
		Text: text,
	}}
}

func groupText(chatID, userID int64, text string) *models.Update {
	return &models.Update{ID: 3, Message: &models.Message{
		ID:   11,
		From: &models.User{ID: userID, Username: "bob"},
		Chat: models.Chat{ID: chatID, Type: models.ChatTypeSupergroup, Title: "Team"},
		Date: int(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC).Unix()),
		Text: text,
	}}
}

var zh = i18n.Lookup(i18n.Chinese)

func TestOwnerOnlyRefusesStrangers(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.command(t, "/analyze", privateText(strangerID, "/analyze"))
	if got := h.tg.lastText(); got != zh.NotAuthorized {
		t.Errorf("reply = %q, want refusal", got)
	}

	h.press(t, strangerID, "dl:5")
	answers := h.tg.called("answerCallbackQuery")
	if len(answers) != 1 || answers[0].params["text"] != zh.NotAuthorized {
		t.Errorf("callback answers = %+v, want one refusal alert", answers)
	}
}

func TestGroupCommandsRequireAdmin(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.command(t, "/help", groupText(-100, ownerID, "/help"))
	if got := h.tg.lastText(); got != zh.GroupAdminRequired {
		t.Errorf("reply = %q, want admin refusal", got)
	}

	h.tg.setMemberStatus("administrator")
	h.command(t, "/analyze", groupText(-100, ownerID, "/analyze"))
	if got := h.tg.lastText(); got != zh.PrivateOnly {
		t.Errorf("reply = %q, want private-only notice", got)
	}

	h.command(t, "/help", groupText(-100, ownerID, "/help"))
	if got := h.tg.lastText(); got != zh.Help {
		t.Errorf("reply = %q, want help", got)
	}
}

func TestSetPromptWizard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.command(t, "/setprompt", privateText(ownerID, "/setprompt"))
	sent := h.tg.called("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0].params["reply_markup"], `"sp:actions"`) {
		t.Fatalf("setprompt reply = %+v", sent)
	}

	h.press(t, ownerID, "sp:actions")
	if got := h.tg.lastText(); !strings.HasPrefix(got, "当前的提示词是：") {
		t.Errorf("prompt preview = %q", got)
	}

	h.fallback(ctx, h.b, privateText(ownerID, "X"))
	if got := h.tg.lastText(); got != zh.PromptUpdated {
		t.Errorf("reply = %q, want prompt updated", got)
	}
	if p, _ := h.deps.Store.GetSystemPrompt(ctx, database.AnalysisActions); p != "X" {
		t.Errorf("actions prompt = %q, want X", p)
	}

	h.press(t, ownerID, "sp:actions")
	h.command(t, "/cancel", privateText(ownerID, "/cancel"))
	if got := h.tg.lastText(); got != zh.PromptCancelled {
		t.Errorf("reply = %q, want cancelled", got)
	}
	h.fallback(ctx, h.b, privateText(ownerID, "Y"))
	if p, _ := h.deps.Store.GetSystemPrompt(ctx, database.AnalysisActions); p != "X" {
		t.Errorf("actions prompt after cancel = %q, want X", p)
	}

	h.command(t, "/cancel", privateText(ownerID, "/cancel"))
	if got := h.tg.lastText(); got != zh.NothingToCancel {
		t.Errorf("second cancel reply = %q", got)
	}
}

func TestSetCount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	testCases := []struct {
		text string
		want string
	}{
		{text: "/setcount 100", want: zh.SetCountTooHigh},
		{text: "/setcount 1", want: zh.SetCountTooLow},
		{text: "/setcount abc", want: zh.SetCountUsage},
		{text: "/setcount", want: zh.SetCountUsage},
		{text: "/setcount 7", want: fmt.Sprintf(zh.SetCountDone, 7)},
	}
	for _, tc := range testCases {
		h.command(t, "/setcount", privateText(ownerID, tc.text))
		if got := h.tg.lastText(); got != tc.want {
			t.Errorf("%q reply = %q, want %q", tc.text, got, tc.want)
		}
	}
	if n, _ := h.deps.Store.GetSuggestCount(context.Background(), ownerID); n != 7 {
		t.Errorf("stored count = %d, want 7", n)
	}
}

func TestSuggestCallback(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seed(t, -700, 3)
	h.seed(t, -800, 1)

	h.command(t, "/setcount", privateText(ownerID, "/setcount 3"))
	h.press(t, ownerID, "sg:700")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.GroupResult, "Team", "model answer") {
		t.Errorf("suggest reply = %q", got)
	}

	h.press(t, ownerID, "sg:800")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.TooFewToSuggest, "Team") {
		t.Errorf("suggest reply for tiny group = %q", got)
	}

	h.press(t, ownerID, "sg:999")
	if got := h.tg.lastText(); got != zh.GroupNotFound {
		t.Errorf("suggest reply for unknown group = %q", got)
	}
}

func TestAnalyzeAndDeleteCallbacks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, -600, 6)

	h.command(t, "/analyze", privateText(ownerID, "/analyze"))
	if !strings.Contains(h.tg.called("sendMessage")[0].params["reply_markup"], `"an:600"`) {
		t.Errorf("analyze keyboard = %+v", h.tg.called("sendMessage"))
	}

	h.press(t, ownerID, "an:600")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.GroupResult, "Team", "model answer") {
		t.Errorf("analyze reply = %q", got)
	}
	if a, err := h.deps.Store.GetBackgroundAnalysis(ctx, -600); err != nil || a.Content != "model answer" {
		t.Errorf("stored background = %v, %v", a, err)
	}

	h.press(t, ownerID, "dl:600")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.Deleted, "Team") {
		t.Errorf("delete reply = %q", got)
	}
	h.command(t, "/delete", privateText(ownerID, "/delete"))
	if got := h.tg.lastText(); got != zh.NoGroups {
		t.Errorf("delete menu after delete = %q", got)
	}
}

func TestSetModelAndLanguage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.command(t, "/setmodel", privateText(ownerID, "/setmodel"))
	sent := h.tg.called("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0].params["reply_markup"], "model-a ✓") {
		t.Fatalf("setmodel reply = %+v", sent)
	}

	h.press(t, ownerID, "sm:model-b")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.ModelChanged, "model-b") || h.deps.LLM.Model() != "model-b" {
		t.Errorf("setmodel callback = %q, model %q", got, h.deps.LLM.Model())
	}
	h.press(t, ownerID, "sm:nope")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.UnknownModel, "nope") {
		t.Errorf("unknown model reply = %q", got)
	}

	h.press(t, ownerID, "lg:en")
	en := i18n.Lookup(i18n.English)
	if got := h.tg.lastText(); got != en.LangChanged {
		t.Errorf("lang reply = %q", got)
	}
	h.command(t, "/help", privateText(ownerID, "/help"))
	if got := h.tg.lastText(); got != en.Help {
		t.Errorf("help after switching language = %q", got)
	}
}

func TestArchiveGroupMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t)
	h.fallback(ctx, h.b, groupText(-100500, 42, "hello team"))
	exists, n, err := h.deps.Store.CheckChatExists(ctx, 100500)
	if err != nil || !exists || n != 1 {
		t.Fatalf("CheckChatExists() = (%v, %d, %v), want one message", exists, n, err)
	}
	lines, _ := h.deps.Store.GetRecentMessages(ctx, -100500, 5)
	if len(lines) != 1 || lines[0].Username != "bob" || lines[0].Timestamp != "2024-05-02T09:00:00" {
		t.Errorf("archived lines = %+v", lines)
	}
	if chats := h.deps.Backlog.Snapshot(); len(chats) != 1 || len(chats[0].Messages) != 1 {
		t.Errorf("backlog = %+v", chats)
	}

	absent := newHarness(t)
	absent.tg.setMemberStatus("left")
	absent.fallback(ctx, absent.b, groupText(-100500, 42, "hello team"))
	if exists, _, _ := absent.deps.Store.CheckChatExists(ctx, 100500); exists {
		t.Error("message archived although the owner is not in the group")
	}
}

func TestBotAddedToGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	joined := func(by int64) *models.Update {
		u := groupText(-42, by, "")
		u.Message.NewChatMembers = []models.User{{ID: botID, IsBot: true, FirstName: "TGAssist"}}
		return u
	}

	h.fallback(ctx, h.b, joined(strangerID))
	if len(h.tg.called("leaveChat")) != 1 {
		t.Errorf("bot did not leave a group it was added to by a stranger")
	}

	h.tg.reset()
	h.fallback(ctx, h.b, joined(ownerID))
	if len(h.tg.called("leaveChat")) != 0 || h.tg.lastText() != zh.BotJoined {
		t.Errorf("owner add: calls = %+v", h.tg.called("sendMessage"))
	}
}

func TestImportDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.tg.addFile("export1", `{"id": -100555, "name": "Imported", "messages": [
		{"type": "message", "date": "2024-01-01T10:00:00", "from": "A", "from_id": "user1", "text": "one"},
		{"type": "message", "date": "2024-01-01T10:01:00", "from": "B", "from_id": "user2", "text": "two"},
		{"type": "message", "date": "2024-01-01T10:02:00", "from": "A", "from_id": "user1", "text": "three"}
	]}`)
	h.tg.addFile("broken", `{"id": 1, "name": "x"}`)

	doc := func(fileID, name string) *models.Update {
		u := privateText(ownerID, "")
		u.Message.Document = &models.Document{FileID: fileID, FileName: name}
		return u
	}

	h.fallback(ctx, h.b, doc("export1", "result.json"))
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.ImportDone, "Imported", 3, 3) {
		t.Errorf("import status = %q", got)
	}
	if _, n, _ := h.deps.Store.CheckChatExists(ctx, 100555); n != 3 {
		t.Errorf("imported messages = %d, want 3", n)
	}

	h.fallback(ctx, h.b, doc("export1", "result.json"))
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.ImportDone, "Imported", 3, 0) {
		t.Errorf("repeat import status = %q", got)
	}

	h.fallback(ctx, h.b, doc("broken", "broken.json"))
	if got := h.tg.lastText(); got != zh.ImportNoMessages {
		t.Errorf("broken import status = %q", got)
	}

	h.fallback(ctx, h.b, doc("export1", "notes.txt"))
	if got := h.tg.lastText(); got != zh.ImportWrongExt {
		t.Errorf("wrong extension reply = %q", got)
	}
}

func TestSyncRefreshesTitlesAndReplaysBacklog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.command(t, "/sync", privateText(ownerID, "/sync"))
	if got := h.tg.lastText(); got != zh.SyncNothing {
		t.Errorf("empty sync = %q", got)
	}

	h.seed(t, -900, 2)
	h.deps.Backlog.Record(&database.Message{
		ChatID: -901, UserID: 5, Username: "eve", MessageText: "missed", Timestamp: "2024-05-03T10:00:00",
	}, "Backlog Group")

	h.command(t, "/sync", privateText(ownerID, "/sync"))
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.SyncDone, 1, 1) {
		t.Errorf("sync result = %q", got)
	}
	g, err := h.deps.Store.GetGroupInfo(ctx, 900)
	if err != nil || g.Title != "Fresh Title" {
		t.Errorf("refreshed group = %v, %v", g, err)
	}
	if exists, _, _ := h.deps.Store.CheckChatExists(ctx, 901); !exists {
		t.Error("backlog message was not stored")
	}
}

func TestActionsToday(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.press(t, ownerID, "at:")
	if got := h.tg.lastText(); got != zh.NoGroups {
		t.Errorf("actions today without groups = %q", got)
	}

	h.seed(t, -300, 2)
	h.press(t, ownerID, "at:")
	if got := h.tg.lastText(); got != zh.TodayReportEmpty {
		t.Errorf("actions today with old messages only = %q", got)
	}

	h.press(t, ownerID, "as:")
	sent := h.tg.called("editMessageText")
	if last := sent[len(sent)-1]; !strings.Contains(last.params["reply_markup"], `"ag:300"`) {
		t.Errorf("group picker = %+v", last)
	}

	h.press(t, ownerID, "ag:300")
	if got := h.tg.lastText(); got != fmt.Sprintf(zh.GroupResult, "Team", "model answer") {
		t.Errorf("group actions = %q", got)
	}
}

func TestBadCallbackPayload(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.press(t, ownerID, `{"action":"analyze"}`)
	answers := h.tg.called("answerCallbackQuery")
	if len(answers) != 1 || answers[0].params["text"] != zh.GenericError {
		t.Errorf("answers = %+v", answers)
	}
	if len(h.tg.called("editMessageText")) != 0 {
		t.Error("malformed payload edited the message")
	}
}

func TestBotCommands(t *testing.T) {
	t.Parallel()

	cmds := BotCommands()
	if len(cmds) != len(commands) {
		t.Fatalf("BotCommands() = %d entries, want %d", len(cmds), len(commands))
	}
	reg := RegisterAllCommands(HandlerDeps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	for _, c := range cmds {
		if _, ok := reg["/"+c.Command]; !ok {
			t.Errorf("command %q listed but not registered", c.Command)
		}
	}
	if _, ok := reg["callback"]; !ok {
		t.Error("callback dispatcher not registered")
	}
}
