package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/analysis"
	"github.com/edgard/tgassist/internal/bot/callback"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/i18n"
	"github.com/edgard/tgassist/internal/llm"
)

// NewCallbackHandler returns the handler for every inline keyboard button.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

// callbackHandler decodes the button payload and runs the chosen action.
type callbackHandler struct {
	deps HandlerDeps
}

// callbackRun is the state one callback action works with.
type callbackRun struct {
	ctx  context.Context
	b    *bot.Bot
	log  *slog.Logger
	q    *models.CallbackQuery
	msgs *i18n.Messages
	data callback.Data
}

func (r callbackRun) edit(text string, markup models.ReplyMarkup) {
	editText(r.ctx, r.b, r.log, r.q, text, markup)
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	log := h.deps.Logger.With("handler", "callback", "user_id", q.From.ID)
	msgs := h.deps.messages(ctx, q.From.ID)

	data, err := callback.Decode(q.Data)
	if err != nil {
		log.WarnContext(ctx, "Rejected callback payload", "data", q.Data, "error", err)
		answer(ctx, b, log, q, msgs.GenericError)
		return
	}
	answer(ctx, b, log, q, "")

	r := callbackRun{ctx: ctx, b: b, log: log.With("action", data.Action.String()), q: q, msgs: msgs, data: data}
	switch data.Action {
	case callback.Analyze:
		h.analyze(r)
	case callback.ActionsToday:
		h.actionsToday(r)
	case callback.ActionsSelect:
		text, markup := groupMenu(ctx, h.deps, msgs, callback.ActionsGroup, msgs.SelectActionsGroup)
		r.edit(text, markup)
	case callback.ActionsGroup:
		h.actionsGroup(r)
	case callback.Suggest:
		h.suggest(r)
	case callback.Delete:
		h.deleteGroup(r)
	case callback.SetPrompt:
		h.setPrompt(r)
	case callback.SetModel:
		h.setModel(r)
	case callback.Language:
		h.setLanguage(r)
	default:
		log.ErrorContext(ctx, "Callback action has no handler", "action", data.Action)
		r.edit(msgs.GenericError, nil)
	}
}

// group resolves the chat the button refers to, editing in the reason when it cannot.
func (h callbackHandler) group(r callbackRun) (*database.Group, bool) {
	chatID, err := r.data.ChatID()
	if err != nil {
		r.log.WarnContext(r.ctx, "Callback without a chat id", "arg", r.data.Arg)
		r.edit(r.msgs.GenericError, nil)
		return nil, false
	}
	g, err := h.deps.Store.GetGroupInfo(r.ctx, chatID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			r.log.ErrorContext(r.ctx, "Failed to load group", "chat_id", chatID, "error", err)
		}
		r.edit(r.msgs.GroupNotFound, nil)
		return nil, false
	}
	return g, true
}

// reportResult edits in a model result or the message for its error.
func (h callbackHandler) reportResult(r callbackRun, g *database.Group, res *analysis.Result, err error, tooFew string) {
	switch {
	case err == nil:
		r.edit(fmt.Sprintf(r.msgs.GroupResult, res.Group.Title, res.Content), nil)
	case errors.Is(err, analysis.ErrTooFewMessages):
		r.edit(fmt.Sprintf(tooFew, g.Title), nil)
	case errors.Is(err, database.ErrNotFound):
		r.edit(r.msgs.GroupNotFound, nil)
	default:
		r.log.ErrorContext(r.ctx, "Group request failed", "chat_key", g.ID, "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
	}
}

func (h callbackHandler) analyze(r callbackRun) {
	g, ok := h.group(r)
	if !ok {
		return
	}
	r.edit(fmt.Sprintf(r.msgs.Working, g.Title), nil)
	res, err := h.deps.Analysis.Background(r.ctx, g.ID)
	h.reportResult(r, g, res, err, r.msgs.TooFewToAnalyze)
}

func (h callbackHandler) actionsGroup(r callbackRun) {
	g, ok := h.group(r)
	if !ok {
		return
	}
	r.edit(fmt.Sprintf(r.msgs.Working, g.Title), nil)
	res, err := h.deps.Analysis.Actions(r.ctx, g.ID)
	h.reportResult(r, g, res, err, r.msgs.NoGroupMessages)
}

func (h callbackHandler) suggest(r callbackRun) {
	g, ok := h.group(r)
	if !ok {
		return
	}
	count, err := h.deps.Store.GetSuggestCount(r.ctx, r.q.From.ID)
	if err != nil {
		r.log.WarnContext(r.ctx, "Failed to load suggest count, using default", "error", err)
		count = database.DefaultSuggestCount
	}
	r.edit(fmt.Sprintf(r.msgs.Working, g.Title), nil)
	res, err := h.deps.Analysis.Suggest(r.ctx, g.ID, count)
	h.reportResult(r, g, res, err, r.msgs.TooFewToSuggest)
}

func (h callbackHandler) actionsToday(r callbackRun) {
	groups, err := h.deps.Store.GetAllGroups(r.ctx)
	if err != nil {
		r.log.ErrorContext(r.ctx, "Failed to list groups", "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
		return
	}
	if len(groups) == 0 {
		r.edit(r.msgs.NoGroups, nil)
		return
	}

	reports, err := h.deps.Analysis.ActionsToday(r.ctx)
	if err != nil {
		r.log.ErrorContext(r.ctx, "Today's action items failed", "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
		return
	}
	r.edit(formatTodayReport(r.msgs, reports), nil)
}

// formatTodayReport renders the per-group action items of today.
func formatTodayReport(msgs *i18n.Messages, reports []analysis.GroupReport) string {
	if len(reports) == 0 {
		return msgs.TodayReportEmpty
	}
	entries := make([]string, 0, len(reports))
	for _, rep := range reports {
		if rep.Err != nil {
			entries = append(entries, fmt.Sprintf(msgs.TodayReportFailed, rep.Group.Title))
			continue
		}
		entries = append(entries, fmt.Sprintf(msgs.TodayReportEntry, rep.Group.Title, rep.Content))
	}
	return msgs.TodayReportHeader + "\n" + strings.Join(entries, "\n")
}

func (h callbackHandler) deleteGroup(r callbackRun) {
	g, ok := h.group(r)
	if !ok {
		return
	}
	deleted, err := h.deps.Store.DeleteChatHistory(r.ctx, g.ID)
	switch {
	case err != nil:
		r.log.ErrorContext(r.ctx, "Failed to delete group records", "chat_key", g.ID, "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
	case !deleted:
		r.edit(fmt.Sprintf(r.msgs.DeleteFailed, g.Title), nil)
	default:
		h.deps.Backlog.Forget(g.ID)
		r.log.InfoContext(r.ctx, "Group records deleted", "chat_key", g.ID)
		r.edit(fmt.Sprintf(r.msgs.Deleted, g.Title), nil)
	}
}

// setPrompt shows the current prompt of the chosen type and arms the wizard.
func (h callbackHandler) setPrompt(r callbackRun) {
	promptType := database.AnalysisType(r.data.Arg)
	if !promptType.Valid() {
		r.edit(r.msgs.GenericError, nil)
		return
	}
	current, err := h.deps.Store.GetSystemPrompt(r.ctx, promptType)
	if err != nil {
		r.log.ErrorContext(r.ctx, "Failed to load prompt", "prompt_type", promptType, "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
		return
	}
	h.deps.Sessions.AwaitPrompt(r.q.From.ID, promptType)
	r.edit(fmt.Sprintf(r.msgs.CurrentPrompt, current), nil)
}

func (h callbackHandler) setModel(r callbackRun) {
	if err := h.deps.LLM.SetModel(r.data.Arg); err != nil {
		if errors.Is(err, llm.ErrUnknownModel) {
			r.edit(fmt.Sprintf(r.msgs.UnknownModel, r.data.Arg), nil)
			return
		}
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
		return
	}
	r.log.InfoContext(r.ctx, "Model switched", "model", r.data.Arg)
	r.edit(fmt.Sprintf(r.msgs.ModelChanged, r.data.Arg), nil)
}

func (h callbackHandler) setLanguage(r callbackRun) {
	lang := r.data.Arg
	if !i18n.Supported(lang) {
		r.edit(r.msgs.GenericError, nil)
		return
	}
	if err := h.deps.Store.SetUserLanguage(r.ctx, r.q.From.ID, lang); err != nil {
		r.log.ErrorContext(r.ctx, "Failed to store language", "language", lang, "error", err)
		r.edit(fmt.Sprintf(r.msgs.ErrorOccurred, err), nil)
		return
	}
	r.edit(i18n.Lookup(lang).LangChanged, nil)
}
