package handlers

import (
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/bot/callback"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/i18n"
)

type row = []models.InlineKeyboardButton

// keyboard builds a one-button-per-row keyboard. Buttons whose payload does not
// fit the callback limit are left out.
func keyboard(buttons ...button) *models.InlineKeyboardMarkup {
	kb := &models.InlineKeyboardMarkup{InlineKeyboard: make([]row, 0, len(buttons))}
	for _, btn := range buttons {
		data, err := callback.Encode(btn.action, btn.arg)
		if err != nil {
			continue
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, row{{Text: btn.text, CallbackData: data}})
	}
	return kb
}

type button struct {
	text   string
	action callback.Action
	arg    string
}

func groupKeyboard(groups []database.Group, action callback.Action) *models.InlineKeyboardMarkup {
	buttons := make([]button, 0, len(groups))
	for _, g := range groups {
		buttons = append(buttons, button{text: g.Title, action: action, arg: strconv.FormatInt(g.ID, 10)})
	}
	return keyboard(buttons...)
}

func actionsModeKeyboard(msgs *i18n.Messages) *models.InlineKeyboardMarkup {
	return keyboard(
		button{text: msgs.ActionsTodayButton, action: callback.ActionsToday},
		button{text: msgs.ActionsPickButton, action: callback.ActionsSelect},
	)
}

func promptKeyboard(msgs *i18n.Messages) *models.InlineKeyboardMarkup {
	buttons := make([]button, 0, len(database.AnalysisTypes))
	for _, t := range database.AnalysisTypes {
		buttons = append(buttons, button{text: msgs.PromptButton[string(t)], action: callback.SetPrompt, arg: string(t)})
	}
	return keyboard(buttons...)
}

func modelKeyboard(available []string, current string) *models.InlineKeyboardMarkup {
	buttons := make([]button, 0, len(available))
	for _, m := range available {
		text := m
		if m == current {
			text = m + " ✓"
		}
		buttons = append(buttons, button{text: text, action: callback.SetModel, arg: m})
	}
	return keyboard(buttons...)
}

func languageKeyboard() *models.InlineKeyboardMarkup {
	buttons := make([]button, 0, len(i18n.Languages))
	for _, lang := range i18n.Languages {
		buttons = append(buttons, button{text: i18n.Lookup(lang).LanguageName, action: callback.Language, arg: lang})
	}
	return keyboard(buttons...)
}
