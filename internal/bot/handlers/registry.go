package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a handler with its match rule and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// command describes one slash command.
type command struct {
	name        string
	description string
	build       func(HandlerDeps) tgbot.HandlerFunc
	privateOnly bool
}

var commands = []command{
	{name: "start", description: "Show welcome message", build: NewStartHandler},
	{name: "help", description: "List commands", build: NewHelpHandler},
	{name: "lang", description: "Change language", build: NewLangHandler},
	{name: "analyze", description: "Analyze group history", build: NewAnalyzeHandler, privateOnly: true},
	{name: "actions", description: "Check action items", build: NewActionsHandler, privateOnly: true},
	{name: "suggest", description: "Suggest a reply", build: NewSuggestHandler, privateOnly: true},
	{name: "sync", description: "Sync recent messages", build: NewSyncHandler, privateOnly: true},
	{name: "import", description: "Import a JSON chat export", build: NewImportHandler, privateOnly: true},
	{name: "delete", description: "Delete group records", build: NewDeleteHandler, privateOnly: true},
	{name: "setprompt", description: "Set prompts", build: NewSetPromptHandler, privateOnly: true},
	{name: "setcount", description: "Set suggestion window", build: NewSetCountHandler, privateOnly: true},
	{name: "setmodel", description: "Switch model", build: NewSetModelHandler, privateOnly: true},
	{name: "cancel", description: "Cancel the current operation", build: NewCancelHandler, privateOnly: true},
}

// RegisterAllCommands returns every command and the callback dispatcher keyed by name.
// Everything requires the owner; commands sent in a group also require a group
// administrator, and the menu commands only work in a private chat.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler, len(commands)+1)

	for _, c := range commands {
		mw := []tgbot.Middleware{OwnerOnly(deps), GroupAdminOnly(deps)}
		if c.privateOnly {
			mw = append(mw, PrivateOnly(deps))
		}
		handlers["/"+c.name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     c.name,
			Handler:     c.build(deps),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}

	handlers["callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     "",
		Handler:     NewCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
		Middleware:  []tgbot.Middleware{OwnerOnly(deps)},
	}

	return handlers
}

// BotCommands lists the commands for the Telegram command menu.
func BotCommands() []models.BotCommand {
	out := make([]models.BotCommand, 0, len(commands))
	for _, c := range commands {
		out = append(out, models.BotCommand{Command: c.name, Description: c.description})
	}
	return out
}
