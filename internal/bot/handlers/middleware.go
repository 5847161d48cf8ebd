// Package handlers contains the Telegram command, callback and message handlers,
// along with their registration and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// OwnerOnly stops every update whose sender is not the configured owner. Commands
// get a refusal reply, callbacks an alert. A refused user's wizard is cleared.
func OwnerOnly(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "OwnerOnly")

	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			var userID, chatID int64
			switch {
			case update.Message != nil && update.Message.From != nil:
				userID, chatID = update.Message.From.ID, update.Message.Chat.ID
			case update.CallbackQuery != nil:
				userID = update.CallbackQuery.From.ID
			default:
				return
			}

			if deps.isOwner(userID) {
				next(ctx, b, update)
				return
			}

			deps.Sessions.Clear(userID)
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
			msgs := deps.messages(ctx, userID)
			if update.CallbackQuery != nil {
				answer(ctx, b, log, update.CallbackQuery, msgs.NotAuthorized)
				return
			}
			sendText(ctx, b, log, chatID, msgs.NotAuthorized, nil)
		}
	}
}

// GroupAdminOnly lets commands issued in a group through only when the sender is the
// creator or an administrator there. Private chats pass.
func GroupAdminOnly(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "GroupAdminOnly")

	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Chat.Type == models.ChatTypePrivate {
				next(ctx, b, update)
				return
			}

			member, err := b.GetChatMember(ctx, &tgbot.GetChatMemberParams{ChatID: msg.Chat.ID, UserID: msg.From.ID})
			if err != nil {
				log.ErrorContext(ctx, "Failed to check group role", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
				sendText(ctx, b, log, msg.Chat.ID, deps.messages(ctx, msg.From.ID).GenericError, nil)
				return
			}
			if member.Type != models.ChatMemberTypeOwner && member.Type != models.ChatMemberTypeAdministrator {
				log.WarnContext(ctx, "Command from non-admin group member", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "status", member.Type)
				sendText(ctx, b, log, msg.Chat.ID, deps.messages(ctx, msg.From.ID).GroupAdminRequired, nil)
				return
			}
			next(ctx, b, update)
		}
	}
}

// PrivateOnly refuses commands sent outside a private chat.
func PrivateOnly(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "PrivateOnly")

	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.Chat.Type == models.ChatTypePrivate {
				next(ctx, b, update)
				return
			}
			var userID int64
			if msg.From != nil {
				userID = msg.From.ID
			}
			sendText(ctx, b, log, msg.Chat.ID, deps.messages(ctx, userID).PrivateOnly, nil)
		}
	}
}
