package handler

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-bingo-bot/internal/config"
	"telegram-bingo-bot/internal/game/session"
	"telegram-bingo-bot/internal/pkg/chatref"
	"telegram-bingo-bot/internal/render"
)

// AdminHandler handles VIP management, bonus grants and the chat transfer.
type AdminHandler struct {
	cfg        *config.Config
	store      *session.Store
	activeChat *chatref.Active
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, store *session.Store, activeChat *chatref.Active) *AdminHandler {
	return &AdminHandler{cfg: cfg, store: store, activeChat: activeChat}
}

// replyTarget extracts the user the admin replied to. VIP and bonus commands
// operate on the replied-to message's sender, like the original bot.
func replyTarget(c tele.Context) (*tele.User, bool) {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
		return nil, false
	}
	return msg.ReplyTo.Sender, true
}

// HandleVip handles /vip: grants VIP status to the replied-to user.
func (h *AdminHandler) HandleVip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target, ok := replyTarget(c)
	if !ok {
		return c.Reply("❌ Ответьте на сообщение пользователя, которого хотите сделать VIP!")
	}
	name := displayName(target)

	err := h.store.SetVip(context.Background(), h.cfg.IsAdmin(sender.ID), target.ID, name)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", target.ID).
		Msg("VIP granted")

	return c.Reply(render.VIPGranted(name))
}

// HandleDelVip handles /delvip: removes VIP status from the replied-to user.
func (h *AdminHandler) HandleDelVip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target, ok := replyTarget(c)
	if !ok {
		return c.Reply("❌ Ответьте на сообщение пользователя, которого хотите удалить из VIP!")
	}
	name := displayName(target)

	err := h.store.UnsetVip(context.Background(), h.cfg.IsAdmin(sender.ID), target.ID)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", target.ID).
		Msg("VIP revoked")

	return c.Reply(render.VIPRevoked(name))
}

// HandleBonus handles /bonus: grants a one-game bonus to the replied-to user.
func (h *AdminHandler) HandleBonus(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target, ok := replyTarget(c)
	if !ok {
		return c.Reply("❌ Ответьте на сообщение пользователя, которому хотите дать бонус!")
	}
	name := displayName(target)

	err := h.store.GrantBonus(context.Background(), h.cfg.IsAdmin(sender.ID), target.ID)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", target.ID).
		Msg("Bonus granted")

	return c.Reply(render.BonusGranted(name))
}

// HandleVipList handles /viplist: shows VIPs in grant order.
func (h *AdminHandler) HandleVipList(c tele.Context) error {
	return c.Reply(render.VIPList(h.store.ListVips()))
}

// HandleNewChat handles /newchat <id>: asks for confirmation before moving
// the bot to another chat.
func (h *AdminHandler) HandleNewChat(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.cfg.IsAdmin(sender.ID) {
		return c.Reply(render.Error(session.ErrUnauthorized))
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Укажите ID нового чата, например: /newchat -1001234567890")
	}
	newChatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ ID чата должен быть числом.")
	}
	if h.activeChat.Is(newChatID) {
		return c.Reply("⚠ Бот уже работает в этом чате! Укажите другой ID для переноса.")
	}

	text := "📢 Вы хотите перенести бота в чат с ID " + strconv.FormatInt(newChatID, 10) + ". Подтвердите действие."
	return c.Reply(text, render.TransferKeyboard(newChatID))
}

// HandleTransferConfirm runs the transfer saga: save durable state, announce
// to both chats, rebind the active chat. Each step's failure is reported on
// its own; no step is rolled back by a later failure.
func (h *AdminHandler) HandleTransferConfirm(c tele.Context, newChatID int64) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.cfg.IsAdmin(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Только админы могут подтверждать!"})
	}

	oldChatID := h.activeChat.ID()

	// Step 1: reset the session and save durable state.
	if err := h.store.TransferReset(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Transfer save failed, continuing with in-memory state")
		if err := c.Send("⚠ Не удалось сохранить данные в базу, перенос продолжается."); err != nil {
			log.Debug().Err(err).Msg("Failed to report save failure")
		}
	}

	// Step 2: announce to both chats.
	announcement := render.TransferAnnouncement(oldChatID, newChatID, h.store.ListVips())
	for _, chatID := range []int64{oldChatID, newChatID} {
		_, err := c.Bot().Send(&tele.Chat{ID: chatID}, announcement)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to announce transfer")
		}
	}

	// Step 3: rebind.
	h.activeChat.Set(newChatID)

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("old_chat_id", oldChatID).
		Int64("new_chat_id", newChatID).
		Msg("Bot transferred to new chat")

	return c.Respond(&tele.CallbackResponse{Text: "✅ Перенос завершён!"})
}

// HandleTransferCancel aborts the transfer.
func (h *AdminHandler) HandleTransferCancel(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: "❌ Перенос отменён."})
}
