// Package handler provides Telegram bot command handlers. Each inbound
// event maps to exactly one session store operation; the store returns data
// and the render package turns it into replies.
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-bingo-bot/internal/config"
	"telegram-bingo-bot/internal/game/rules"
	"telegram-bingo-bot/internal/game/session"
	"telegram-bingo-bot/internal/model"
	"telegram-bingo-bot/internal/render"
)

// claimWord is the message prefix that claims a bingo win.
const claimWord = "бинго"

// GameHandler handles game lifecycle, registration and draw commands.
type GameHandler struct {
	cfg   *config.Config
	store *session.Store
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(cfg *config.Config, store *session.Store) *GameHandler {
	return &GameHandler{cfg: cfg, store: store}
}

// HandleGame handles /game: shows the game selection keyboard.
// The game itself starts from the callback.
func (h *GameHandler) HandleGame(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.cfg.IsAdmin(sender.ID) {
		return c.Reply(render.Error(session.ErrUnauthorized))
	}
	if snap := h.store.Snapshot(); snap.ActiveGame.Active() {
		return c.Reply(render.Error(session.ErrGameAlreadyActive))
	}

	return c.Reply("🎮 Выберите игру:", render.GameKeyboard())
}

// HandleGameCallback starts the game chosen on the selection keyboard.
func (h *GameHandler) HandleGameCallback(c tele.Context, kind model.GameKind) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	snap, err := h.store.StartGame(h.cfg.IsAdmin(sender.ID), kind)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: render.Error(err)})
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("game", string(snap.ActiveGame)).
		Msg("Game started")

	if err := c.Respond(&tele.CallbackResponse{Text: "✅"}); err != nil {
		log.Debug().Err(err).Msg("Failed to answer callback")
	}
	return c.Send(render.GameStarted(kind))
}

// HandleStopReg handles /stopreg: closes the registration window.
func (h *GameHandler) HandleStopReg(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.store.CloseRegistration(h.cfg.IsAdmin(sender.ID)); err != nil {
		return c.Reply(render.Error(err))
	}
	return c.Send(render.RegistrationClosed())
}

// HandleStop handles /stop: ends the game and clears this game's bonuses.
func (h *GameHandler) HandleStop(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.store.EndGame(context.Background(), h.cfg.IsAdmin(sender.ID)); err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().Int64("admin_id", sender.ID).Msg("Game stopped")
	return c.Send(render.GameStopped())
}

// HandleReset handles /reset: clears the session but keeps bonus grants.
func (h *GameHandler) HandleReset(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.store.ResetGame(h.cfg.IsAdmin(sender.ID)); err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().Int64("admin_id", sender.ID).Msg("Game reset")
	return c.Send(render.GameReset())
}

// HandleRow handles /row [2]: draws one or two bingo rows and posts the
// cumulative call history.
func (h *GameHandler) HandleRow(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	rowCount := 1
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > 2 {
			return c.Reply("❌ Укажите 1 или 2 ряда, например: /row 2")
		}
		rowCount = n
	}

	history, err := h.store.DrawBingoRow(h.cfg.IsAdmin(sender.ID), rowCount)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	return c.Send(render.DrawnRows(history))
}

// HandleRoll handles /roll <N>: the roulette draw over N participants.
func (h *GameHandler) HandleRoll(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Укажите число участников, например: /roll 12")
	}
	expected, err := strconv.Atoi(args[0])
	if err != nil || expected < 1 {
		return c.Reply("❌ Число участников должно быть целым и больше нуля.")
	}

	winner, err := h.store.DrawRoulette(h.cfg.IsAdmin(sender.ID), expected)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int("participants", expected).
		Int("winner", winner).
		Msg("Roulette drawn")

	return c.Send(render.RouletteResult(winner, expected))
}

// HandleBingoClaim handles /bingo and the «бинго» message: checks every
// entry of the claimant against the drawn numbers.
func (h *GameHandler) HandleBingoClaim(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	verdicts, err := h.store.ClaimBingo(sender.ID)
	if err != nil {
		return c.Reply(render.Error(err))
	}

	return c.Reply(render.Verdicts(displayName(sender), verdicts))
}

// HandleText classifies free-form messages: registration payloads and bingo
// claims. Everything else is ignored.
func (h *GameHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	text := c.Text()
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), claimWord) {
		return h.HandleBingoClaim(c)
	}

	reg, ok := rules.ParseRegistration(text)
	if !ok {
		return nil
	}

	name := reg.Handle
	if name == "" {
		name = displayName(sender)
	}

	snap, registered, err := h.store.Register(sender.ID, name, reg.Tokens)
	if err != nil {
		return c.Reply(render.Error(err))
	}
	if !registered {
		// Registration closed: stay silent, same as the original bot.
		return nil
	}

	return h.updatePinnedRoster(c, snap)
}

// updatePinnedRoster edits the pinned player list, or sends and pins it the
// first time. Pin failures are logged only; the registration itself already
// succeeded.
func (h *GameHandler) updatePinnedRoster(c tele.Context, snap session.Snapshot) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	text := render.Roster(snap)

	if snap.PinnedMessageID != 0 {
		stored := tele.StoredMessage{
			MessageID: strconv.Itoa(snap.PinnedMessageID),
			ChatID:    chat.ID,
		}
		if _, err := c.Bot().Edit(stored, text); err != nil {
			log.Debug().Err(err).Msg("Failed to edit pinned roster")
		}
		return nil
	}

	msg, err := c.Bot().Send(chat, text)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send roster message")
		return nil
	}
	if err := c.Bot().Pin(msg); err != nil {
		log.Debug().Err(err).Msg("Failed to pin roster message")
	}
	h.store.SetPinnedMessage(msg.ID)

	return nil
}

// displayName resolves a sender's name the way the original bot did:
// @username when present, first name otherwise.
func displayName(user *tele.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	return user.FirstName
}
