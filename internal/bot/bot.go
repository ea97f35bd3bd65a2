// Package bot provides the Telegram bot initialization and handler
// registration.
package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-bingo-bot/internal/config"
	"telegram-bingo-bot/internal/game/session"
	"telegram-bingo-bot/internal/handler"
	"telegram-bingo-bot/internal/model"
	"telegram-bingo-bot/internal/pkg/chatref"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot        *tele.Bot
	cfg        *config.Config
	store      *session.Store
	activeChat *chatref.Active

	gameHandler  *handler.GameHandler
	adminHandler *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config *config.Config
	Store  *session.Store
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:        teleBot,
		cfg:        deps.Config,
		store:      deps.Store,
		activeChat: chatref.New(deps.Config.Chat.ID),
	}

	b.gameHandler = handler.NewGameHandler(deps.Config, deps.Store)
	b.adminHandler = handler.NewAdminHandler(deps.Config, deps.Store, b.activeChat)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(ChatMiddleware(b.activeChat))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command, callback and text handlers.
func (b *Bot) registerHandlers() {
	// Open to everyone in the active chat.
	b.bot.Handle("/bingo", b.gameHandler.HandleBingoClaim)
	b.bot.Handle("/viplist", b.adminHandler.HandleVipList)
	b.bot.Handle(tele.OnText, b.gameHandler.HandleText)

	// Admin commands.
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/game", b.gameHandler.HandleGame)
	adminGroup.Handle("/stopreg", b.gameHandler.HandleStopReg)
	adminGroup.Handle("/stop", b.gameHandler.HandleStop)
	adminGroup.Handle("/reset", b.gameHandler.HandleReset)
	adminGroup.Handle("/row", b.gameHandler.HandleRow)
	adminGroup.Handle("/roll", b.gameHandler.HandleRoll)
	adminGroup.Handle("/vip", b.adminHandler.HandleVip)
	adminGroup.Handle("/delvip", b.adminHandler.HandleDelVip)
	adminGroup.Handle("/bonus", b.adminHandler.HandleBonus)
	adminGroup.Handle("/newchat", b.adminHandler.HandleNewChat)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline keyboard callbacks by their unique prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot prefixes callback data with \f; data follows after |.
	data := strings.TrimPrefix(callback.Data, "\f")
	unique, payload, _ := strings.Cut(data, "|")

	switch unique {
	case "game_bingo":
		return b.gameHandler.HandleGameCallback(c, model.GameBingo)
	case "game_roulette":
		return b.gameHandler.HandleGameCallback(c, model.GameRoulette)
	case "transfer_confirm":
		newChatID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			log.Debug().Str("payload", payload).Msg("Malformed transfer callback")
			return c.Respond(&tele.CallbackResponse{Text: "⚠ Неизвестное действие."})
		}
		return b.adminHandler.HandleTransferConfirm(c, newChatID)
	case "transfer_cancel":
		return b.adminHandler.HandleTransferCancel(c)
	}

	log.Debug().Str("unique", unique).Msg("Unknown callback")
	return c.Respond(&tele.CallbackResponse{Text: "⚠ Неизвестное действие."})
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Int64("chat_id", b.activeChat.ID()).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
