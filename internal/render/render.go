// Package render turns session operation results into user-facing text and
// keyboards. Keeping all message formatting here leaves the session store
// returning plain data and makes the texts swappable in one place.
package render

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-bingo-bot/internal/game/rules"
	"telegram-bingo-bot/internal/game/session"
	"telegram-bingo-bot/internal/model"
)

// GameKeyboard is the inline keyboard for choosing which game to start.
func GameKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	bingo := markup.Data("🎲 Бинго", "game_bingo")
	roulette := markup.Data("🎰 Рулетка", "game_roulette")
	markup.Inline(markup.Row(bingo), markup.Row(roulette))
	return markup
}

// TransferKeyboard is the confirm/cancel keyboard for the /newchat saga.
func TransferKeyboard(newChatID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	confirm := markup.Data("Подтвердить", "transfer_confirm", fmt.Sprintf("%d", newChatID))
	cancel := markup.Data("Отмена", "transfer_cancel")
	markup.Inline(markup.Row(confirm), markup.Row(cancel))
	return markup
}

// Roster renders the pinned player-list message.
func Roster(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString("📋 Список игроков:\n\n")
	for i, entry := range snap.Roster {
		if snap.ActiveGame == model.GameBingo {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, entry.DisplayName, joinNumbers(entry.Numbers))
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, entry.DisplayName)
		}
	}
	return b.String()
}

// GameStarted announces an opened registration window.
func GameStarted(kind model.GameKind) string {
	switch kind {
	case model.GameBingo:
		return "🎲 Запущено Бинго! Запись открыта: отправьте «+» и 5 чисел от 1 до 100 (VIP и бонус — 4 числа)."
	case model.GameRoulette:
		return "🎰 Запущена Рулетка! Запись открыта: отправьте «+»."
	}
	return "🎮 Игра запущена!"
}

// RegistrationClosed announces the end of the registration window.
func RegistrationClosed() string {
	return "🔒 Запись закрыта! Игра начинается."
}

// DrawnRows renders the cumulative bingo call history.
func DrawnRows(history [][]int) string {
	var b strings.Builder
	b.WriteString("🎱 Выпавшие числа:\n\n")
	for i, row := range history {
		fmt.Fprintf(&b, "Ряд %d: %s\n", i+1, joinNumbers(row))
	}
	return b.String()
}

// Verdicts renders the win check for each of a claimant's entries.
func Verdicts(name string, verdicts []session.ClaimVerdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Проверка бинго для %s:\n\n", name)
	for i, v := range verdicts {
		mark := "❌ не все числа выпали"
		if v.Win {
			mark = "🏆 БИНГО! Ожидайте подтверждения админа"
		}
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, joinNumbers(v.Entry.Numbers), mark)
	}
	return b.String()
}

// RouletteResult renders the winning index with the customary pause notice.
func RouletteResult(winner, total int) string {
	return fmt.Sprintf(
		"🎰 Крутим рулетку среди %d участников...\n⏳ Подождите минутку!\n\n🏆 Выигрышный номер: %d",
		total, winner,
	)
}

// VIPList renders the VIP roster in grant order.
func VIPList(vips []model.VIPUser) string {
	if len(vips) == 0 {
		return "👑 VIP-участников пока нет."
	}
	var b strings.Builder
	b.WriteString("👑 VIP-участники:\n\n")
	for i, vip := range vips {
		fmt.Fprintf(&b, "%d. %s\n", i+1, vip.Username)
	}
	return b.String()
}

// VIPGranted announces a new VIP.
func VIPGranted(username string) string {
	return fmt.Sprintf("👑 %s получил статус VIP!", username)
}

// VIPRevoked announces a removed VIP.
func VIPRevoked(username string) string {
	return fmt.Sprintf("✅ %s больше не VIP.", username)
}

// BonusGranted announces a one-game bonus.
func BonusGranted(username string) string {
	return fmt.Sprintf("🎁 %s получил бонус на эту игру! Можно записаться на бинго с 4 числами и на рулетку 2 раза.", username)
}

// GameStopped announces the end of a game.
func GameStopped() string {
	return "🏁 Игра завершена! Бонусы этой игры сброшены."
}

// GameReset announces a session reset.
func GameReset() string {
	return "🔄 Игра сброшена."
}

// TransferAnnouncement is broadcast to both chats when the bot moves.
func TransferAnnouncement(oldChatID, newChatID int64, vips []model.VIPUser) string {
	names := "пусто"
	if len(vips) > 0 {
		parts := make([]string, 0, len(vips))
		for _, vip := range vips {
			parts = append(parts, vip.Username)
		}
		names = strings.Join(parts, ", ")
	}
	return fmt.Sprintf(
		"🚚 Бот успешно перенесён из чата %d в чат %d!\n👑 Топ VIP-участников: %s\nℹ Данные игры сохранены в базе.",
		oldChatID, newChatID, names,
	)
}

// Error maps a session error to a user-facing message.
func Error(err error) string {
	var quota *session.QuotaExceededError
	var mismatch *session.CountMismatchError
	var card *rules.CardError

	switch {
	case errors.Is(err, session.ErrUnauthorized):
		return "❌ Только админ может выполнять эту команду!"
	case errors.Is(err, session.ErrGameAlreadyActive):
		return "⚠ Игра уже запущена! Завершите с /stop или используйте /reset."
	case errors.Is(err, session.ErrNoActiveGame):
		return "⚠ Сейчас нет активной игры."
	case errors.Is(err, session.ErrNoOpenRegistration):
		return "⚠ Запись сейчас не открыта."
	case errors.Is(err, session.ErrWrongPhase):
		return "⚠ Сначала завершите запись командой /stopreg."
	case errors.Is(err, session.ErrNotRegistered):
		return "❌ Вы не записаны в эту игру."
	case errors.Is(err, session.ErrAlreadyVIP):
		return "❌ Пользователь уже является VIP!"
	case errors.Is(err, session.ErrNotVIP):
		return "❌ Пользователь не является VIP!"
	case errors.Is(err, session.ErrAlreadyBonused):
		return "❌ Пользователь уже получил бонус в этой игре!"
	case errors.Is(err, rules.ErrNotANumber):
		return "❌ Числа должны быть целыми, например: + 5 12 33 47 90"
	case errors.As(err, &quota):
		return fmt.Sprintf("❌ Лимит записей исчерпан: максимум %d.", quota.Max)
	case errors.As(err, &mismatch):
		return fmt.Sprintf("❌ Указано %d участников, а в списке %d.", mismatch.Expected, mismatch.Actual)
	case errors.As(err, &card):
		return cardError(card)
	}
	return "❌ Произошла ошибка, попробуйте ещё раз."
}

func cardError(err *rules.CardError) string {
	switch err.Reason {
	case rules.ReasonWrongCount:
		return fmt.Sprintf("❌ Нужно ровно %d чисел, а прислано %d.", err.Want, err.Got)
	case rules.ReasonOutOfRange:
		return fmt.Sprintf("❌ Число %d вне диапазона от %d до %d.", err.Value, rules.NumberMin, rules.NumberMax)
	case rules.ReasonDuplicate:
		return fmt.Sprintf("❌ Число %d повторяется.", err.Value)
	}
	return "❌ Некорректная карточка."
}

func joinNumbers(numbers []int) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, " ")
}
