// Package model defines the data models for the bingo/roulette bot.
package model

// GameKind identifies which game a session is running.
type GameKind string

const (
	// GameNone means no game is active.
	GameNone GameKind = ""
	// GameBingo is the numbered-bingo game.
	GameBingo GameKind = "bingo"
	// GameRoulette is the roulette draw game.
	GameRoulette GameKind = "roulette"
)

// Active reports whether the kind denotes a running game.
func (k GameKind) Active() bool {
	return k != GameNone
}

// VIPUser is a durably-remembered user with an elevated entry quota.
// Stored in the vip_users table.
type VIPUser struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
}

// BonusGrant is a one-game extra-entry privilege for a user.
// Stored in the bonus_users table and cleared when a game ends.
type BonusGrant struct {
	UserID     int64 `db:"user_id"`
	BonusCount int   `db:"bonus_count"`
}

// Entry is one registered participation in the active game.
// Numbers is nil for roulette entries.
type Entry struct {
	UserID      int64
	DisplayName string
	Numbers     []int
}
