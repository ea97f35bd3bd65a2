// Package session owns the single mutable game session and serializes every
// read and mutation behind one store-wide lock. Handlers call exactly one
// store operation per inbound event; the store applies the game rules and
// returns data for rendering, never formatted text.
package session

import (
	"context"

	"telegram-bingo-bot/internal/model"
)

// GameSession is the process-wide game state. VIPs and bonus grants are the
// only fields with durable backing; the rest is ephemeral and cleared on
// /stop, /reset or restart.
type GameSession struct {
	ActiveGame       model.GameKind
	RegistrationOpen bool
	Roster           []model.Entry
	DrawnRows        [][]int
	PinnedMessageID  int
	VIPs             []model.VIPUser
	Bonuses          map[int64]int
}

// Snapshot is a deep copy of the renderable session state, safe to use after
// the store's lock is released.
type Snapshot struct {
	ActiveGame       model.GameKind
	RegistrationOpen bool
	Roster           []model.Entry
	DrawnRows        [][]int
	PinnedMessageID  int
}

// ClaimVerdict is the win check result for one of a claimant's entries.
// The store surfaces verdicts only; declaring the winner stays with the
// admin.
type ClaimVerdict struct {
	Entry model.Entry
	Win   bool
}

// Saver persists the durable part of the session. The store calls it after
// releasing its lock; a failed save is logged and swallowed, leaving the
// in-memory state authoritative until the next save attempt.
type Saver interface {
	Save(ctx context.Context, vips []model.VIPUser, bonuses map[int64]int) error
}
