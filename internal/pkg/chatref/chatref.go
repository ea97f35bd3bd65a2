// Package chatref tracks which chat the bot currently serves. The binding
// starts from configuration and can be moved at runtime by the /newchat
// transfer flow.
package chatref

import "sync/atomic"

// Active is the mutable chat binding.
type Active struct {
	id atomic.Int64
}

// New creates an Active bound to the given chat.
func New(chatID int64) *Active {
	a := &Active{}
	a.id.Store(chatID)
	return a
}

// ID returns the currently bound chat.
func (a *Active) ID() int64 {
	return a.id.Load()
}

// Set rebinds the bot to another chat.
func (a *Active) Set(chatID int64) {
	a.id.Store(chatID)
}

// Is reports whether the given chat is the bound one.
func (a *Active) Is(chatID int64) bool {
	return a.id.Load() == chatID
}
