// Package rules implements the pure game computations for bingo and roulette:
// entry quotas, card validation, row generation and win checking. Everything
// here is stateless and operates on plain values, so the session store can
// call it while holding its lock.
package rules

import (
	"fmt"
	"math/rand"
)

const (
	// NumberMin and NumberMax bound every bingo number.
	NumberMin = 1
	NumberMax = 100

	// RowSize is how many numbers one drawn row contains.
	RowSize = 5

	// StandardCardSize is the card size for regular players.
	StandardCardSize = 5
	// ReducedCardSize is the card size for VIP and bonused players.
	ReducedCardSize = 4

	// BaseQuota is the entry quota for regular players.
	BaseQuota = 1
	// VIPQuota is the entry quota for VIP players.
	VIPQuota = 2
)

// Quota returns the maximum number of entries a user may hold in the current
// game. VIP status strictly overrides any bonus grant: a VIP gets the VIP
// quota even if a stale bonus row exists for them.
func Quota(isVIP bool, bonus int) int {
	if isVIP {
		return VIPQuota
	}
	return BaseQuota + bonus
}

// RequiredCardSize returns how many numbers a user's bingo card must have.
// VIP and bonused players submit the reduced card. Status is evaluated per
// registration attempt, never cached.
func RequiredCardSize(isVIP, hasBonus bool) int {
	if isVIP || hasBonus {
		return ReducedCardSize
	}
	return StandardCardSize
}

// CardReason classifies why a submitted card was rejected.
type CardReason string

const (
	// ReasonWrongCount means the card has the wrong number of values.
	ReasonWrongCount CardReason = "wrong_count"
	// ReasonOutOfRange means a value lies outside [NumberMin, NumberMax].
	ReasonOutOfRange CardReason = "out_of_range"
	// ReasonDuplicate means the card repeats a value.
	ReasonDuplicate CardReason = "duplicate"
)

// CardError describes a rejected bingo card with enough detail for the
// renderer to produce a precise message.
type CardError struct {
	Reason CardReason
	Want   int // required count, set for ReasonWrongCount
	Got    int // submitted count, set for ReasonWrongCount
	Value  int // offending value, set for ReasonOutOfRange and ReasonDuplicate
}

func (e *CardError) Error() string {
	switch e.Reason {
	case ReasonWrongCount:
		return fmt.Sprintf("card must have %d numbers, got %d", e.Want, e.Got)
	case ReasonOutOfRange:
		return fmt.Sprintf("number %d is outside %d..%d", e.Value, NumberMin, NumberMax)
	case ReasonDuplicate:
		return fmt.Sprintf("number %d is repeated", e.Value)
	}
	return "invalid card"
}

// ValidateCard checks a submitted card against the required size, the allowed
// number range and the no-duplicates rule. Each violation yields a distinct
// reject reason.
func ValidateCard(numbers []int, required int) error {
	if len(numbers) != required {
		return &CardError{Reason: ReasonWrongCount, Want: required, Got: len(numbers)}
	}

	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < NumberMin || n > NumberMax {
			return &CardError{Reason: ReasonOutOfRange, Value: n}
		}
		if seen[n] {
			return &CardError{Reason: ReasonDuplicate, Value: n}
		}
		seen[n] = true
	}

	return nil
}

// GenerateRow samples RowSize distinct numbers uniformly without replacement
// from [NumberMin, NumberMax].
func GenerateRow() []int {
	perm := rand.Perm(NumberMax - NumberMin + 1)
	row := make([]int, RowSize)
	for i := 0; i < RowSize; i++ {
		row[i] = perm[i] + NumberMin
	}
	return row
}

// GenerateRows generates count independent rows. Numbers may repeat across
// rows but never within one.
func GenerateRows(count int) [][]int {
	rows := make([][]int, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, GenerateRow())
	}
	return rows
}

// IsWinner reports whether every card number appears in the union of all
// drawn rows. This is a subset test, not an exact cover: extra drawn numbers
// never hurt a card.
func IsWinner(numbers []int, drawnRows [][]int) bool {
	drawn := make(map[int]bool)
	for _, row := range drawnRows {
		for _, n := range row {
			drawn[n] = true
		}
	}
	for _, n := range numbers {
		if !drawn[n] {
			return false
		}
	}
	return true
}

// RouletteDraw returns a uniform random index in [1, count].
func RouletteDraw(count int) int {
	return rand.Intn(count) + 1
}
