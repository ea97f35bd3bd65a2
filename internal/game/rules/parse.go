package rules

import (
	"errors"
	"strconv"
	"strings"
)

// RegisterMarker is the literal token that opens a registration message.
const RegisterMarker = "+"

// registerWord is the spelled-out alternative to the marker.
const registerWord = "запись"

// ErrNotANumber is returned when a card token is not an integer.
var ErrNotANumber = errors.New("card token is not a number")

// Registration is a parsed registration payload.
type Registration struct {
	// Handle is an explicit display-name override, empty when the sender
	// registers under their own name. Any sender may supply any handle;
	// no ownership check is performed.
	Handle string
	// Tokens is the remaining payload. For bingo these are the card
	// numbers; for roulette they are ignored.
	Tokens []string
}

// ParseRegistration classifies a chat message as a registration attempt.
// A message registers when its first token is the marker ("+" or "запись"),
// or an explicit @handle standing in for the marker. Returns false for
// anything else.
func ParseRegistration(text string) (Registration, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Registration{}, false
	}

	first := fields[0]
	switch {
	case first == RegisterMarker || strings.EqualFold(first, registerWord):
		return Registration{Tokens: fields[1:]}, true
	case strings.HasPrefix(first, "@") && len(first) > 1:
		return Registration{Handle: first, Tokens: fields[1:]}, true
	}

	return Registration{}, false
}

// ParseNumbers converts card tokens to integers. A non-integer token is a
// local validation failure surfaced as ErrNotANumber.
func ParseNumbers(tokens []string) ([]int, error) {
	numbers := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, ErrNotANumber
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
