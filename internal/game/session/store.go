package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"telegram-bingo-bot/internal/game/rules"
	"telegram-bingo-bot/internal/model"
)

// Store serializes all access to the single GameSession. Every operation is
// one read-decide-write critical section; durable writes happen after the
// lock is released so no operation blocks on I/O while holding it.
type Store struct {
	mu    sync.RWMutex
	sess  GameSession
	saver Saver

	// Randomness is injectable so tests can fix the draws.
	drawRows  func(count int) [][]int
	drawIndex func(count int) int
}

// NewStore creates a Store with an empty session.
func NewStore(saver Saver) *Store {
	return &Store{
		sess:      GameSession{Bonuses: make(map[int64]int)},
		saver:     saver,
		drawRows:  rules.GenerateRows,
		drawIndex: rules.RouletteDraw,
	}
}

// Load seeds the durable part of the session, typically from the repository
// at startup.
func (s *Store) Load(vips []model.VIPUser, bonuses map[int64]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.VIPs = append([]model.VIPUser(nil), vips...)
	s.sess.Bonuses = make(map[int64]int, len(bonuses))
	for id, count := range bonuses {
		s.sess.Bonuses[id] = count
	}
}

// StartGame activates a game of the given kind and opens registration.
func (s *Store) StartGame(isAdmin bool, kind model.GameKind) (Snapshot, error) {
	if !isAdmin {
		return Snapshot{}, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.ActiveGame.Active() {
		return Snapshot{}, ErrGameAlreadyActive
	}

	s.sess.ActiveGame = kind
	s.sess.RegistrationOpen = true
	s.sess.Roster = nil
	s.sess.DrawnRows = nil
	s.sess.PinnedMessageID = 0

	return s.snapshotLocked(), nil
}

// CloseRegistration ends the registration window of the active game.
func (s *Store) CloseRegistration(isAdmin bool) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.RegistrationOpen {
		return ErrNoOpenRegistration
	}
	s.sess.RegistrationOpen = false

	return nil
}

// Register appends an entry for the user. When registration is closed the
// attempt is silently ignored: registered is false and err is nil, so the
// handler stays quiet. For bingo the payload tokens are the card numbers;
// for roulette they are ignored.
func (s *Store) Register(userID int64, displayName string, tokens []string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.RegistrationOpen {
		return Snapshot{}, false, nil
	}

	isVIP := s.isVIPLocked(userID)
	bonus := s.sess.Bonuses[userID]
	quota := rules.Quota(isVIP, bonus)
	if s.entryCountLocked(userID) >= quota {
		return Snapshot{}, false, &QuotaExceededError{Max: quota}
	}

	entry := model.Entry{UserID: userID, DisplayName: displayName}
	if s.sess.ActiveGame == model.GameBingo {
		numbers, err := rules.ParseNumbers(tokens)
		if err != nil {
			return Snapshot{}, false, err
		}
		required := rules.RequiredCardSize(isVIP, bonus > 0)
		if err := rules.ValidateCard(numbers, required); err != nil {
			return Snapshot{}, false, err
		}
		entry.Numbers = numbers
	}

	s.sess.Roster = append(s.sess.Roster, entry)

	return s.snapshotLocked(), true, nil
}

// EndGame finishes the active game and clears the one-game bonus grants.
// The emptied bonus table is persisted.
func (s *Store) EndGame(ctx context.Context, isAdmin bool) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	if !s.sess.ActiveGame.Active() {
		s.mu.Unlock()
		return ErrNoActiveGame
	}

	s.resetGameLocked()
	s.sess.Bonuses = make(map[int64]int)
	vips, bonuses := s.durableCopyLocked()
	s.mu.Unlock()

	s.persist(ctx, vips, bonuses)
	return nil
}

// ResetGame clears the session unconditionally. Bonus grants survive a reset.
func (s *Store) ResetGame(isAdmin bool) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetGameLocked()
	return nil
}

// DrawBingoRow generates rowCount rows, appends them to the call history and
// returns the full cumulative history. The caller validates that rowCount is
// 1 or 2.
func (s *Store) DrawBingoRow(isAdmin bool, rowCount int) ([][]int, error) {
	if !isAdmin {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.ActiveGame != model.GameBingo || s.sess.RegistrationOpen {
		return nil, ErrWrongPhase
	}

	s.sess.DrawnRows = append(s.sess.DrawnRows, s.drawRows(rowCount)...)

	return copyRows(s.sess.DrawnRows), nil
}

// ClaimBingo checks every entry of the claimant against the union of drawn
// rows. It returns verdicts for human adjudication and never declares a
// winner itself.
func (s *Store) ClaimBingo(userID int64) ([]ClaimVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess.ActiveGame != model.GameBingo || s.sess.RegistrationOpen {
		return nil, ErrWrongPhase
	}

	var verdicts []ClaimVerdict
	for _, entry := range s.sess.Roster {
		if entry.UserID != userID {
			continue
		}
		verdicts = append(verdicts, ClaimVerdict{
			Entry: copyEntry(entry),
			Win:   rules.IsWinner(entry.Numbers, s.sess.DrawnRows),
		})
	}
	if len(verdicts) == 0 {
		return nil, ErrNotRegistered
	}

	return verdicts, nil
}

// DrawRoulette verifies the admin-declared participant count against the
// roster and returns a uniform random index in [1, expectedCount].
func (s *Store) DrawRoulette(isAdmin bool, expectedCount int) (int, error) {
	if !isAdmin {
		return 0, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.ActiveGame != model.GameRoulette || s.sess.RegistrationOpen {
		return 0, ErrWrongPhase
	}
	if actual := len(s.sess.Roster); expectedCount != actual {
		return 0, &CountMismatchError{Expected: expectedCount, Actual: actual}
	}

	return s.drawIndex(expectedCount), nil
}

// SetVip grants durable VIP status to a user.
func (s *Store) SetVip(ctx context.Context, isAdmin bool, userID int64, username string) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	if s.isVIPLocked(userID) {
		s.mu.Unlock()
		return ErrAlreadyVIP
	}
	s.sess.VIPs = append(s.sess.VIPs, model.VIPUser{UserID: userID, Username: username})
	vips, bonuses := s.durableCopyLocked()
	s.mu.Unlock()

	s.persist(ctx, vips, bonuses)
	return nil
}

// UnsetVip removes a user's VIP status.
func (s *Store) UnsetVip(ctx context.Context, isAdmin bool, userID int64) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	if !s.isVIPLocked(userID) {
		s.mu.Unlock()
		return ErrNotVIP
	}
	kept := s.sess.VIPs[:0]
	for _, vip := range s.sess.VIPs {
		if vip.UserID != userID {
			kept = append(kept, vip)
		}
	}
	s.sess.VIPs = kept
	vips, bonuses := s.durableCopyLocked()
	s.mu.Unlock()

	s.persist(ctx, vips, bonuses)
	return nil
}

// GrantBonus gives a user one extra entry for the current game. VIPs already
// hold the higher quota and cannot also take a bonus.
func (s *Store) GrantBonus(ctx context.Context, isAdmin bool, userID int64) error {
	if !isAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	if s.isVIPLocked(userID) {
		s.mu.Unlock()
		return ErrAlreadyVIP
	}
	if _, ok := s.sess.Bonuses[userID]; ok {
		s.mu.Unlock()
		return ErrAlreadyBonused
	}
	s.sess.Bonuses[userID] = 1
	vips, bonuses := s.durableCopyLocked()
	s.mu.Unlock()

	s.persist(ctx, vips, bonuses)
	return nil
}

// ListVips returns the VIP users in grant order.
func (s *Store) ListVips() []model.VIPUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.VIPUser(nil), s.sess.VIPs...)
}

// Quota returns the user's current entry quota.
func (s *Store) Quota(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return rules.Quota(s.isVIPLocked(userID), s.sess.Bonuses[userID])
}

// EntryCount returns how many entries the user currently holds.
func (s *Store) EntryCount(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entryCountLocked(userID)
}

// SetPinnedMessage records the handle of the pinned roster message.
func (s *Store) SetPinnedMessage(messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.PinnedMessageID = messageID
}

// Snapshot returns a deep copy of the renderable session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// TransferReset clears the game fields for a chat transfer while keeping the
// durable privileges, and saves them. Unlike the regular mutation path the
// save error is returned so the transfer saga can report the step's outcome.
func (s *Store) TransferReset(ctx context.Context) error {
	s.mu.Lock()
	s.resetGameLocked()
	vips, bonuses := s.durableCopyLocked()
	s.mu.Unlock()

	if s.saver == nil {
		return nil
	}
	return s.saver.Save(ctx, vips, bonuses)
}

// SaveNow writes the durable state immediately. Used by the shutdown hook;
// best effort, the caller decides how to report a failure.
func (s *Store) SaveNow(ctx context.Context) error {
	s.mu.RLock()
	vips, bonuses := s.durableCopyLocked()
	s.mu.RUnlock()

	if s.saver == nil {
		return nil
	}
	return s.saver.Save(ctx, vips, bonuses)
}

func (s *Store) resetGameLocked() {
	s.sess.ActiveGame = model.GameNone
	s.sess.RegistrationOpen = false
	s.sess.Roster = nil
	s.sess.DrawnRows = nil
	s.sess.PinnedMessageID = 0
}

func (s *Store) isVIPLocked(userID int64) bool {
	for _, vip := range s.sess.VIPs {
		if vip.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Store) entryCountLocked(userID int64) int {
	count := 0
	for _, entry := range s.sess.Roster {
		if entry.UserID == userID {
			count++
		}
	}
	return count
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		ActiveGame:       s.sess.ActiveGame,
		RegistrationOpen: s.sess.RegistrationOpen,
		PinnedMessageID:  s.sess.PinnedMessageID,
		DrawnRows:        copyRows(s.sess.DrawnRows),
	}
	snap.Roster = make([]model.Entry, 0, len(s.sess.Roster))
	for _, entry := range s.sess.Roster {
		snap.Roster = append(snap.Roster, copyEntry(entry))
	}
	return snap
}

// durableCopyLocked snapshots the persistable state under the lock so the
// actual write can happen after release.
func (s *Store) durableCopyLocked() ([]model.VIPUser, map[int64]int) {
	vips := append([]model.VIPUser(nil), s.sess.VIPs...)
	bonuses := make(map[int64]int, len(s.sess.Bonuses))
	for id, count := range s.sess.Bonuses {
		bonuses[id] = count
	}
	return vips, bonuses
}

// persist writes the durable state. Failures are logged and swallowed: the
// in-memory session stays authoritative and the next mutation's save is the
// implicit retry.
func (s *Store) persist(ctx context.Context, vips []model.VIPUser, bonuses map[int64]int) {
	if s.saver == nil {
		return
	}
	if err := s.saver.Save(ctx, vips, bonuses); err != nil {
		log.Warn().Err(err).Msg("Failed to persist privileges, keeping in-memory state")
	}
}

func copyRows(rows [][]int) [][]int {
	out := make([][]int, 0, len(rows))
	for _, row := range rows {
		out = append(out, append([]int(nil), row...))
	}
	return out
}

func copyEntry(entry model.Entry) model.Entry {
	entry.Numbers = append([]int(nil), entry.Numbers...)
	return entry
}
