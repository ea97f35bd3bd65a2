package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-bingo-bot/internal/model"
)

// fakeSaver records saves and can inject failures.
type fakeSaver struct {
	mu          sync.Mutex
	saves       int
	lastVIPs    []model.VIPUser
	lastBonuses map[int64]int
	err         error
}

func (f *fakeSaver) Save(ctx context.Context, vips []model.VIPUser, bonuses map[int64]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.lastVIPs = vips
	f.lastBonuses = bonuses
	return f.err
}

func (f *fakeSaver) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func newTestStore() (*Store, *fakeSaver) {
	saver := &fakeSaver{}
	return NewStore(saver), saver
}

// fixedRows returns a draw function that always yields the given rows.
func fixedRows(rows ...[]int) func(int) [][]int {
	return func(count int) [][]int {
		return rows[:count]
	}
}

func TestStartGame(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.StartGame(false, model.GameBingo)
	assert.ErrorIs(t, err, ErrUnauthorized)

	snap, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)
	assert.Equal(t, model.GameBingo, snap.ActiveGame)
	assert.True(t, snap.RegistrationOpen)
	assert.Empty(t, snap.Roster)

	_, err = store.StartGame(true, model.GameRoulette)
	assert.ErrorIs(t, err, ErrGameAlreadyActive)
}

func TestCloseRegistration(t *testing.T) {
	store, _ := newTestStore()

	assert.ErrorIs(t, store.CloseRegistration(true), ErrNoOpenRegistration)
	assert.ErrorIs(t, store.CloseRegistration(false), ErrUnauthorized)

	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	require.NoError(t, store.CloseRegistration(true))
	assert.ErrorIs(t, store.CloseRegistration(true), ErrNoOpenRegistration)
}

func TestRegisterSilentWhenClosed(t *testing.T) {
	store, _ := newTestStore()

	_, registered, err := store.Register(1, "@user", []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = store.StartGame(true, model.GameBingo)
	require.NoError(t, err)
	require.NoError(t, store.CloseRegistration(true))

	_, registered, err = store.Register(1, "@user", []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestRegisterBingo(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	snap, registered, err := store.Register(1, "@user", []string{"5", "12", "33", "47", "90"})
	require.NoError(t, err)
	assert.True(t, registered)
	require.Len(t, snap.Roster, 1)
	assert.Equal(t, []int{5, 12, 33, 47, 90}, snap.Roster[0].Numbers)
	assert.Equal(t, "@user", snap.Roster[0].DisplayName)

	// Second attempt exceeds the base quota of 1.
	_, _, err = store.Register(1, "@user", []string{"1", "2", "3", "4", "6"})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 1, quotaErr.Max)
	assert.Equal(t, 1, store.EntryCount(1))
}

func TestRegisterBingoInvalidCard(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	_, _, err = store.Register(1, "@user", []string{"1", "2", "3", "4"})
	assert.Error(t, err, "4 numbers rejected for a regular user")

	_, _, err = store.Register(1, "@user", []string{"1", "2", "3", "4", "abc"})
	assert.Error(t, err)

	assert.Equal(t, 0, store.EntryCount(1))
}

func TestRegisterRouletteIgnoresPayload(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.StartGame(true, model.GameRoulette)
	require.NoError(t, err)

	snap, registered, err := store.Register(1, "@user", []string{"whatever", "junk"})
	require.NoError(t, err)
	assert.True(t, registered)
	require.Len(t, snap.Roster, 1)
	assert.Nil(t, snap.Roster[0].Numbers)
}

func TestVIPQuotaAndCardSize(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SetVip(ctx, true, 1, "@vip"))
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	// VIPs submit 4-number cards and may register twice.
	_, _, err = store.Register(1, "@vip", []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	_, _, err = store.Register(1, "@vip", []string{"5", "6", "7", "8"})
	require.NoError(t, err)

	_, _, err = store.Register(1, "@vip", []string{"9", "10", "11", "12"})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 2, quotaErr.Max)

	// A 5-number card from a VIP is the wrong size.
	require.NoError(t, store.ResetGame(true))
	_, err = store.StartGame(true, model.GameBingo)
	require.NoError(t, err)
	_, _, err = store.Register(1, "@vip", []string{"1", "2", "3", "4", "5"})
	assert.Error(t, err)
}

func TestBonusQuotaAndCardSize(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.GrantBonus(ctx, true, 2))
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	_, _, err = store.Register(2, "@bonused", []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	_, _, err = store.Register(2, "@bonused", []string{"5", "6", "7", "8"})
	require.NoError(t, err)

	_, _, err = store.Register(2, "@bonused", []string{"9", "10", "11", "12"})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 2, quotaErr.Max)
}

func TestDrawBingoRow(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.DrawBingoRow(true, 1)
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, err = store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	// Still registering: drawing is not allowed yet.
	_, err = store.DrawBingoRow(true, 1)
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, store.CloseRegistration(true))

	_, err = store.DrawBingoRow(false, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)

	history, err := store.DrawBingoRow(true, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = store.DrawBingoRow(true, 2)
	require.NoError(t, err)
	assert.Len(t, history, 3, "history is cumulative")
}

func TestClaimBingo(t *testing.T) {
	store, _ := newTestStore()
	store.drawRows = fixedRows([]int{1, 2, 3, 4, 5}, []int{6, 7, 8, 9, 10})

	_, err := store.ClaimBingo(1)
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, err = store.StartGame(true, model.GameBingo)
	require.NoError(t, err)
	_, _, err = store.Register(1, "@winner", []string{"1", "2", "3", "8", "9"})
	require.NoError(t, err)
	require.NoError(t, store.CloseRegistration(true))

	_, err = store.ClaimBingo(42)
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = store.DrawBingoRow(true, 1)
	require.NoError(t, err)

	verdicts, err := store.ClaimBingo(1)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Win, "8 and 9 not drawn yet")

	_, err = store.DrawBingoRow(true, 2)
	require.NoError(t, err)

	verdicts, err = store.ClaimBingo(1)
	require.NoError(t, err)
	assert.True(t, verdicts[0].Win)
}

func TestDrawRoulette(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.DrawRoulette(true, 3)
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, err = store.StartGame(true, model.GameRoulette)
	require.NoError(t, err)
	for i := int64(1); i <= 3; i++ {
		_, _, err = store.Register(i, fmt.Sprintf("@user%d", i), nil)
		require.NoError(t, err)
	}

	// Registration still open.
	_, err = store.DrawRoulette(true, 3)
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, store.CloseRegistration(true))

	_, err = store.DrawRoulette(false, 3)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = store.DrawRoulette(true, 5)
	var mismatch *CountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Actual)

	winner, err := store.DrawRoulette(true, 3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, winner, 1)
	assert.LessOrEqual(t, winner, 3)
}

func TestVIPManagement(t *testing.T) {
	store, saver := newTestStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.SetVip(ctx, false, 1, "@u"), ErrUnauthorized)
	assert.ErrorIs(t, store.UnsetVip(ctx, true, 1), ErrNotVIP)

	require.NoError(t, store.SetVip(ctx, true, 1, "@u"))
	assert.ErrorIs(t, store.SetVip(ctx, true, 1, "@u"), ErrAlreadyVIP)

	vips := store.ListVips()
	require.Len(t, vips, 1)
	assert.Equal(t, "@u", vips[0].Username)

	require.NoError(t, store.UnsetVip(ctx, true, 1))
	assert.Empty(t, store.ListVips())

	// Each successful mutation persisted.
	assert.Equal(t, 2, saver.saveCount())
}

func TestGrantBonus(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.GrantBonus(ctx, false, 1), ErrUnauthorized)

	require.NoError(t, store.GrantBonus(ctx, true, 1))
	assert.ErrorIs(t, store.GrantBonus(ctx, true, 1), ErrAlreadyBonused)

	assert.Equal(t, 2, store.Quota(1))
}

func TestGrantBonusToVIPFails(t *testing.T) {
	store, saver := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SetVip(ctx, true, 1, "@vip"))
	savesBefore := saver.saveCount()

	assert.ErrorIs(t, store.GrantBonus(ctx, true, 1), ErrAlreadyVIP)
	assert.Equal(t, savesBefore, saver.saveCount(), "no save on failed grant")
	assert.Equal(t, 2, store.Quota(1))
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	store, saver := newTestStore()
	saver.err = errors.New("db down")
	ctx := context.Background()

	require.NoError(t, store.SetVip(ctx, true, 1, "@u"), "save failure must not fail the operation")
	require.Len(t, store.ListVips(), 1, "in-memory state stays authoritative")
}

func TestVIPOverridesBonusInQuota(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	// A stale bonus row plus VIP status: VIP wins, bonus is ignored.
	require.NoError(t, store.GrantBonus(ctx, true, 1))
	require.NoError(t, store.SetVip(ctx, true, 1, "@u"))
	assert.Equal(t, 2, store.Quota(1))

	store.Load(nil, map[int64]int{1: 3})
	assert.Equal(t, 4, store.Quota(1), "bonus applies again once VIP is gone")
}

func TestSetPinnedMessage(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	store.SetPinnedMessage(777)
	assert.Equal(t, 777, store.Snapshot().PinnedMessageID)

	require.NoError(t, store.ResetGame(true))
	assert.Equal(t, 0, store.Snapshot().PinnedMessageID)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)
	_, _, err = store.Register(1, "@user", []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.Roster[0].Numbers[0] = 99
	snap.Roster[0].DisplayName = "mutated"

	fresh := store.Snapshot()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, fresh.Roster[0].Numbers)
	assert.Equal(t, "@user", fresh.Roster[0].DisplayName)
}

func TestConcurrentRegistrationRespectsQuota(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.StartGame(true, model.GameRoulette)
	require.NoError(t, err)

	const attempts = 50
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Register(1, "@racer", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.EntryCount(1), "quota holds under concurrent attempts")
}

func TestConcurrentMixedOperations(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	_, err := store.StartGame(true, model.GameBingo)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		userID := int64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Register(userID, "@u", []string{"1", "2", "3", "4", "5"})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Snapshot()
			_ = store.Quota(userID)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.GrantBonus(ctx, true, 1000)
	}()
	wg.Wait()

	snap := store.Snapshot()
	assert.LessOrEqual(t, len(snap.Roster), 21)
}
