package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitOf(n int) func() int { return func() int { return n } }

func newTestRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	return NewMemoryRepository(limitOf(3))
}

func TestCreateRegistrationBundle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	username, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)
	assert.Equal(t, "1#1", username, "username derives from the credential id")

	exists, err := repo.EmailExists(ctx, "HERO@GMAIL.COM")
	require.NoError(t, err)
	assert.True(t, exists, "email lookup is case insensitive")

	accounts, err := repo.AccountsForUser(ctx, 100)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "HERO@GMAIL.COM", accounts[0].Email)
	assert.Equal(t, "1#1", accounts[0].Username)
	assert.False(t, accounts[0].IsTempPassword)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Credentials: 1, GameAccounts: 1, Links: 1}, counts)
}

func TestCreateRegistrationBundleDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	// Same email, different case, different user.
	_, err = repo.CreateRegistrationBundle(ctx, "Other", "Secret2!", "HERO@gmail.com", 200)
	assert.ErrorIs(t, err, ErrEmailExists)

	// The failed attempt left nothing behind for user 200.
	n, err := repo.CountLinkedAccounts(ctx, 200)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateRegistrationBundleAccountLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!",
			fmt.Sprintf("hero%d@gmail.com", i), 100)
		require.NoError(t, err)
	}

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero9@gmail.com", 100)
	assert.ErrorIs(t, err, ErrAccountLimit)

	// Another user is unaffected by the first user's limit.
	_, err = repo.CreateRegistrationBundle(ctx, "Other", "Secret1!", "other@gmail.com", 200)
	assert.NoError(t, err)
}

// Concurrent registrations with the same email must produce exactly one
// winner and no partial rows.
func TestCreateRegistrationBundleRace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(limitOf(1000))

	const workers = 32
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "race@gmail.com", int64(i))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrEmailExists)
		}
	}
	assert.Equal(t, 1, won)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Credentials: 1, GameAccounts: 1, Links: 1}, counts)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)
	before := repo.credentials["HERO@GMAIL.COM"].AuthHash

	tmp, err := repo.ResetPassword(ctx, "hero@gmail.com")
	require.NoError(t, err)
	assert.Len(t, tmp, 8)
	assert.Equal(t, tmp, strings.ToUpper(tmp), "temp passwords are uppercase hex")

	cred := repo.credentials["HERO@GMAIL.COM"]
	assert.True(t, cred.IsTempPassword)
	assert.Equal(t, tmp, cred.TempPassword)
	assert.NotEqual(t, before, cred.AuthHash, "hash rewritten from temp password")

	_, err = repo.ResetPassword(ctx, "missing@gmail.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePasswordClearsTempFlag(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)
	_, err = repo.ResetPassword(ctx, "hero@gmail.com")
	require.NoError(t, err)

	require.NoError(t, repo.ChangePassword(ctx, "hero@gmail.com", "NewSecret1!"))

	cred := repo.credentials["HERO@GMAIL.COM"]
	assert.False(t, cred.IsTempPassword)
	assert.Empty(t, cred.TempPassword)

	assert.ErrorIs(t, repo.ChangePassword(ctx, "missing@gmail.com", "x"), ErrNotFound)
}

func TestDeleteAccountForUserOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	// A different user may not delete it, and nothing changes.
	assert.ErrorIs(t, repo.DeleteAccountForUser(ctx, 999, "hero@gmail.com"), ErrOwnership)
	counts, _ := repo.Counts(ctx)
	assert.Equal(t, Stats{Credentials: 1, GameAccounts: 1, Links: 1}, counts)

	// The owner may, and the whole bundle goes.
	require.NoError(t, repo.DeleteAccountForUser(ctx, 100, "HERO@gmail.com"))
	counts, _ = repo.Counts(ctx)
	assert.Equal(t, Stats{}, counts)
}

func TestDeleteAccountAsAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	linked, err := repo.DeleteAccountAsAdmin(ctx, "hero@gmail.com")
	require.NoError(t, err)
	assert.EqualValues(t, 100, linked)

	_, err = repo.DeleteAccountAsAdmin(ctx, "hero@gmail.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddCoins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	balance, err := repo.AddCoins(ctx, "hero@gmail.com", 300)
	require.NoError(t, err)
	assert.Equal(t, 300, balance)

	balance, err = repo.AddCoins(ctx, "HERO@GMAIL.COM", 200)
	require.NoError(t, err)
	assert.Equal(t, 500, balance)

	_, err = repo.AddCoins(ctx, "missing@gmail.com", 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountByEmailAndRecipients(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)
	_, err = repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "alt@gmail.com", 100)
	require.NoError(t, err)
	_, err = repo.CreateRegistrationBundle(ctx, "Other", "Secret1!", "other@gmail.com", 200)
	require.NoError(t, err)

	lookup, err := repo.AccountByEmail(ctx, "other@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "3#1", lookup.Username)
	assert.EqualValues(t, 200, lookup.TelegramID)

	ids, err := repo.ListLinkedTelegramIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, ids, "recipients are deduplicated")
}
