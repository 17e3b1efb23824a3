// Package repository is the persistence boundary for the four legacy
// auth tables. Every write either fully succeeds or leaves no visible
// state; uniqueness races surface as the typed errors below.
package repository

import (
	"context"
	"errors"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
)

var (
	// ErrEmailExists is returned when the credential insert hits the
	// email uniqueness constraint, including the pre-check/commit race.
	ErrEmailExists = errors.New("email already registered")
	// ErrUsernameExists is returned when the account insert hits the
	// username uniqueness constraint. With generated usernames this only
	// fires on databases restored with conflicting rows.
	ErrUsernameExists = errors.New("username already taken")
	// ErrAccountLimit is returned when a Telegram user already owns the
	// configured maximum number of linked accounts.
	ErrAccountLimit = errors.New("account limit reached")
	// ErrNotFound is returned for operations against an email with no
	// credential row.
	ErrNotFound = errors.New("account not found")
	// ErrOwnership is returned when a user-initiated operation targets
	// an email not linked to that Telegram user. Callers must render it
	// the same as ErrNotFound; it exists for audit logging.
	ErrOwnership = errors.New("account not linked to this user")
)

// AdminLookup is what the admin "find account" view needs.
type AdminLookup struct {
	Username   string
	TelegramID int64
}

// Stats are the operational counters shown in the admin panel and the
// ops API.
type Stats struct {
	Credentials  int `json:"credentials"`
	GameAccounts int `json:"game_accounts"`
	Links        int `json:"telegram_links"`
}

// AccountRepository owns transactional integrity per operation. All
// methods are safe for concurrent use across different users/emails.
type AccountRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CountLinkedAccounts(ctx context.Context, telegramID int64) (int, error)

	// CreateRegistrationBundle inserts credential, game account, access
	// grant and Telegram link as one unit and returns the generated
	// username. The nickname is accepted for policy symmetry but the
	// username is derived from the credential id (<id>#1).
	CreateRegistrationBundle(ctx context.Context, nickname, password, email string, telegramID int64) (string, error)

	// ResetPassword issues an 8-hex-char uppercase temporary password,
	// rewrites both hashes and flags the credential as temporary.
	ResetPassword(ctx context.Context, email string) (string, error)
	// ChangePassword rewrites both hashes and clears the temporary flag.
	// Returns ErrNotFound if no credential exists for the email.
	ChangePassword(ctx context.Context, email, newPassword string) error

	// DeleteAccountForUser verifies the (telegramID, email) link before
	// cascading the delete; ErrOwnership without side effects otherwise.
	DeleteAccountForUser(ctx context.Context, telegramID int64, email string) error
	// DeleteAccountAsAdmin skips the ownership check and returns the
	// previously linked Telegram id (0 if none) for out-of-band notice.
	DeleteAccountAsAdmin(ctx context.Context, email string) (int64, error)

	AccountsForUser(ctx context.Context, telegramID int64) ([]entities.AccountInfo, error)
	AccountByEmail(ctx context.Context, email string) (*AdminLookup, error)
	ListLinkedTelegramIDs(ctx context.Context) ([]int64, error)

	AddCoins(ctx context.Context, email string, amount int) (int, error)
	Counts(ctx context.Context) (Stats, error)
}
