package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/hash"
)

// PostgresRepository implements AccountRepository on the legacy schema.
// Uniqueness is enforced by the database's unique indexes, not by the
// pre-checks, so concurrent registrations with the same email resolve
// to exactly one winner.
type PostgresRepository struct {
	db          *pgxpool.Pool
	maxAccounts func() int
}

// NewPostgresRepository takes the account limit as a func so config
// reloads apply to the transactional check without a restart.
func NewPostgresRepository(db *pgxpool.Pool, maxAccounts func() int) *PostgresRepository {
	return &PostgresRepository{db: db, maxAccounts: maxAccounts}
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.db.QueryRow(ctx,
		"SELECT 1 FROM battlenet_accounts WHERE email=$1", strings.ToUpper(email)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("email exists check: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) CountLinkedAccounts(ctx context.Context, telegramID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE telegram_id=$1", telegramID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count linked accounts: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CreateRegistrationBundle(ctx context.Context, _, password, email string, telegramID int64) (string, error) {
	mu := strings.ToUpper(email)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback(ctx)

	var linked int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE telegram_id=$1", telegramID).Scan(&linked); err != nil {
		return "", fmt.Errorf("registration limit check: %w", err)
	}
	if linked >= r.maxAccounts() {
		return "", ErrAccountLimit
	}

	var bid int
	err = tx.QueryRow(ctx, `
		INSERT INTO battlenet_accounts (email, sha_pass_hash, is_temp_password)
		VALUES ($1, $2, false)
		RETURNING id
	`, mu, hash.AuthHash(mu, password)).Scan(&bid)
	if err != nil {
		return "", mapUniqueViolation(err, "insert credential")
	}

	username := strconv.Itoa(bid) + "#1"
	_, err = tx.Exec(ctx, `
		INSERT INTO account (username, sha_pass_hash, email, battlenet_account)
		VALUES ($1, $2, $3, $4)
	`, username, hash.AccountHash(username, password), mu, bid)
	if err != nil {
		return "", mapUniqueViolation(err, "insert account")
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO account_access (id, gmlevel, "RealmID") VALUES ($1, 3, -1)`, bid); err != nil {
		return "", fmt.Errorf("insert access grant: %w", err)
	}

	if _, err = tx.Exec(ctx,
		"INSERT INTO users (telegram_id, email) VALUES ($1, $2)", telegramID, mu); err != nil {
		return "", fmt.Errorf("insert telegram link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit registration: %w", err)
	}
	return username, nil
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, email string) (string, error) {
	mu := strings.ToUpper(email)

	tmp, err := newTempPassword()
	if err != nil {
		return "", fmt.Errorf("generate temp password: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE battlenet_accounts
		SET sha_pass_hash=$1, is_temp_password=true, temp_password=$2
		WHERE email=$3
	`, hash.AuthHash(mu, tmp), tmp, mu)
	if err != nil {
		return "", fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}

	if err := r.rehashGameAccount(ctx, tx, mu, tmp); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit reset: %w", err)
	}
	return tmp, nil
}

func (r *PostgresRepository) ChangePassword(ctx context.Context, email, newPassword string) error {
	mu := strings.ToUpper(email)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin password change: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE battlenet_accounts
		SET sha_pass_hash=$1, is_temp_password=false, temp_password=NULL
		WHERE email=$2
	`, hash.AuthHash(mu, newPassword), mu)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := r.rehashGameAccount(ctx, tx, mu, newPassword); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit password change: %w", err)
	}
	return nil
}

// rehashGameAccount recomputes account.sha_pass_hash after a credential
// password changed. The account row can legitimately be missing on
// half-imported dumps; that is not an error here.
func (r *PostgresRepository) rehashGameAccount(ctx context.Context, tx pgx.Tx, mu, password string) error {
	var username string
	err := tx.QueryRow(ctx, "SELECT username FROM account WHERE email=$1", mu).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account username: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE account SET sha_pass_hash=$1 WHERE email=$2",
		hash.AccountHash(username, password), mu); err != nil {
		return fmt.Errorf("update account hash: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAccountForUser(ctx context.Context, telegramID int64, email string) error {
	mu := strings.ToUpper(email)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx,
		"SELECT 1 FROM users WHERE telegram_id=$1 AND email=$2", telegramID, mu).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOwnership
	}
	if err != nil {
		return fmt.Errorf("ownership check: %w", err)
	}

	if err := deleteBundle(ctx, tx, mu); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"DELETE FROM users WHERE telegram_id=$1 AND email=$2", telegramID, mu); err != nil {
		return fmt.Errorf("delete telegram link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAccountAsAdmin(ctx context.Context, email string) (int64, error) {
	mu := strings.ToUpper(email)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin admin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	err = tx.QueryRow(ctx, "SELECT 1 FROM battlenet_accounts WHERE email=$1", mu).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credential lookup: %w", err)
	}

	var linked int64
	err = tx.QueryRow(ctx, "SELECT telegram_id FROM users WHERE email=$1 LIMIT 1", mu).Scan(&linked)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("link lookup: %w", err)
	}

	if err := deleteBundle(ctx, tx, mu); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM users WHERE email=$1", mu); err != nil {
		return 0, fmt.Errorf("delete telegram link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit admin delete: %w", err)
	}
	return linked, nil
}

// deleteBundle removes access grants, the game account and the
// credential, children before parents.
func deleteBundle(ctx context.Context, tx pgx.Tx, mu string) error {
	if _, err := tx.Exec(ctx,
		"DELETE FROM account_access WHERE id IN (SELECT battlenet_account FROM account WHERE email=$1)", mu); err != nil {
		return fmt.Errorf("delete access grants: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM account WHERE email=$1", mu); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM battlenet_accounts WHERE email=$1", mu); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AccountsForUser(ctx context.Context, telegramID int64) ([]entities.AccountInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.email, COALESCE(a.username, ''), b.is_temp_password,
		       COALESCE(b.temp_password, ''), COALESCE(a.coins, 0)
		FROM users u
		JOIN battlenet_accounts b ON u.email = b.email
		LEFT JOIN account a ON b.email = a.email
		WHERE u.telegram_id=$1
		ORDER BY b.email
	`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []entities.AccountInfo
	for rows.Next() {
		var info entities.AccountInfo
		if err := rows.Scan(&info.Email, &info.Username, &info.IsTempPassword,
			&info.TempPassword, &info.Coins); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AccountByEmail(ctx context.Context, email string) (*AdminLookup, error) {
	mu := strings.ToUpper(email)

	var lookup AdminLookup
	err := r.db.QueryRow(ctx, `
		SELECT a.username, COALESCE(u.telegram_id, 0)
		FROM account a
		LEFT JOIN users u ON u.email = a.email
		WHERE a.email=$1
	`, mu).Scan(&lookup.Username, &lookup.TelegramID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	return &lookup, nil
}

func (r *PostgresRepository) ListLinkedTelegramIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT DISTINCT telegram_id FROM users")
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan telegram id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) AddCoins(ctx context.Context, email string, amount int) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx, `
		UPDATE account SET coins = coins + $1 WHERE email=$2
		RETURNING coins
	`, amount, strings.ToUpper(email)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add coins: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Counts(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM battlenet_accounts),
		       (SELECT COUNT(*) FROM account),
		       (SELECT COUNT(*) FROM users)
	`).Scan(&s.Credentials, &s.GameAccounts, &s.Links)
	if err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return s, nil
}

// mapUniqueViolation turns SQLSTATE 23505 into the typed errors callers
// can show to users; anything else stays a persistence error.
func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrEmailExists
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrUsernameExists
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
