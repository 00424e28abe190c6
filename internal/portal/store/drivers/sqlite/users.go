package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shogun1988/authportal/internal/portal/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, password_hash, totp_secret,
	two_factor_enabled, reset_nonce, reset_nonce_issued_at,
	created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, totp_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.TOTPSecret, now, now)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	// Set-once: the guard keeps the original enablement timestamp intact.
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET two_factor_enabled = ?, updated_at = ?
		 WHERE id = ? AND two_factor_enabled IS NULL`,
		now, now, userID)
	return err
}

func (r *usersRepo) SetResetNonce(ctx context.Context, userID string, nonce string) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET reset_nonce = ?, reset_nonce_issued_at = ?, updated_at = ?
		 WHERE id = ?`,
		nonce, now, now, userID)
	return err
}

func (r *usersRepo) ClearResetNonce(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET reset_nonce = NULL, reset_nonce_issued_at = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) ClearStaleResetNonces(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET reset_nonce = NULL, reset_nonce_issued_at = NULL
		 WHERE reset_nonce IS NOT NULL AND reset_nonce_issued_at < ?`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                  domain.User
		twoFactorEnabled   sql.NullTime
		resetNonce         sql.NullString
		resetNonceIssuedAt sql.NullTime
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.TOTPSecret,
		&twoFactorEnabled,
		&resetNonce,
		&resetNonceIssuedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.TwoFactorEnabled = mapNullTimePtr(twoFactorEnabled)
	u.ResetNonce = mapNullStringPtr(resetNonce)
	u.ResetNonceIssuedAt = mapNullTimePtr(resetNonceIssuedAt)

	return u, nil
}
