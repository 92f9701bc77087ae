package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, user_name, email_address, password_hash, is_active, last_logged_in, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email domain.EmailAddress) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_address = ?`, email.String())
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, user_name, email_address, password_hash, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(),
		u.Name.String(),
		u.Email.String(),
		u.PasswordHash,
		u.IsActive,
		now,
		now,
	)
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}

	u.LastLoggedIn = nil
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id domain.UserID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateLastLoggedIn(ctx context.Context, id domain.UserID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_logged_in = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, id domain.UserID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		idStr        string
		name         string
		email        string
		passwordHash string
		isActive     bool
		lastLoggedIn sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&idStr, &name, &email, &passwordHash, &isActive, &lastLoggedIn, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	id, err := domain.ParseID[domain.User](idStr)
	if err != nil {
		return domain.User{}, err
	}

	var lastLogin *time.Time
	if lastLoggedIn.Valid {
		t := lastLoggedIn.Time
		lastLogin = &t
	}

	return domain.User{
		ID:           id,
		Name:         domain.UserName(name),
		Email:        domain.EmailAddress(email),
		PasswordHash: passwordHash,
		IsActive:     isActive,
		LastLoggedIn: lastLogin,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
