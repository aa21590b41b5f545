package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users (user_id, name, email, password_hash, active, otp_code, otp_expiry, created_at, updated_at)
	VALUES (:user_id, :name, :email, :password_hash, :active, :otp_code, :otp_expiry, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, userID); err != nil {
		return User{}, fmt.Errorf("fetching user[%s]: %w", userID, err)
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		return User{}, fmt.Errorf("fetching user by email: %w", err)
	}

	return usr, nil
}

// Activate flips the user active and discards the spent code.
func Activate(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `
	UPDATE users
	SET active = TRUE, otp_code = NULL, otp_expiry = NULL, updated_at = $2
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("activating user[%s]: %w", userID, err)
	}

	return nil
}

// SetOTP stores a fresh activation code on the user.
func SetOTP(ctx context.Context, db sqlx.ExtContext, userID string, code string, expiry time.Time) error {
	const q = `
	UPDATE users
	SET otp_code = $2, otp_expiry = $3, updated_at = $4
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID, code, expiry, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing activation code for user[%s]: %w", userID, err)
	}

	return nil
}
