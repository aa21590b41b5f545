package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/sajidkabir/storefront/core/cart"
	"github.com/sajidkabir/storefront/core/user"
	"github.com/sajidkabir/storefront/database"
	"github.com/sajidkabir/storefront/random"
	"github.com/sajidkabir/storefront/validate"
	"golang.org/x/crypto/bcrypt"
)

const otpLength = 6

// Mailer delivers activation codes; the email package implements it.
type Mailer interface {
	SendActivation(to string, name string, code string) error
}

func HandleSignup(db *sqlx.DB, mailer Mailer, otpTimeout time.Duration) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var su user.UserSignup
		if err := web.Decode(w, r, &su); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(su); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		code := random.String(otpLength)
		expiry := time.Now().UTC().Add(otpTimeout)

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Name:         su.Name,
			Email:        su.Email,
			PasswordHash: hash,
			Active:       false,
			OTPCode:      &code,
			OTPExpiry:    &expiry,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			if database.IsUniqueViolation(err) {
				return weberr.Conflict(errors.New("email already registered"))
			}
			return fmt.Errorf("creating user: %w", err)
		}

		if err := mailer.SendActivation(usr.Email, usr.Name, code); err != nil {
			return fmt.Errorf("sending activation code: %w", err)
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

// HandleResendActivation mints a fresh code for a not-yet-active account
// and mails it again. Resending for an already active account is a no-op.
func HandleResendActivation(db *sqlx.DB, mailer Mailer, otpTimeout time.Duration) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rs user.UserResend
		if err := web.Decode(w, r, &rs); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rs); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, rs.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if usr.Active {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		code := random.String(otpLength)
		expiry := time.Now().UTC().Add(otpTimeout)

		if err := user.SetOTP(ctx, db, usr.ID, code, expiry); err != nil {
			return err
		}

		if err := mailer.SendActivation(usr.Email, usr.Name, code); err != nil {
			return fmt.Errorf("sending activation code: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleActivate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ua user.UserActivate
		if err := web.Decode(w, r, &ua); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(ua); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, ua.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if usr.Active {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if usr.OTPCode == nil || *usr.OTPCode != ua.Code {
			return weberr.NewError(errors.New("wrong activation code"), "wrong activation code", http.StatusUnprocessableEntity)
		}

		if usr.OTPExpiry == nil || time.Now().UTC().After(*usr.OTPExpiry) {
			return weberr.NewError(errors.New("activation code expired"), "activation code expired", http.StatusUnprocessableEntity)
		}

		if err := user.Activate(ctx, db, usr.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleLogin verifies the credentials, renews the session and folds any
// anonymous cart accumulated before login into the user's cart.
func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var lg user.UserLogin
		if err := web.Decode(w, r, &lg); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(lg); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, lg.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotAuthorized(errors.New("wrong email or password"))
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(lg.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("wrong email or password"))
		}

		if !usr.Active {
			return weberr.NotAuthorized(errors.New("account is not activated"))
		}

		if err := session.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		session.Put(ctx, sessionUserID, usr.ID)

		if token := cart.SessionToken(ctx, session); token != "" {
			if err := cart.Merge(ctx, db, token, usr.ID); err != nil {
				return fmt.Errorf("merging anonymous cart: %w", err)
			}
			cart.ClearSessionToken(ctx, session)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
