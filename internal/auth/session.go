package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// Session is the token pair handed to a client after verification or
// refresh.
type Session struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Account      *models.Account `json:"user"`
}

// openSession signs a new token pair and stores the refresh token on the
// account. The caller persists the account.
func (m *Manager) openSession(account *models.Account, now time.Time) (*Session, error) {
	subject := account.ID.String()

	access, err := utils.SignToken(utils.Claims{
		Role: string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}, m.cfg.AccessSecret, m.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Internal(err, "sign access token")
	}

	refresh, err := utils.SignToken(utils.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}, m.cfg.RefreshSecret, m.cfg.RefreshTTL)
	if err != nil {
		return nil, apperr.Internal(err, "sign refresh token")
	}

	account.RefreshToken = &refresh
	return &Session{AccessToken: access, RefreshToken: refresh, Account: account}, nil
}

func (m *Manager) parse(token, secret string) (uuid.UUID, *utils.Claims, error) {
	claims, err := utils.ParseToken(token, secret, jwt.WithTimeFunc(m.now))
	if err != nil {
		return uuid.Nil, nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, errors.Wrap(err, "parse subject")
	}
	return id, claims, nil
}

func sameToken(stored *string, token string) bool {
	return stored != nil && subtle.ConstantTimeCompare([]byte(*stored), []byte(token)) == 1
}

// Refresh rotates the token pair. Only the most recently issued refresh token
// of an account is accepted.
func (m *Manager) Refresh(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Forbidden("refresh token is required")
	}
	id, _, err := m.parse(token, m.cfg.RefreshSecret)
	if err != nil {
		return nil, apperr.Forbidden("invalid refresh token")
	}

	var session *Session
	err = m.store.Atomic(ctx, func(tx store.Store) error {
		account, err := tx.Accounts().LockByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Forbidden("invalid refresh token")
		}
		if err != nil {
			return apperr.Internal(err, "load account")
		}
		if account.IsBlocked() {
			return apperr.Forbidden("account is blocked")
		}
		if !sameToken(account.RefreshToken, token) {
			return apperr.Forbidden("refresh token has been revoked")
		}

		session, err = m.openSession(account, m.now())
		if err != nil {
			return err
		}
		if err := tx.Accounts().Save(ctx, account); err != nil {
			return apperr.Internal(err, "save account")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes token if it is the account's current refresh token. It never
// fails; problems are logged.
func (m *Manager) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	id, _, err := m.parse(token, m.cfg.RefreshSecret)
	if err != nil {
		m.log.Debug("logout with unusable token", zap.Error(err))
		return
	}

	err = m.store.Atomic(ctx, func(tx store.Store) error {
		account, err := tx.Accounts().LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !sameToken(account.RefreshToken, token) {
			return nil
		}
		account.RefreshToken = nil
		return tx.Accounts().Save(ctx, account)
	})
	if err != nil {
		m.log.Warn("logout failed", zap.Stringer("account_id", id), zap.Error(err))
	}
}

// Authenticate verifies an access token without touching the store.
func (m *Manager) Authenticate(accessToken string) (models.Caller, error) {
	if accessToken == "" {
		return models.Caller{}, apperr.Unauthorized("missing access token")
	}
	id, claims, err := m.parse(accessToken, m.cfg.AccessSecret)
	if err != nil {
		return models.Caller{}, apperr.Unauthorized("invalid or expired token")
	}
	role := models.Role(claims.Role)
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	return models.Caller{UserID: id, Role: role}, nil
}
