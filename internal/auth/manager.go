// Package auth owns account verification, one-time codes and sessions.
package auth

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// Flow selects the policy a code is issued and verified under.
type Flow string

const (
	FlowRegister Flow = "register"
	FlowLogin    Flow = "login"
)

const codeDigits = 6

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Policy bounds how often a code may be requested and how many wrong guesses
// are tolerated before the account is blocked.
type Policy struct {
	Cooldown    time.Duration
	MaxAttempts int
}

// Config holds the manager's policies and token settings.
type Config struct {
	Register      Policy
	Login         Policy
	CodeTTL       time.Duration
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	// HashCost is the bcrypt cost for stored codes.
	HashCost int
	// AdminPhones receive the ADMIN role when they verify a code.
	AdminPhones []string
}

// CodeSender delivers a one-time code to a phone number.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// Manager implements the identity and session lifecycle.
type Manager struct {
	store  store.Store
	sender CodeSender
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(st store.Store, sender CodeSender, cfg Config, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		sender: sender,
		cfg:    cfg,
		log:    log.Named("auth"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) policy(flow Flow) (Policy, error) {
	switch flow {
	case FlowRegister:
		return m.cfg.Register, nil
	case FlowLogin:
		return m.cfg.Login, nil
	}
	return Policy{}, apperr.InvalidInput("unknown flow %q", flow)
}

// ValidatePhone normalizes and checks a phone number.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", apperr.InvalidInput("invalid phone number")
	}
	return phone, nil
}

// IssueCode generates a fresh code for phone under flow and delivers it after
// the account write commits. A delivery failure leaves the new code in place.
func (m *Manager) IssueCode(ctx context.Context, flow Flow, phone string) error {
	policy, err := m.policy(flow)
	if err != nil {
		return err
	}
	if phone, err = ValidatePhone(phone); err != nil {
		return err
	}

	code, err := utils.GenerateCode(codeDigits)
	if err != nil {
		return apperr.Internal(err, "generate code")
	}
	hash, err := utils.HashSecret(code, m.cfg.HashCost)
	if err != nil {
		return apperr.Internal(err, "hash code")
	}

	err = m.store.Atomic(ctx, func(tx store.Store) error {
		now := m.now()
		account, err := tx.Accounts().LockByPhone(ctx, phone)
		if errors.Is(err, store.ErrNotFound) {
			if flow != FlowRegister {
				return apperr.Forbidden("account is not registered")
			}
			account = &models.Account{Phone: phone, Status: models.AccountPending, Role: models.RoleUser}
			m.setCode(account, hash, now)
			if err := tx.Accounts().Create(ctx, account); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return apperr.TooManyRequests("a code was just requested for this phone")
				}
				return apperr.Internal(err, "create account")
			}
			return nil
		}
		if err != nil {
			return apperr.Internal(err, "load account")
		}

		if account.IsBlocked() {
			return apperr.Forbidden("account is blocked")
		}
		switch {
		case flow == FlowRegister && account.Status == models.AccountVerified:
			return apperr.AlreadyExists("account is already verified")
		case flow == FlowLogin && account.Status != models.AccountVerified:
			return apperr.Forbidden("account is not verified")
		}
		if account.OTPRequestedAt != nil {
			if wait := policy.Cooldown - now.Sub(*account.OTPRequestedAt); wait > 0 {
				return apperr.TooManyRequests("please wait %d seconds before requesting a new code", int(math.Ceil(wait.Seconds())))
			}
		}

		m.setCode(account, hash, now)
		if err := tx.Accounts().Save(ctx, account); err != nil {
			return apperr.Internal(err, "save account")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, phone, code); err != nil {
		m.log.Warn("code delivery failed", zap.String("flow", string(flow)), zap.String("phone", maskPhone(phone)), zap.Error(err))
		return apperr.Delivery(err, "failed to deliver verification code")
	}
	m.log.Info("code issued", zap.String("flow", string(flow)), zap.String("phone", maskPhone(phone)))
	return nil
}

func (m *Manager) setCode(account *models.Account, hash string, now time.Time) {
	expiry := now.Add(m.cfg.CodeTTL)
	requested := now
	account.OTPCodeHash = &hash
	account.OTPExpiry = &expiry
	account.OTPRequestedAt = &requested
	account.OTPAttempts = 0
}

func codeMatches(account *models.Account, code string, now time.Time) bool {
	if account.OTPCodeHash == nil || account.OTPExpiry == nil {
		return false
	}
	if now.After(*account.OTPExpiry) {
		return false
	}
	return utils.CheckSecret(*account.OTPCodeHash, code)
}

// VerifyCode checks code for phone under flow and opens a session on success.
// A wrong or expired code counts as an attempt even though an error is
// returned; reaching the flow's limit blocks the account.
func (m *Manager) VerifyCode(ctx context.Context, flow Flow, phone, code string) (*Session, error) {
	policy, err := m.policy(flow)
	if err != nil {
		return nil, err
	}
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, apperr.InvalidInput("phone and code are required")
	}

	var (
		session  *Session
		rejected error
	)
	err = m.store.Atomic(ctx, func(tx store.Store) error {
		rejected = nil
		now := m.now()

		account, err := tx.Accounts().LockByPhone(ctx, phone)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("account not found")
		}
		if err != nil {
			return apperr.Internal(err, "load account")
		}
		if account.IsBlocked() {
			return apperr.Forbidden("account is blocked")
		}

		if !codeMatches(account, code, now) {
			account.OTPAttempts++
			if account.OTPAttempts >= policy.MaxAttempts {
				account.Status = models.AccountBlocked
				account.OTPCodeHash = nil
				account.OTPExpiry = nil
				account.RefreshToken = nil
				rejected = apperr.Forbidden("too many failed attempts, account is blocked")
			} else {
				rejected = apperr.InvalidOrExpired("invalid or expired code")
			}
			if err := tx.Accounts().Save(ctx, account); err != nil {
				return apperr.Internal(err, "save account")
			}
			return nil
		}

		switch flow {
		case FlowRegister:
			if account.Status == models.AccountPending {
				account.Status = models.AccountVerified
			}
		case FlowLogin:
			if account.Status != models.AccountVerified {
				return apperr.Forbidden("account is not verified")
			}
		}
		if slices.Contains(m.cfg.AdminPhones, account.Phone) {
			account.Role = models.RoleAdmin
		}

		account.ClearCode()
		session, err = m.openSession(account, now)
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
	if rejected != nil {
		m.log.Info("code rejected", zap.String("flow", string(flow)), zap.String("phone", maskPhone(phone)), zap.Error(rejected))
		return nil, rejected
	}
	return session, nil
}

// Me returns the caller's account.
func (m *Manager) Me(ctx context.Context, caller models.Caller) (*models.Account, error) {
	account, err := m.store.Accounts().ByID(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load account")
	}
	return account, nil
}

// ListAccounts is the admin account listing.
func (m *Manager) ListAccounts(ctx context.Context, search string, page store.Page) ([]models.Account, int64, error) {
	accounts, total, err := m.store.Accounts().List(ctx, search, page)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list accounts")
	}
	return accounts, total, nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return fmt.Sprintf("%s%s", strings.Repeat("*", len(phone)-4), phone[len(phone)-4:])
}
