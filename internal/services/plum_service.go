package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// PlumConfig holds SMS gateway credentials.
type PlumConfig struct {
	BaseURL  string
	Username string
	Password string
	Enabled  bool
	// Message is a fmt template receiving the code.
	Message string
}

// PlumSender delivers one-time codes through the Plum SMS API. The auth token
// is cached and refreshed once on a 401.
type PlumSender struct {
	cfg    PlumConfig
	client *http.Client

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func NewPlumSender(cfg PlumConfig, client *http.Client) *PlumSender {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Message == "" {
		cfg.Message = "Your verification code: %s"
	}
	return &PlumSender{cfg: cfg, client: client}
}

type plumAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (s *PlumSender) authToken(ctx context.Context, force bool) (string, error) {
	if !force {
		s.mu.RLock()
		if s.token != "" && time.Now().Before(s.expiry) {
			t := s.token
			s.mu.RUnlock()
			return t, nil
		}
		s.mu.RUnlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.token != "" && time.Now().Before(s.expiry) {
		return s.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	})
	status, body, err := s.post(ctx, "/auth/login", "", payload)
	if err != nil {
		return "", errors.Wrap(err, "plum auth")
	}
	if status < 200 || status >= 300 {
		return "", errors.Errorf("plum auth failed: status %d, body: %s", status, body)
	}

	var authResp plumAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", errors.Wrap(err, "plum auth unmarshal")
	}
	if authResp.Token == "" {
		return "", errors.New("plum auth: empty token")
	}

	s.token = authResp.Token
	if authResp.ExpiresIn > 0 {
		s.expiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - 30*time.Second)
	} else {
		s.expiry = time.Now().Add(55 * time.Minute)
	}
	return s.token, nil
}

func (s *PlumSender) post(ctx context.Context, path, token string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// Send implements auth.CodeSender.
func (s *PlumSender) Send(ctx context.Context, phone, code string) error {
	if !s.cfg.Enabled {
		return errors.New("plum integration is disabled")
	}
	payload, err := json.Marshal(map[string]string{
		"phone":   strings.TrimPrefix(phone, "+"),
		"message": fmt.Sprintf(s.cfg.Message, code),
	})
	if err != nil {
		return err
	}

	token, err := s.authToken(ctx, false)
	if err != nil {
		return err
	}
	status, body, err := s.post(ctx, "/sms/send", token, payload)
	if err != nil {
		return errors.Wrap(err, "plum send sms")
	}

	if status == http.StatusUnauthorized {
		if token, err = s.authToken(ctx, true); err != nil {
			return err
		}
		if status, body, err = s.post(ctx, "/sms/send", token, payload); err != nil {
			return errors.Wrap(err, "plum send sms")
		}
	}

	if status < 200 || status >= 300 {
		return errors.Errorf("plum send sms: status %d, body: %s", status, body)
	}
	return nil
}

// LogSender writes codes to the log instead of sending them. It is used when
// no SMS gateway is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("sms")}
}

func (s *LogSender) Send(_ context.Context, phone, code string) error {
	s.log.Warn("sms gateway disabled, code not sent", zap.String("phone", phone), zap.String("code", code))
	return nil
}
