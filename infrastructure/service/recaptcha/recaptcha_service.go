package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	ErrTokenRequired      = errors.New("captcha token is required")
	ErrVerificationFailed = errors.New("captcha verification failed")
)

// Verifier checks a login captcha token.
type Verifier interface {
	Verify(ctx context.Context, token string) error
	IsEnabled() bool
}

type Config struct {
	SecretKey string
	Enabled   bool
	Timeout   time.Duration
	VerifyURL string
}

type recaptchaService struct {
	secretKey  string
	verifyURL  string
	enabled    bool
	logger     logger.Logger
	httpClient *http.Client
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// NewRecaptchaService returns a disabled verifier when cfg.Enabled is false.
func NewRecaptchaService(cfg Config, log logger.Logger) Verifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if !cfg.Enabled {
		return NewNoopRecaptchaService(log)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	return &recaptchaService{
		secretKey:  cfg.SecretKey,
		verifyURL:  cfg.VerifyURL,
		enabled:    true,
		logger:     log,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *recaptchaService) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		s.logger.Warn(ctx, "Captcha token missing on login", nil)
		return ErrTokenRequired
	}

	form := url.Values{}
	form.Set("secret", s.secretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error(ctx, "Captcha service unavailable", err, nil)
		return fmt.Errorf("captcha service unavailable: %w", err)
	}
	defer resp.Body.Close()

	var result siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}

	fields := map[string]interface{}{
		"success":     result.Success,
		"score":       result.Score,
		"hostname":    result.Hostname,
		"error_codes": result.ErrorCodes,
	}
	if !result.Success {
		s.logger.Warn(ctx, "Captcha verification failed", fields)
		return ErrVerificationFailed
	}
	s.logger.Debug(ctx, "Captcha verified", fields)
	return nil
}

func (s *recaptchaService) IsEnabled() bool {
	return s.enabled
}
