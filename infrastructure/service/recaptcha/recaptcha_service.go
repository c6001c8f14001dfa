package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

const defaultSiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type Config struct {
	SecretKey     string
	SiteVerifyURL string
	Enabled       bool
	Skip          bool
	Timeout       time.Duration
	MinScore      float64
}

// recaptchaService answers the human check against the siteverify API.
type recaptchaService struct {
	secretKey     string
	siteVerifyURL string
	enabled       bool
	skip          bool
	minScore      float64
	logger        logger.Logger
	httpClient    *http.Client
}

// RecaptchaResponse is the siteverify answer. Score and Action are only set
// by v3 keys.
type RecaptchaResponse struct {
	Success     bool      `json:"success"`
	Score       float64   `json:"score,omitempty"`
	Action      string    `json:"action,omitempty"`
	ChallengeTS time.Time `json:"challenge_ts"`
	Hostname    string    `json:"hostname"`
	ErrorCodes  []string  `json:"error-codes,omitempty"`
}

func NewRecaptchaService(cfg Config, log logger.Logger) inbound.HumanVerifier {
	if cfg.SiteVerifyURL == "" {
		cfg.SiteVerifyURL = defaultSiteVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &recaptchaService{
		secretKey:     cfg.SecretKey,
		siteVerifyURL: cfg.SiteVerifyURL,
		enabled:       cfg.Enabled,
		skip:          cfg.Skip,
		minScore:      cfg.MinScore,
		logger:        log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsHuman returns false with a nil error when the provider says no, and an
// error only when the provider could not be asked.
func (s *recaptchaService) IsHuman(ctx context.Context, challengeID, response string) (bool, error) {
	if !s.IsEnabled() {
		s.logger.Debug(ctx, "reCAPTCHA verification skipped", nil)
		return true, nil
	}

	if response == "" {
		s.logger.Warn(ctx, "reCAPTCHA response is empty", nil)
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", s.secretKey)
	form.Set("response", response)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.siteVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create reCAPTCHA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error(ctx, "reCAPTCHA request failed", err, nil)
		return false, fmt.Errorf("reCAPTCHA service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("reCAPTCHA service returned status %d", resp.StatusCode)
	}

	var result RecaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.logger.Error(ctx, "failed to decode reCAPTCHA response", err, nil)
		return false, fmt.Errorf("failed to decode reCAPTCHA response: %w", err)
	}

	fields := map[string]interface{}{
		"success":     result.Success,
		"score":       result.Score,
		"action":      result.Action,
		"hostname":    result.Hostname,
		"error_codes": result.ErrorCodes,
	}

	if !result.Success {
		s.logger.Warn(ctx, "reCAPTCHA verification failed", fields)
		return false, nil
	}
	if challengeID != "" && result.Action != "" && result.Action != challengeID {
		s.logger.Warn(ctx, "reCAPTCHA action mismatch", fields)
		return false, nil
	}
	if result.Action != "" && result.Score < s.minScore {
		s.logger.Warn(ctx, "reCAPTCHA score below threshold", fields)
		return false, nil
	}

	s.logger.Debug(ctx, "reCAPTCHA verification successful", fields)
	return true, nil
}

func (s *recaptchaService) IsEnabled() bool {
	return s.enabled && !s.skip
}
