package recaptcha

import (
	"context"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

// noopRecaptchaService passes every challenge. Used when the feature is off.
type noopRecaptchaService struct {
	logger logger.Logger
}

func NewNoopRecaptchaService(log logger.Logger) inbound.HumanVerifier {
	return &noopRecaptchaService{logger: log}
}

func (n *noopRecaptchaService) IsHuman(ctx context.Context, challengeID, response string) (bool, error) {
	if n.logger != nil {
		n.logger.Debug(ctx, "noop reCAPTCHA: verification skipped", nil)
	}
	return true, nil
}

func (n *noopRecaptchaService) IsEnabled() bool {
	return false
}
