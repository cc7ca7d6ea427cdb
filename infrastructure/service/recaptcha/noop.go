package recaptcha

import (
	"context"

	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// noopRecaptchaService accepts every token. Used when captcha is disabled.
type noopRecaptchaService struct {
	logger logger.Logger
}

func NewNoopRecaptchaService(log logger.Logger) Verifier {
	return &noopRecaptchaService{logger: log}
}

func (n *noopRecaptchaService) Verify(ctx context.Context, token string) error {
	return nil
}

func (n *noopRecaptchaService) IsEnabled() bool {
	return false
}
