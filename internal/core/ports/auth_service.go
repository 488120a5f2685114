package ports

import (
	"context"

	"github.com/meterline/subscription-service/internal/core/domain"
)

// AccountService covers registration, login and the password-reset flow.
type AccountService interface {
	Register(ctx context.Context, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
