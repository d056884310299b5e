// File: internal/auth/interfaces.go
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountProvider is the account store used for login. It is implemented by
// admin.Service.
type AccountProvider interface {
	// Authenticate returns the account for valid credentials, or an
	// UNAUTHORIZED APIError.
	Authenticate(ctx context.Context, email, password string) (*Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
