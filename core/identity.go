package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated principal as asserted by the identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityVerifier verifies bearer tokens issued by the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
