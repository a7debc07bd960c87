package identitysvc

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/examhall/core"
)

// FirebaseVerifier verifies Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

var _ core.IdentityVerifier = (*FirebaseVerifier)(nil)

func NewFirebaseVerifier(ctx context.Context, conf *core.Config) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if conf.Identity.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Identity.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.Identity.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth")
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (core.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return core.Identity{}, verifyError(err)
	}
	ident := core.Identity{Subject: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		ident.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		ident.Name = name
	}
	return ident, nil
}

// verifyError reports rejected tokens as core.ErrInvalidToken.
// Other failures, such as the signing keys being unreachable, are not the client's fault.
func verifyError(err error) error {
	if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) {
		return core.ErrInvalidToken
	}
	return errors.Wrap(err, "verifying firebase ID token")
}
