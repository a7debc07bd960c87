package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/user"
)

const (
	authScheme     = "Bearer"
	contextUserKey = "user"
)

// bearerToken extracts the token from the Authorization header.
func bearerToken(ctx echo.Context) (string, bool) {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	l := len(authScheme)
	if len(auth) <= l+1 || !strings.EqualFold(auth[:l], authScheme) || auth[l] != ' ' {
		return "", false
	}
	token := strings.TrimSpace(auth[l+1:])
	return token, token != ""
}

// authMiddleware verifies the bearer token with the identity provider, then loads
// (or creates on first login) the matching User into the context.
func authMiddleware(verifier core.IdentityVerifier, svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx)
			if !ok {
				return errMissingToken
			}
			ident, err := verifier.Verify(ctx.Request().Context(), token)
			if err != nil {
				if errors.Cause(err) == core.ErrInvalidToken {
					return errInvalidToken
				}
				return errors.Wrap(err, "verifying token")
			}

			usr, err := svc.Provision(ctx.Request().Context(), ident)
			if err != nil {
				return errors.Wrap(err, "provisioning user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
