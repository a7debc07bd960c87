package identitysvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

// Claims represents the identity claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// JWTVerifier verifies HS256 tokens signed with the app secret key.
// It stands in for the identity provider in DEV & TEST.
type JWTVerifier struct {
	key    []byte
	issuer string
}

var _ core.IdentityVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(conf *core.Config) *JWTVerifier {
	return &JWTVerifier{key: []byte(conf.SecretKey), issuer: conf.Identity.Issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (core.Identity, error) {
	claims := new(Claims)
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %s", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil || !tok.Valid {
		return core.Identity{}, core.ErrInvalidToken
	}
	if !claims.VerifyIssuer(v.issuer, true) || claims.Subject == "" {
		return core.Identity{}, core.ErrInvalidToken
	}
	return core.Identity{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// IssueToken generates a signed token for the identity, valid for ttl.
func (v *JWTVerifier) IssueToken(ident core.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    v.issuer,
			Subject:   ident.Subject,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: ident.Email,
		Name:  ident.Name,
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}
