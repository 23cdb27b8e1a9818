package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
)

var (
	contextTokenKey = "userToken"
	signingMethod   = middleware.AlgorithmHS256
	audience        = "smart-attendance"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: signingMethod,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued out of band (see the admin `issuetoken` command).
type Claims struct {
	jwt.StandardClaims
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
}

func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name, Role: c.Role, SchoolID: c.SchoolID}
}

// NewClaims returns the claims of a token identifying actor, valid for conf.Server.JWTExpirationDelta.
func NewClaims(conf *core.Config, actor core.Actor) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:     actor.Name,
		Role:     actor.Role,
		SchoolID: actor.SchoolID,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(signingMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextActor returns the authenticated caller, or a zero Actor.
func getContextActor(ctx echo.Context) core.Actor {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}
	}
	return claims.Actor()
}
