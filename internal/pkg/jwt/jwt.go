package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var ErrInvalidClaims = errors.New("token is missing user_id or role")

// Service verifies access tokens issued by the identity service and maps
// their claims to a payroll actor.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	ActorFromClaims(claims map[string]interface{}) (user.Actor, error)
	// IssueToken signs a short-lived access token. Used by workers and tests.
	IssueToken(actor user.Actor, ttl time.Duration) (string, error)
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) ActorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	id, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if id == "" || role == "" {
		return user.Actor{}, ErrInvalidClaims
	}
	if typ, ok := claims["type"].(string); ok && typ != "access" {
		return user.Actor{}, fmt.Errorf("unexpected token type %q", typ)
	}
	return user.Actor{ID: id, Role: user.Role(role)}, nil
}

func (j *JWTService) IssueToken(actor user.Actor, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"user_id": actor.ID,
		"role":    string(actor.Role),
		"type":    "access",
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, ttl)

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
