package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pulsewire/pulse/internal/authz"
	"github.com/pulsewire/pulse/internal/config"
	"github.com/pulsewire/pulse/pkg/middleware"
)

// GenerateAccessToken creates a signed JWT access token for the identity
func GenerateAccessToken(cfg *config.Config, id authz.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   id.ID,
		"email": id.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// localToken adapts parsed claims to the middleware.Token interface.
type localToken struct {
	claims jwt.MapClaims
}

func (t *localToken) Claims(v interface{}) error {
	mm, ok := v.(*map[string]interface{})
	if !ok {
		return errors.New("unsupported claims target")
	}
	*mm = map[string]interface{}(t.claims)
	return nil
}

// Verifier validates locally minted HS256 access tokens. It satisfies
// middleware.Verifier so it can be swapped with the OIDC verifier.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return &localToken{claims: claims}, nil
}
