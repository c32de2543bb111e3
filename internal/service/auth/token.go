package auth

import (
	"CourseVault/internal/app_errors"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingMethod = jwt.SigningMethodHS256

// TokenManager is the capability check in front of the editor surface: a
// bearer token either names a valid actor or the request is denied. There is
// no user store behind it; identity management lives elsewhere.
type TokenManager struct {
	secretKey string
	issuer    string
}

func NewTokenManager(secretKey, issuer string) *TokenManager {
	return &TokenManager{secretKey: secretKey, issuer: issuer}
}

type EditorClaims struct {
	ActorID uuid.UUID `json:"actor_id"`
	jwt.RegisteredClaims
}

func (m *TokenManager) EditorClaims(tokenStr string) (*EditorClaims, error) {
	claims := &EditorClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, app_errors.ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse editor token: %w", err)
	}
	if claims.ActorID == uuid.Nil {
		return nil, fmt.Errorf("editor token carries no actor id")
	}
	return claims, nil
}

// IssueEditorToken exists for operational tooling and tests.
func (m *TokenManager) IssueEditorToken(actorID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := EditorClaims{
		ActorID: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(signingMethod, claims)
	signed, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign editor token: %w", err)
	}
	return signed, nil
}
