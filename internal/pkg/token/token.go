package token

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Service mints and validates the HS256 tokens the feed API expects.
// The client mints one per request from its API key and secret; the
// server side verifies them through jwtauth middleware.
type Service interface {
	Mint(userEmail string) (token string, expiresAt int64, err error)
	ValidateAPIToken(tokenString string) (userEmail string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type TokenService struct {
	apiKey         string
	secretKey      string
	expirationTime string
	tokenAuth      *jwtauth.JWTAuth
}

func NewTokenService(apiKey, secretKey, expirationTime string) Service {
	return &TokenService{
		apiKey:         apiKey,
		secretKey:      secretKey,
		expirationTime: expirationTime,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (t *TokenService) JWTAuth() *jwtauth.JWTAuth {
	return t.tokenAuth
}

// Mint creates a short-lived API token carrying the key and the user the
// requests act on behalf of.
func (t *TokenService) Mint(userEmail string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(t.expirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"api_key": t.apiKey,
		"email":   userEmail,
		"type":    "api",
		"exp":     expiresAt,
	}

	_, tokenString, err := t.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// ValidateAPIToken validates a minted token and returns the user email
// it was issued for.
func (t *TokenService) ValidateAPIToken(tokenString string) (userEmail string, err error) {
	token, err := t.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "api" {
		return "", jwt.ErrInvalidJWT()
	}

	emailVal, ok := token.Get("email")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	userEmail, ok = emailVal.(string)
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	return userEmail, nil
}
