package ghapp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// App mints short-lived GitHub App JWTs signed with the app's private key.
// Tokens are cached until shortly before expiry.
type App struct {
	appID string
	key   *rsa.PrivateKey

	mu      sync.Mutex
	token   string
	expires time.Time
}

const tokenTTL = 9 * time.Minute

// New parses the PEM-encoded private key and returns an App token source.
func New(appID, keyPEM string) (*App, error) {
	if appID == "" {
		return nil, fmt.Errorf("empty app id")
	}
	key, err := jwtlib.ParseRSAPrivateKeyFromPEM([]byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	return &App{appID: appID, key: key}, nil
}

// Token returns a cached app JWT, minting a fresh one when the cached token
// is within a minute of expiry.
func (a *App) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if a.token != "" && now.Before(a.expires.Add(-time.Minute)) {
		return a.token, nil
	}

	claims := jwtlib.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwtlib.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign app token: %w", err)
	}
	a.token = signed
	a.expires = now.Add(tokenTTL)
	return signed, nil
}
