package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	DefaultIssuer  = "https://accounts.google.com"
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// ErrNotConfigured is returned when no client id is set.
var ErrNotConfigured = errors.New("google sign-in is not configured")

// Identity is the subset of ID token claims used to provision a user.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

type Config struct {
	ClientID   string
	Issuer     string
	JWKSURL    string
	HTTPClient *http.Client
}

// Verifier checks Google ID tokens against the published signing keys.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier builds a verifier whose key set is fetched lazily on first use.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, ErrNotConfigured
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	keyCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	return NewVerifierWithKeySet(cfg.Issuer, cfg.ClientID, gooidc.NewRemoteKeySet(keyCtx, jwksURL)), nil
}

func NewVerifierWithKeySet(issuer, clientID string, keys gooidc.KeySet) *Verifier {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Verifier{
		verifier: gooidc.NewVerifier(issuer, keys, &gooidc.Config{ClientID: clientID}),
	}
}

// VerifyIDToken validates signature, issuer, audience and expiry and returns the identity.
func (v *Verifier) VerifyIDToken(ctx context.Context, raw string) (*Identity, error) {
	if v == nil || v.verifier == nil {
		return nil, ErrNotConfigured
	}
	token, err := v.verifier.Verify(ctx, strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var id Identity
	if err := token.Claims(&id); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	if id.Email == "" {
		return nil, errors.New("id token has no email claim")
	}
	if !id.EmailVerified {
		return nil, errors.New("google email is not verified")
	}
	return &id, nil
}
