package syncbridge

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hearthline-bakery/hearthline-api/services"
)

// Bearer tokens are refreshed this long before they expire, so an in-flight
// request never rides a token that dies mid-call.
const tokenExpirySlack = 60 * time.Second

// assertionLifetime bounds the signed claim the token endpoint receives
const assertionLifetime = 5 * time.Minute

// Credentials identify this service to the external store: an email-like
// identifier plus the RSA key that signs its assertions.
type Credentials struct {
	ServiceEmail  string
	PrivateKeyPEM string
	TokenURL      string
	Scope         string
}

// TokenSource exchanges a short-lived signed assertion for a bearer token
// and caches it until shortly before expiry.
type TokenSource struct {
	email      string
	scope      string
	tokenURL   string
	key        *rsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource validates the credentials and parses the signing key.
// Missing credentials are a fatal configuration error for the sync bridge
// only; the rest of the system runs without them.
func NewTokenSource(creds Credentials) (*TokenSource, error) {
	if creds.ServiceEmail == "" || creds.PrivateKeyPEM == "" || creds.TokenURL == "" {
		return nil, fmt.Errorf("%w: sync service email, private key and token URL are required", services.ErrConfigMissing)
	}

	key, err := parsePrivateKey(creds.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrConfigMissing, err)
	}

	scope := creds.Scope
	if scope == "" {
		scope = "catalog.readwrite"
	}

	return &TokenSource{
		email:      creds.ServiceEmail,
		scope:      scope,
		tokenURL:   creds.TokenURL,
		key:        key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}, nil
}

// parsePrivateKey accepts PKCS#8 or PKCS#1 encoded RSA keys
func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("sync private key is not valid PEM")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("sync private key is not an RSA key")
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sync private key: %v", err)
	}
	return key, nil
}

// Token returns a valid bearer token, minting a fresh one only when the
// cached token is within the expiry slack.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry.Add(-tokenExpirySlack)) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint unreachable: %v", services.ErrSyncUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", services.ErrSyncUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed token response: %v", services.ErrSyncUnavailable, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: token response carried no access token", services.ErrSyncUnavailable)
	}

	ts.token = body.AccessToken
	ts.expiry = ts.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return ts.token, nil
}

// signAssertion builds the time-boxed identity claim and signs it RS256
func (ts *TokenSource) signAssertion() (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.email,
		"sub":   ts.email,
		"aud":   ts.tokenURL,
		"scope": ts.scope,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign sync assertion: %w", err)
	}
	return signed, nil
}
