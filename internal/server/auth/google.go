package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

const (
	keysRefreshInterval = time.Hour
	keysFetchTimeout    = 10 * time.Second
	// A token signed with an unknown key id refreshes the key set at most
	// once a minute; other such tokens fail instead of waiting.
	unknownKIDRefreshEvery = time.Minute
	unknownKIDWaitMax      = time.Second
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleVerifier validates Google ID tokens against the published key set.
// The key set is fetched once on construction and then refreshed in the
// background until the constructor's context is cancelled.
type GoogleVerifier struct {
	clientID string
	keys     keyfunc.Keyfunc
	now      func() time.Time
}

// NewGoogleVerifier returns a verifier that accepts tokens issued for
// clientID, with signing keys taken from certsURL. A certs endpoint that is
// down at start-up is not an error; verification fails until it recovers.
func NewGoogleVerifier(ctx context.Context, clientID, certsURL string, client *http.Client,
	logger logging.Logger) (*GoogleVerifier, error) {
	if client == nil {
		client = &http.Client{Timeout: keysFetchTimeout}
	}
	logger = logger.With("module", "google_verifier")

	keys, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{certsURL}, keyfunc.Override{
		Client:            client,
		HTTPTimeout:       keysFetchTimeout,
		RefreshInterval:   keysRefreshInterval,
		RateLimitWaitMax:  unknownKIDWaitMax,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDRefreshEvery), 1),
		RefreshErrorHandlerFunc: func(u string) func(ctx context.Context, err error) {
			return func(ctx context.Context, err error) {
				logger.Warn(ctx, "failed to refresh google signing keys", "url", u, "error", err)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google signing keys: %w", err)
	}

	return &GoogleVerifier{
		clientID: clientID,
		keys:     keys,
		now:      time.Now,
	}, nil
}

// Verify checks the signature, issuer, audience and expiry of credential and
// returns the identity it asserts.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (models.IdentityClaim, error) {
	if strings.TrimSpace(credential) == "" {
		return models.IdentityClaim{}, ErrMalformed
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, v.keys.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return models.IdentityClaim{}, classify(err)
	}

	if !googleIssuers[claims.Issuer] {
		return models.IdentityClaim{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidSignature, claims.Issuer)
	}

	claim := models.IdentityClaim{Email: claims.Email, Name: claims.Name, Picture: claims.Picture}
	if !claim.Complete() {
		return models.IdentityClaim{}, fmt.Errorf("%w: token lacks email or name", ErrMalformed)
	}

	return claim, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %w", ErrAudienceMismatch, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
