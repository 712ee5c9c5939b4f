// Package httpapi exposes the lost-and-found board over HTTP: Google sign-in,
// the session gate, item submission and the filtered item listing.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/lostfound/internal/server/auth"
	"github.com/dmitrijs2005/lostfound/internal/server/filter"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// AuthService signs users in and resolves their sessions.
type AuthService interface {
	Login(ctx context.Context, credential string) (models.IdentityClaim, *http.Cookie, error)
	Authenticate(ctx context.Context, cookieValue string) (*auth.Session, error)
	Logout(ctx context.Context, cookieValue string) *http.Cookie
	ClearCookie() *http.Cookie
}

// ItemService accepts submissions and lists items.
type ItemService interface {
	Submit(ctx context.Context, submittedBy string, draft models.ItemDraft, image *models.Upload) (*models.Item, error)
	List(ctx context.Context, q filter.Query) ([]*models.Item, error)
}

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
