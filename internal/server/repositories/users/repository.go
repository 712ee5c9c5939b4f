// Package users keeps a directory of everyone who has signed in.
package users

import (
	"context"

	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

type Repository interface {
	// Upsert records a sign-in for the claimed identity, creating the
	// directory entry on first login.
	Upsert(ctx context.Context, claim models.IdentityClaim) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
