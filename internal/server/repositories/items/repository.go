// Package items provides the persisted record of lost and found items.
package items

import (
	"context"

	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

type Repository interface {
	// Create validates item, assigns its id, default status and creation
	// time, and persists it. Validation failures are common.ValidationError.
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	// ListAll returns every item, most recent first.
	ListAll(ctx context.Context) ([]*models.Item, error)
}
