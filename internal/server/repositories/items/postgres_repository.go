package items

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/dbx"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

// PostgresRepository implements item storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a single item and returns the stored record. The row is
// written by one statement, so a concurrent reader sees either the whole
// record or nothing. The caller's item is left untouched.
func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	out := *item
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Status == "" {
		out.Status = models.ItemStatusOpen
	}

	query := `
		INSERT INTO items (id, title, description, type, location, image_url, storage_key,
			contact_email, contact_phone, hostel_address, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		out.ID, out.Title, out.Description, string(out.Type), out.Location, out.ImageURL, out.StorageKey,
		out.ContactEmail, out.ContactPhone, out.HostelAddress, string(out.Status), out.SubmittedBy,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrPersistenceUnavailable, err)
	}

	return &out, nil
}

// ListAll returns all items ordered by creation time, newest first. The
// insertion sequence breaks ties between identical timestamps.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Item, error) {
	query := `
		SELECT id, title, description, type, location, image_url, storage_key,
			contact_email, contact_phone, hostel_address, status, submitted_by, created_at
		FROM items
		ORDER BY created_at DESC, seq DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select items: %w", common.ErrPersistenceUnavailable, err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		var (
			item           models.Item
			itemType, stat string
		)
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &itemType, &item.Location, &item.ImageURL, &item.StorageKey,
			&item.ContactEmail, &item.ContactPhone, &item.HostelAddress, &stat, &item.SubmittedBy, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan item: %w", common.ErrPersistenceUnavailable, err)
		}
		item.Type = models.ItemType(itemType)
		item.Status = models.ItemStatus(stat)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}

	return result, nil
}
