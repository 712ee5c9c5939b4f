package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/assets"
	"github.com/dmitrijs2005/lostfound/internal/server/filter"
	"github.com/dmitrijs2005/lostfound/internal/server/metrics"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
	"github.com/dmitrijs2005/lostfound/internal/server/repositories/items"
	"github.com/dmitrijs2005/lostfound/internal/server/repositories/repomanager"
)

const discardTimeout = 10 * time.Second

// Ingester stores submitted images.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, mimeHint string) (*assets.Asset, error)
	Discard(ctx context.Context, key string) error
}

type ItemService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ingester    Ingester
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewItemService(db *sql.DB, m repomanager.RepositoryManager, ingester Ingester, logger logging.Logger, mtr *metrics.Metrics) *ItemService {
	return &ItemService{
		db:          db,
		repomanager: m,
		ingester:    ingester,
		logger:      logger,
		metrics:     mtr,
	}
}

// Submit validates the draft, uploads the image and persists the record, in
// that order. Field problems are returned as common.ValidationError before
// anything is uploaded. If the record cannot be saved the uploaded image is
// removed again, so a failed submission leaves neither a record nor an asset.
func (s *ItemService) Submit(ctx context.Context, submittedBy string, draft models.ItemDraft, image *models.Upload) (*models.Item, error) {
	draft = items.Normalize(draft)

	errs := items.Validate(draft)
	if image == nil || len(image.Data) == 0 {
		if errs == nil {
			errs = common.ValidationError{}
		}
		errs["image"] = "is required"
	}
	if errs != nil {
		s.metrics.IncSubmission(metrics.SubmitInvalid)
		return nil, errs
	}

	start := time.Now()
	asset, err := s.ingester.Ingest(ctx, image.Data, image.ContentType)
	s.metrics.ObserveIngest(start)
	if err != nil {
		if errors.Is(err, common.ErrNotAnImage) {
			s.metrics.IncSubmission(metrics.SubmitInvalid)
			return nil, common.ValidationError{"image": "must be an image file"}
		}
		s.metrics.IncSubmission(metrics.SubmitIngestFailed)
		return nil, fmt.Errorf("ingest image: %w", err)
	}

	item := &models.Item{
		Title:         draft.Title,
		Description:   draft.Description,
		Type:          draft.Type,
		Location:      draft.Location,
		ImageURL:      asset.URL,
		StorageKey:    asset.Key,
		ContactEmail:  draft.ContactEmail,
		ContactPhone:  draft.ContactPhone,
		HostelAddress: draft.HostelAddress,
		Status:        models.ItemStatusOpen,
		SubmittedBy:   submittedBy,
	}

	created, err := s.repomanager.Items(s.db).Create(ctx, item)
	if err != nil {
		s.metrics.IncSubmission(metrics.SubmitPersistFailed)
		s.discard(ctx, asset.Key, submittedBy)
		return nil, fmt.Errorf("save item: %w", err)
	}

	s.metrics.IncSubmission(metrics.SubmitCreated)
	s.logger.Info(ctx, "item submitted", "item_id", created.ID, "type", created.Type, "submitted_by", submittedBy)
	return created, nil
}

// discard runs even when the request context is already cancelled.
func (s *ItemService) discard(ctx context.Context, key, submittedBy string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := s.ingester.Discard(ctx, key); err != nil {
		s.logger.Error(ctx, "failed to remove orphaned image", "key", key, "submitted_by", submittedBy, "error", err)
	}
}

// List returns the items matching q, most recent first.
func (s *ItemService) List(ctx context.Context, q filter.Query) ([]*models.Item, error) {
	all, err := s.repomanager.Items(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if q.Empty() {
		return all, nil
	}
	return filter.Apply(all, q), nil
}
