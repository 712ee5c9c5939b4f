package assets

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/lostfound/internal/common"
)

// Asset is an ingested image.
type Asset struct {
	URL string
	Key string
}

// Ingester validates image payloads and writes them under a fixed namespace.
type Ingester struct {
	store     ObjectStore
	namespace string
	now       func() time.Time
}

func NewIngester(store ObjectStore, namespace string) *Ingester {
	return &Ingester{store: store, namespace: strings.Trim(namespace, "/"), now: time.Now}
}

// Ingest uploads data and returns where it can be fetched. Empty payloads and
// anything that is not an image, by declared type or by content, fail with
// common.ErrNotAnImage; a store failure is common.ErrStoreUnavailable.
func (i *Ingester) Ingest(ctx context.Context, data []byte, mimeHint string) (*Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", common.ErrNotAnImage)
	}

	if mimeHint != "" {
		declared, _, err := mime.ParseMediaType(mimeHint)
		if err != nil || !isImage(declared) {
			return nil, fmt.Errorf("%w: declared type %q", common.ErrNotAnImage, mimeHint)
		}
	}

	detected := mimetype.Detect(data)
	contentType, _, _ := mime.ParseMediaType(detected.String())
	if !isImage(contentType) {
		return nil, fmt.Errorf("%w: content is %s", common.ErrNotAnImage, detected.String())
	}

	key := i.storageKey(detected.Extension())
	if err := i.store.Put(ctx, key, contentType, data); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	return &Asset{URL: i.store.URL(key), Key: key}, nil
}

// Discard removes a previously ingested asset.
func (i *Ingester) Discard(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := i.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (i *Ingester) storageKey(ext string) string {
	d := i.now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", i.namespace, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// SVG is excluded: it is served back from a public bucket and can carry script.
func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") && contentType != "image/svg+xml"
}
