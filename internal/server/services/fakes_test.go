package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/dbx"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
	itemsrepo "github.com/dmitrijs2005/lostfound/internal/server/repositories/items"
	usersrepo "github.com/dmitrijs2005/lostfound/internal/server/repositories/users"
)

// --- repositories ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	upserted  []models.IdentityClaim
	upsertErr error
	getErr    error
}

func (f *fakeUsersRepo) Upsert(ctx context.Context, c models.IdentityClaim) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, c)
	return &models.User{Email: c.Email, Name: c.Name, Picture: c.Picture}, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, c := range f.upserted {
		if c.Email == email {
			return &models.User{Email: c.Email, Name: c.Name, Picture: c.Picture}, nil
		}
	}
	return nil, common.ErrorNotFound
}

// memItemsRepo keeps items in memory with a strictly increasing clock.
type memItemsRepo struct {
	mu        sync.Mutex
	items     []*models.Item
	clock     time.Time
	createErr error
	listErr   error
}

func newMemItemsRepo() *memItemsRepo {
	return &memItemsRepo{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memItemsRepo) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	cp := *item
	cp.ID = uuid.NewString()
	if cp.Status == "" {
		cp.Status = models.ItemStatusOpen
	}
	r.clock = r.clock.Add(time.Millisecond)
	cp.CreatedAt = r.clock
	r.items = append(r.items, &cp)
	out := cp
	return &out, nil
}

func (r *memItemsRepo) ListAll(ctx context.Context) ([]*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*models.Item, len(r.items))
	copy(out, r.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memItemsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	items *memItemsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.users }
func (m *fakeRepoManager) Items(db dbx.DBTX) itemsrepo.Repository      { return m.items }

// --- object store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) URL(key string) string { return "https://assets.test/" + key }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// --- identity ---

type fakeVerifier struct {
	claim models.IdentityClaim
	err   error
}

func (f *fakeVerifier) Verify(ctx context.Context, credential string) (models.IdentityClaim, error) {
	if f.err != nil {
		return models.IdentityClaim{}, f.err
	}
	return f.claim, nil
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMemDenylist() *memDenylist { return &memDenylist{revoked: map[string]time.Duration{}} }

func (d *memDenylist) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.revoked[id] = ttl
	return nil
}

func (d *memDenylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}
