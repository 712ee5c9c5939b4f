package items

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

const (
	insertQ = `(?s)^INSERT\s+INTO\s+items\s*\(id,\s*title,.*submitted_by\)\s*VALUES\s*\(\$1,.*\$12\)\s*RETURNING\s+created_at\s*$`
	listQ   = `(?s)^SELECT\s+id,\s*title,.*FROM\s+items\s+ORDER\s+BY\s+created_at\s+DESC,\s*seq\s+DESC\s*$`
)

var itemColumns = []string{
	"id", "title", "description", "type", "location", "image_url", "storage_key",
	"contact_email", "contact_phone", "hostel_address", "status", "submitted_by", "created_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func validItem() *models.Item {
	return &models.Item{
		Title:        "Blue umbrella",
		Description:  "Left near the library entrance",
		Type:         models.ItemTypeLost,
		Location:     "Library",
		ImageURL:     "https://cdn.example.com/lost-found-items/a.jpg",
		StorageKey:   "lost-found-items/a.jpg",
		ContactEmail: "alice@example.com",
		SubmittedBy:  "alice@example.com",
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	it := validItem()

	mock.ExpectQuery(insertQ).
		WithArgs(sqlmock.AnyArg(), it.Title, it.Description, "lost", it.Location, it.ImageURL, it.StorageKey,
			it.ContactEmail, "", "", "open", it.SubmittedBy).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), it)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.ItemStatusOpen, got.Status)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_KeepsProvidedID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	it := validItem()
	it.ID = "3f1c0c7e-5b5e-4c69-9c55-1b7d5e0f4a11"

	mock.ExpectQuery(insertQ).
		WithArgs(it.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got, err := repo.Create(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, "3f1c0c7e-5b5e-4c69-9c55-1b7d5e0f4a11", got.ID)
}

func TestCreate_ValidationFailure_NoQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	it := validItem()
	it.ImageURL = ""
	it.ContactPhone = "12345"

	_, err := repo.Create(context.Background(), it)
	require.Error(t, err)

	verr, ok := common.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr, "imageUrl")
	assert.Contains(t, verr, "contactPhone")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), validItem())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPersistenceUnavailable)
	assert.Contains(t, err.Error(), "db down")
}

func TestCreate_FailureLeavesCallerItemUnchanged(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	it := validItem()
	_, err := repo.Create(context.Background(), it)
	require.Error(t, err)
	assert.Empty(t, it.ID)
	assert.Empty(t, it.Status)
	assert.True(t, it.CreatedAt.IsZero())
}

func TestCreate_DoesNotMutateInput(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	it := validItem()
	got, err := repo.Create(context.Background(), it)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Empty(t, it.ID)
	assert.NotSame(t, it, got)
}

func TestListAll_Ordered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)

	rows := sqlmock.NewRows(itemColumns).
		AddRow("b", "Keys", "Car keys", "found", "Gym", "https://x/b", "k/b", "bob@example.com", "9876543210", "", "open", "bob@example.com", t1).
		AddRow("a", "Wallet", "Brown", "lost", "Canteen", "https://x/a", "k/a", "al@example.com", "", "H-12", "resolved", "", t0)
	mock.ExpectQuery(listQ).WillReturnRows(rows)

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, models.ItemTypeFound, got[0].Type)
	assert.Equal(t, "9876543210", got[0].ContactPhone)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.ItemStatusResolved, got[1].Status)
	assert.Equal(t, "H-12", got[1].HostelAddress)
}

func TestListAll_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WillReturnRows(sqlmock.NewRows(itemColumns))

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListAll_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WillReturnError(errors.New("conn refused"))

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, common.ErrPersistenceUnavailable)
}

func TestListAll_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(itemColumns).
		AddRow("a", "Wallet", "Brown", "lost", "Canteen", "https://x/a", "k/a", "al@example.com", "", "", "open", "", time.Now()).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(listQ).WillReturnRows(rows)

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, common.ErrPersistenceUnavailable)
}

func TestListAll_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(itemColumns).
		AddRow("a", "Wallet", "Brown", "lost", "Canteen", "https://x/a", "k/a", "al@example.com", "", "", "open", "", "not-a-time")
	mock.ExpectQuery(listQ).WillReturnRows(rows)

	_, err := repo.ListAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPersistenceUnavailable)
	assert.Contains(t, err.Error(), "scan item")
}
