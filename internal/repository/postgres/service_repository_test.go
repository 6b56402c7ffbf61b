package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/repository/postgres"
)

var columns = []string{
	"id", "name", "type", "address", "latitude", "longitude", "phone", "email",
	"website", "hours", "languages", "description", "source", "external_id",
	"country", "created_by", "created_at", "updated_at",
}

func setupMockRepo(t *testing.T) (repository.ServiceRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := postgres.NewDBForTest(sqlx.NewDb(mockDB, "pgx"), nil)
	return postgres.NewServiceRepository(db), mock
}

func strPtr(s string) *string { return &s }

func providerServices(source domain.Source, country string, n int) []domain.Service {
	out := make([]domain.Service, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Service{
			Name:       fmt.Sprintf("Clinic %d", i),
			Type:       domain.ServiceTypeClinic,
			Latitude:   31.95,
			Longitude:  35.93,
			Languages:  []string{"ar"},
			Source:     source,
			ExternalID: strPtr(fmt.Sprintf("node/%d", i)),
			Country:    country,
		})
	}
	return out
}

func TestServiceRepository_GetByID(t *testing.T) {
	repo, mock := setupMockRepo(t)
	id := uuid.New()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).AddRow(
		id.String(), "Amman Community Clinic", "clinic", "Amman", 31.95, 35.93, "+962", "",
		"", "Sun-Thu 08:00-16:00", "{ar,en}", "", "manual", nil,
		"Jordan", "user-1", ts, ts,
	)
	mock.ExpectQuery(`SELECT (.+) FROM services WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(rows)

	svc, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.Equal(t, id, svc.ID)
	assert.Equal(t, domain.ServiceTypeClinic, svc.Type)
	assert.Equal(t, []string{"ar", "en"}, svc.Languages)
	assert.Equal(t, domain.SourceManual, svc.Source)
	assert.Nil(t, svc.ExternalID)
	require.NotNil(t, svc.CreatedBy)
	assert.Equal(t, "user-1", *svc.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM services WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(columns))

	svc, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_List(t *testing.T) {
	repo, mock := setupMockRepo(t)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow(uuid.NewString(), "A", "clinic", "", 31.9, 35.9, "", "", "", "", "{}", "", "manual", nil, "Jordan", "u1", ts, ts).
		AddRow(uuid.NewString(), "B", "clinic", "", 32.0, 36.0, "", "", "", "", nil, "", "manual", nil, "Jordan", "u2", ts, ts)
	mock.ExpectQuery(`SELECT (.+) FROM "services" WHERE (.+) ORDER BY "created_at" ASC, "id" ASC LIMIT`).
		WillReturnRows(rows)

	services, err := repo.List(context.Background(), domain.ServiceFilter{
		Type:    domain.ServiceTypeClinic,
		Country: "Jordan",
		Source:  domain.SourceManual,
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "A", services[0].Name)
	assert.Equal(t, []string{}, services[1].Languages, "NULL languages are returned as an empty set")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_Create(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectExec(`INSERT INTO "services"`).WillReturnResult(sqlmock.NewResult(0, 1))

	svc := &domain.Service{
		Name:      "Legal Aid Desk",
		Type:      domain.ServiceTypeLegal,
		Latitude:  31.95,
		Longitude: 35.93,
		Source:    domain.SourceManual,
		Country:   "Jordan",
		CreatedBy: strPtr("user-1"),
	}
	require.NoError(t, repo.Create(context.Background(), svc))

	assert.NotEqual(t, uuid.Nil, svc.ID)
	assert.False(t, svc.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectExec(`UPDATE services SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.Service{ID: uuid.New(), Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrServiceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_Delete(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectExec(`DELETE FROM services WHERE id = \$1 AND source = 'manual'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1 AND source = 'manual'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_UpsertByExternalID_Batches(t *testing.T) {
	repo, mock := setupMockRepo(t)
	services := providerServices(domain.SourceGooglePlaces, "Jordan", 12)

	upsert := `INSERT INTO "services" (.+) ON CONFLICT \(source, external_id\) DO UPDATE SET`
	mock.ExpectBegin()
	mock.ExpectExec(upsert).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(upsert).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.UpsertByExternalID(context.Background(), services, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_UpsertByExternalID_ConflictRollsBack(t *testing.T) {
	repo, mock := setupMockRepo(t)
	services := providerServices(domain.SourceGooglePlaces, "Jordan", 15)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "services"`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`INSERT INTO "services"`).WillReturnError(&pgconn.PgError{
		Code:           "23514",
		ConstraintName: "services_external_id_presence",
	})
	mock.ExpectRollback()

	n, err := repo.UpsertByExternalID(context.Background(), services, 10)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, apperrors.IsPersistenceConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_UpsertByExternalID_RejectsManual(t *testing.T) {
	repo, mock := setupMockRepo(t)

	services := providerServices(domain.SourceGooglePlaces, "Jordan", 2)
	services[1].Source = domain.SourceManual

	_, err := repo.UpsertByExternalID(context.Background(), services, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "no statements are issued")
}

func TestServiceRepository_UpsertByExternalID_Empty(t *testing.T) {
	repo, mock := setupMockRepo(t)

	n, err := repo.UpsertByExternalID(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_ReplaceByCountry(t *testing.T) {
	repo, mock := setupMockRepo(t)
	services := providerServices(domain.SourceOSM, "Jordan", 3)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM services WHERE source = \$1 AND country = \$2`).
		WithArgs("OSM", "Jordan").
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec(`INSERT INTO "services"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.ReplaceByCountry(context.Background(), domain.SourceOSM, "Jordan", services)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_ReplaceByCountry_EmptySetClearsCountry(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM services`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	n, err := repo.ReplaceByCountry(context.Background(), domain.SourceOSM, "Jordan", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_ReplaceByCountry_InsertFailureKeepsOldRows(t *testing.T) {
	repo, mock := setupMockRepo(t)
	services := providerServices(domain.SourceOSM, "Jordan", 2)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM services`).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`INSERT INTO "services"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.ReplaceByCountry(context.Background(), domain.SourceOSM, "Jordan", services)
	require.Error(t, err)
	assert.False(t, apperrors.IsPersistenceConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_ReplaceByCountry_Guards(t *testing.T) {
	repo, mock := setupMockRepo(t)
	ctx := context.Background()

	_, err := repo.ReplaceByCountry(ctx, domain.SourceManual, "Jordan", nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.ReplaceByCountry(ctx, domain.SourceOSM, "", nil)
	assert.True(t, apperrors.IsValidation(err))

	foreign := providerServices(domain.SourceOSM, "Kenya", 1)
	_, err = repo.ReplaceByCountry(ctx, domain.SourceOSM, "Jordan", foreign)
	assert.True(t, apperrors.IsValidation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_CountBySource(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM services`).
		WithArgs("OSM", "Jordan").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.CountBySource(context.Background(), domain.SourceOSM, "Jordan")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
