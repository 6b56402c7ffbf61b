package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/repository/postgres"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewServiceRepositoryForTest creates a service repository with test database and logger
func NewServiceRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ServiceRepository {
	return postgres.NewServiceRepository(NewDBForTest(db, logger))
}
