package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

const (
	servicesTable = "services"
	// replaceChunkSize - строк в одном INSERT при замене по стране
	replaceChunkSize   = 100
	defaultUpsertBatch = 10
)

var serviceColumns = []string{
	"id", "name", "type", "address", "latitude", "longitude", "phone", "email",
	"website", "hours", "languages", "description", "source", "external_id",
	"country", "created_by", "created_at", "updated_at",
}

// upsertColumns - поля, которые обновляет повторный импорт провайдера
var upsertColumns = []string{"name", "address", "phone", "email", "website", "hours", "updated_at"}

// serviceRow - строка таблицы services
type serviceRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Address     string         `db:"address"`
	Latitude    float64        `db:"latitude"`
	Longitude   float64        `db:"longitude"`
	Phone       string         `db:"phone"`
	Email       string         `db:"email"`
	Website     string         `db:"website"`
	Hours       string         `db:"hours"`
	Languages   pq.StringArray `db:"languages"`
	Description string         `db:"description"`
	Source      string         `db:"source"`
	ExternalID  sql.NullString `db:"external_id"`
	Country     string         `db:"country"`
	CreatedBy   sql.NullString `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r serviceRow) toDomain() domain.Service {
	s := domain.Service{
		ID:          r.ID,
		Name:        r.Name,
		Type:        domain.ServiceType(r.Type),
		Address:     r.Address,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Phone:       r.Phone,
		Email:       r.Email,
		Website:     r.Website,
		Hours:       r.Hours,
		Languages:   []string(r.Languages),
		Description: r.Description,
		Source:      domain.Source(r.Source),
		Country:     r.Country,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if s.Languages == nil {
		s.Languages = []string{}
	}
	if r.ExternalID.Valid {
		v := r.ExternalID.String
		s.ExternalID = &v
	}
	if r.CreatedBy.Valid {
		v := r.CreatedBy.String
		s.CreatedBy = &v
	}
	return s
}

type serviceRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	logger  *zap.Logger
}

func NewServiceRepository(db *DB) repository.ServiceRepository {
	return &serviceRepository{
		db:      db.DB,
		dialect: goqu.Dialect("postgres"),
		logger:  db.logger,
	}
}

func (r *serviceRepository) List(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	where := goqu.Ex{}
	if filter.Type != "" {
		where["type"] = string(filter.Type)
	}
	if filter.Country != "" {
		where["country"] = filter.Country
	}
	if filter.Source != "" {
		where["source"] = string(filter.Source)
	}

	ds := r.dialect.From(servicesTable).
		Prepared(true).
		Select(columnsExpr()...).
		Where(where).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []serviceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list services",
			zap.String("type", string(filter.Type)),
			zap.String("country", filter.Country),
			zap.String("source", string(filter.Source)),
			zap.Error(err))
		return nil, fmt.Errorf("list services: %w", err)
	}

	services := make([]domain.Service, 0, len(rows))
	for _, row := range rows {
		services = append(services, row.toDomain())
	}
	return services, nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	query := `SELECT ` + strings.Join(serviceColumns, ", ") + ` FROM services WHERE id = $1`

	var row serviceRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get service by ID", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("get service: %w", err)
	}

	s := row.toDomain()
	return &s, nil
}

func (r *serviceRepository) Create(ctx context.Context, service *domain.Service) error {
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now

	query, args, err := r.dialect.Insert(servicesTable).
		Prepared(true).
		Rows(toRecord(service)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create service", zap.String("name", service.Name), zap.Error(err))
		return classifyWriteError("create service", err)
	}
	return nil
}

func (r *serviceRepository) Update(ctx context.Context, service *domain.Service) error {
	service.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE services SET
			name = $1, type = $2, address = $3, latitude = $4, longitude = $5,
			phone = $6, email = $7, website = $8, hours = $9, languages = $10,
			description = $11, country = $12, updated_at = $13
		WHERE id = $14 AND source = 'manual'
	`
	res, err := r.db.ExecContext(ctx, query,
		service.Name, string(service.Type), service.Address, service.Latitude, service.Longitude,
		service.Phone, service.Email, service.Website, service.Hours, languagesArray(service.Languages),
		service.Description, service.Country, service.UpdatedAt,
		service.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update service", zap.String("id", service.ID.String()), zap.Error(err))
		return classifyWriteError("update service", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrServiceNotFound
	}
	return nil
}

func (r *serviceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1 AND source = 'manual'`, id)
	if err != nil {
		r.logger.Error("Failed to delete service", zap.String("id", id.String()), zap.Error(err))
		return false, fmt.Errorf("delete service: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete service: %w", err)
	}
	return affected > 0, nil
}

func (r *serviceRepository) UpsertByExternalID(ctx context.Context, services []domain.Service, batchSize int) (int, error) {
	if len(services) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultUpsertBatch
	}
	if err := checkProviderRows(services); err != nil {
		return 0, err
	}

	update := goqu.Record{}
	for _, col := range upsertColumns {
		update[col] = goqu.I("excluded." + col)
	}

	total := 0
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for start := 0; start < len(services); start += batchSize {
			end := min(start+batchSize, len(services))

			query, args, err := r.dialect.Insert(servicesTable).
				Prepared(true).
				Rows(providerRecords(services[start:end], now)...).
				OnConflict(goqu.DoUpdate("source, external_id", update)).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build upsert query: %w", err)
			}

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				r.logger.Error("Upsert batch failed",
					zap.Int("batch_start", start),
					zap.Int("batch_size", end-start),
					zap.Error(err))
				return classifyWriteError("upsert services", err)
			}
			affected, _ := res.RowsAffected()
			total += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("Services upserted",
		zap.String("source", string(services[0].Source)),
		zap.Int("rows", total))
	return total, nil
}

func (r *serviceRepository) ReplaceByCountry(ctx context.Context, source domain.Source, country string, services []domain.Service) (int, error) {
	if !source.IsProvider() {
		return 0, apperrors.Validation("replace by country is not allowed for source %q", source)
	}
	if country == "" {
		return 0, apperrors.Validation("country is required")
	}
	for i := range services {
		if services[i].Source != source || services[i].Country != country {
			return 0, apperrors.Validation("record %d does not belong to %s/%s", i, source, country)
		}
	}
	if err := checkProviderRows(services); err != nil {
		return 0, err
	}

	inserted := 0
	var deleted int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM services WHERE source = $1 AND country = $2 AND source <> 'manual'`,
			string(source), country)
		if err != nil {
			return fmt.Errorf("delete previous rows: %w", err)
		}
		deleted, _ = res.RowsAffected()

		now := time.Now().UTC()
		for start := 0; start < len(services); start += replaceChunkSize {
			end := min(start+replaceChunkSize, len(services))

			query, args, err := r.dialect.Insert(servicesTable).
				Prepared(true).
				Rows(providerRecords(services[start:end], now)...).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build insert query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return classifyWriteError("insert services", err)
			}
			inserted += end - start
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Replace by country failed, previous data kept",
			zap.String("source", string(source)),
			zap.String("country", country),
			zap.Error(err))
		return 0, err
	}

	r.logger.Info("Services replaced",
		zap.String("source", string(source)),
		zap.String("country", country),
		zap.Int64("deleted", deleted),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func (r *serviceRepository) CountBySource(ctx context.Context, source domain.Source, country string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM services WHERE source = $1 AND country = $2`,
		string(source), country)
	if err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return count, nil
}

// withTx выполняет fn в транзакции; любая ошибка откатывает всё
func (r *serviceRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyWriteError("commit transaction", err)
	}
	return nil
}

// checkProviderRows - записи провайдера обязаны иметь externalId
func checkProviderRows(services []domain.Service) error {
	for i := range services {
		s := &services[i]
		if !s.Source.IsProvider() {
			return apperrors.Validation("record %d: manual records are not imported", i)
		}
		if s.ExternalIDValue() == "" {
			return apperrors.Validation("record %d (%s): external id is required", i, s.Source)
		}
	}
	return nil
}

func providerRecords(services []domain.Service, now time.Time) []interface{} {
	records := make([]interface{}, 0, len(services))
	for i := range services {
		s := services[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		s.CreatedBy = nil
		records = append(records, toRecord(&s))
	}
	return records
}

func toRecord(s *domain.Service) goqu.Record {
	return goqu.Record{
		"id":          s.ID,
		"name":        s.Name,
		"type":        string(s.Type),
		"address":     s.Address,
		"latitude":    s.Latitude,
		"longitude":   s.Longitude,
		"phone":       s.Phone,
		"email":       s.Email,
		"website":     s.Website,
		"hours":       s.Hours,
		"languages":   languagesArray(s.Languages),
		"description": s.Description,
		"source":      string(s.Source),
		"external_id": nullString(s.ExternalID),
		"country":     s.Country,
		"created_by":  nullString(s.CreatedBy),
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
	}
}

// languagesArray - колонка NOT NULL, nil пишется как пустой массив
func languagesArray(languages []string) interface{} {
	if languages == nil {
		languages = []string{}
	}
	return pq.Array(languages)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func columnsExpr() []interface{} {
	cols := make([]interface{}, 0, len(serviceColumns))
	for _, c := range serviceColumns {
		cols = append(cols, goqu.C(c))
	}
	return cols
}
