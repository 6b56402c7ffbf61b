package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/validator"
	"github.com/service-aggregator/internal/usecase/dto"
)

const defaultListLimit = 50

// ServiceUseCase - управление ручными записями, владелец определяется заголовком X-User-ID
type ServiceUseCase struct {
	serviceRepo repository.ServiceRepository
	cacheRepo   repository.CacheRepository
	logger      *zap.Logger
}

func NewServiceUseCase(
	serviceRepo repository.ServiceRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
) *ServiceUseCase {
	return &ServiceUseCase{
		serviceRepo: serviceRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// Create - новая ручная запись; source всегда manual, externalId пустой
func (uc *ServiceUseCase) Create(ctx context.Context, userID string, req dto.CreateServiceRequest) (*domain.Service, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}

	serviceType, _ := domain.ParseServiceType(req.Type)
	owner := userID
	svc := &domain.Service{
		Name:        strings.TrimSpace(req.Name),
		Type:        serviceType,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		Hours:       req.Hours,
		Languages:   domain.NormalizeLanguages(req.Languages),
		Description: req.Description,
		Source:      domain.SourceManual,
		ExternalID:  nil,
		Country:     strings.TrimSpace(req.Country),
		CreatedBy:   &owner,
	}

	if err := validator.Validate(svc); err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(validator.FieldErrors(err))
	}

	if err := uc.serviceRepo.Create(ctx, svc); err != nil {
		return nil, uc.storeError("create", err)
	}

	uc.invalidate(ctx, svc.Country)
	uc.logger.Info("Manual service created",
		zap.String("id", svc.ID.String()),
		zap.String("type", svc.Type.String()),
		zap.String("country", svc.Country),
		zap.String("user_id", userID))
	return svc, nil
}

// Get возвращает запись любого источника
func (uc *ServiceUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	svc, err := uc.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, uc.storeError("get", err)
	}
	if svc == nil {
		return nil, errors.ErrServiceNotFound
	}
	return svc, nil
}

// List - ручные записи по фильтру
func (uc *ServiceUseCase) List(ctx context.Context, req dto.ListServicesRequest) ([]domain.Service, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	serviceType, _ := domain.ParseServiceType(req.Type)

	services, err := uc.serviceRepo.List(ctx, domain.ServiceFilter{
		Type:    serviceType,
		Country: strings.TrimSpace(req.Country),
		Source:  domain.SourceManual,
		Limit:   limit,
	})
	if err != nil {
		return nil, uc.storeError("list", err)
	}
	return services, nil
}

// Update применяет непустые поля. Изменять можно только свои ручные записи.
func (uc *ServiceUseCase) Update(ctx context.Context, userID string, id uuid.UUID, req dto.UpdateServiceRequest) (*domain.Service, error) {
	svc, err := uc.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	previousCountry := svc.Country

	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		if t, ok := domain.ParseServiceType(*req.Type); ok {
			svc.Type = t
		}
	}
	if req.Address != nil {
		svc.Address = *req.Address
	}
	if req.Latitude != nil {
		svc.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		svc.Longitude = *req.Longitude
	}
	if req.Phone != nil {
		svc.Phone = *req.Phone
	}
	if req.Email != nil {
		svc.Email = *req.Email
	}
	if req.Website != nil {
		svc.Website = *req.Website
	}
	if req.Hours != nil {
		svc.Hours = *req.Hours
	}
	if req.Languages != nil {
		svc.Languages = domain.NormalizeLanguages(req.Languages)
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Country != nil {
		svc.Country = strings.TrimSpace(*req.Country)
	}

	if err := validator.Validate(svc); err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(validator.FieldErrors(err))
	}

	if err := uc.serviceRepo.Update(ctx, svc); err != nil {
		return nil, uc.storeError("update", err)
	}

	uc.invalidate(ctx, previousCountry)
	if svc.Country != previousCountry {
		uc.invalidate(ctx, svc.Country)
	}
	return svc, nil
}

// Delete удаляет свою ручную запись
func (uc *ServiceUseCase) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	svc, err := uc.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	deleted, err := uc.serviceRepo.Delete(ctx, id)
	if err != nil {
		return uc.storeError("delete", err)
	}
	if !deleted {
		return errors.ErrServiceNotFound
	}

	uc.invalidate(ctx, svc.Country)
	uc.logger.Info("Manual service deleted",
		zap.String("id", id.String()),
		zap.String("user_id", userID))
	return nil
}

// owned загружает запись и проверяет, что это ручная запись пользователя
func (uc *ServiceUseCase) owned(ctx context.Context, userID string, id uuid.UUID) (*domain.Service, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	svc, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.Source.IsManual() {
		return nil, errors.ErrForbidden.WithMessage("provider records are managed by refresh jobs")
	}
	if svc.CreatedBy == nil || *svc.CreatedBy != userID {
		return nil, errors.ErrForbidden
	}
	return svc, nil
}

func (uc *ServiceUseCase) invalidate(ctx context.Context, country string) {
	if uc.cacheRepo == nil || country == "" {
		return
	}
	if err := uc.cacheRepo.DeleteByPrefix(ctx, searchCachePrefixFor(country)); err != nil {
		uc.logger.Warn("Failed to invalidate search cache", zap.String("country", country), zap.Error(err))
	}
}

func (uc *ServiceUseCase) storeError(op string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	uc.logger.Error("Service store operation failed", zap.String("op", op), zap.Error(err))
	if errors.IsPersistenceConflict(err) {
		return errors.ErrConflict
	}
	return errors.ErrDatabaseError
}
