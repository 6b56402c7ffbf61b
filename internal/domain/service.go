package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceType - обобщённый тип сервиса помощи
type ServiceType string

const (
	ServiceTypeClinic    ServiceType = "clinic"
	ServiceTypeShelter   ServiceType = "shelter"
	ServiceTypeLegal     ServiceType = "legal"
	ServiceTypeFood      ServiceType = "food"
	ServiceTypeEducation ServiceType = "education"
	ServiceTypeOther     ServiceType = "other"
)

// ServiceTypes - все поддерживаемые типы в порядке отображения
var ServiceTypes = []ServiceType{
	ServiceTypeClinic,
	ServiceTypeShelter,
	ServiceTypeLegal,
	ServiceTypeFood,
	ServiceTypeEducation,
	ServiceTypeOther,
}

// ParseServiceType разбирает тип без учёта регистра
func ParseServiceType(s string) (ServiceType, bool) {
	t := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ServiceTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

func (t ServiceType) String() string { return string(t) }

// Source - происхождение записи. Для relief лент значение равно имени ленты.
type Source string

const (
	SourceManual       Source = "manual"
	SourceOSM          Source = "OSM"
	SourceGooglePlaces Source = "GooglePlaces"
)

func (s Source) String() string { return string(s) }

func (s Source) IsManual() bool { return s == SourceManual }

// IsProvider - запись импортирована внешним провайдером
func (s Source) IsProvider() bool { return s != "" && s != SourceManual }

// IsReservedSourceName - имя занято встроенным источником, без учёта регистра.
// Relief лента с таким именем смешалась бы с ним при ранжировании и в refresh.
func IsReservedSourceName(name string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, string(SourceManual)) ||
		strings.EqualFold(name, string(SourceOSM)) ||
		strings.EqualFold(name, string(SourceGooglePlaces))
}

// Service - каноническая запись сервиса помощи
type Service struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name" validate:"required"`
	Type        ServiceType `json:"type" db:"type" validate:"required,service_type"`
	Address     string      `json:"address" db:"address"`
	Latitude    float64     `json:"latitude" db:"latitude" validate:"latitude"`
	Longitude   float64     `json:"longitude" db:"longitude" validate:"longitude"`
	Phone       string      `json:"phone" db:"phone"`
	Email       string      `json:"email" db:"email"`
	Website     string      `json:"website,omitempty" db:"website"`
	Hours       string      `json:"hours" db:"hours"`
	Languages   []string    `json:"languages" db:"languages" validate:"dive,iso6391"`
	Description string      `json:"description" db:"description"`
	Source      Source      `json:"source" db:"source" validate:"required"`
	ExternalID  *string     `json:"external_id" db:"external_id" validate:"required_unless=Source manual,excluded_if=Source manual"`
	Country     string      `json:"country" db:"country"`
	CreatedBy   *string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`

	// Вычисляются при агрегации, не хранятся
	Priority int    `json:"priority,omitempty" db:"-"`
	Badge    string `json:"badge,omitempty" db:"-"`
}

// IdentityKey - ключ идентичности в рамках провайдера
func (s Service) IdentityKey() string {
	if s.ExternalID == nil {
		return ""
	}
	return string(s.Source) + ":" + *s.ExternalID
}

// ExternalIDValue возвращает externalId или пустую строку
func (s Service) ExternalIDValue() string {
	if s.ExternalID == nil {
		return ""
	}
	return *s.ExternalID
}

// ServiceFilter - фильтр выборки из хранилища
type ServiceFilter struct {
	Type    ServiceType
	Country string
	Source  Source
	Limit   int
}

// SearchQuery - запрос к провайдеру
type SearchQuery struct {
	Type     ServiceType
	Country  string
	BBox     *BoundingBox
	Location *Point
	// RadiusMeters - радиус поиска вокруг Location, 0 - значение провайдера по умолчанию
	RadiusMeters int
}

// ProviderSearchResult - результат поиска из одного источника
type ProviderSearchResult struct {
	Source   Source
	Services []Service
}
