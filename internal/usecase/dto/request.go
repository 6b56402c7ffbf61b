package dto

// SearchRequest - запрос агрегированного поиска сервисов
type SearchRequest struct {
	Type    string   `json:"type" query:"type" validate:"required,service_type"`
	Country string   `json:"country" query:"country" validate:"required,min=2,max=128"`
	Lat     *float64 `json:"lat,omitempty" query:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng     *float64 `json:"lng,omitempty" query:"lng" validate:"required_with=Lat,omitempty,longitude"`
}

// HasLocation - передана ли точка пользователя
func (r SearchRequest) HasLocation() bool {
	return r.Lat != nil && r.Lng != nil
}

// RefreshRequest - запрос на обновление данных провайдера по стране
type RefreshRequest struct {
	Provider string  `json:"provider" validate:"required"`
	Country  string  `json:"country" validate:"required,min=2,max=128"`
	BBox     *string `json:"bbox,omitempty" validate:"omitempty,bbox"`
}

// CreateServiceRequest - создание ручной записи
type CreateServiceRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Type        string   `json:"type" validate:"required,service_type"`
	Address     string   `json:"address" validate:"max=512"`
	Latitude    float64  `json:"latitude" validate:"latitude"`
	Longitude   float64  `json:"longitude" validate:"longitude"`
	Phone       string   `json:"phone" validate:"max=64"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Website     string   `json:"website" validate:"omitempty,url"`
	Hours       string   `json:"hours" validate:"max=255"`
	Languages   []string `json:"languages"`
	Description string   `json:"description" validate:"max=4000"`
	Country     string   `json:"country" validate:"required,min=2,max=128"`
}

// UpdateServiceRequest - изменение ручной записи, nil поля не меняются
type UpdateServiceRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Type        *string  `json:"type,omitempty" validate:"omitempty,service_type"`
	Address     *string  `json:"address,omitempty" validate:"omitempty,max=512"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=64"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,url"`
	Hours       *string  `json:"hours,omitempty" validate:"omitempty,max=255"`
	Languages   []string `json:"languages,omitempty"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	Country     *string  `json:"country,omitempty" validate:"omitempty,min=2,max=128"`
}

// ListServicesRequest - выборка ручных записей
type ListServicesRequest struct {
	Type    string `query:"type" validate:"omitempty,service_type"`
	Country string `query:"country" validate:"omitempty,max=128"`
	Limit   int    `query:"limit" validate:"omitempty,min=1,max=100"`
}
