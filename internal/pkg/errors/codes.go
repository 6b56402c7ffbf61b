package errors

import "net/http"

var (
	ErrServiceNotFound = New(
		"SERVICE_NOT_FOUND",
		"Service not found",
		http.StatusNotFound,
	)

	ErrInvalidServiceType = New(
		"INVALID_SERVICE_TYPE",
		"Invalid service type",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidBBox = New(
		"INVALID_BBOX",
		"Invalid bounding box, expected minLat,minLon,maxLat,maxLon",
		http.StatusBadRequest,
	)

	ErrUnknownProvider = New(
		"UNKNOWN_PROVIDER",
		"Unknown provider",
		http.StatusBadRequest,
	)

	ErrProviderDisabled = New(
		"PROVIDER_DISABLED",
		"Provider is not configured",
		http.StatusServiceUnavailable,
	)

	ErrRefreshInProgress = New(
		"REFRESH_IN_PROGRESS",
		"Refresh for this provider and country is already running",
		http.StatusConflict,
	)

	ErrRefreshFailed = New(
		"REFRESH_FAILED",
		"Refresh failed",
		http.StatusBadGateway,
	)

	ErrQueueUnavailable = New(
		"QUEUE_UNAVAILABLE",
		"Refresh queue is unavailable",
		http.StatusServiceUnavailable,
	)

	ErrForbidden = New(
		"FORBIDDEN",
		"Only the owner can modify this service",
		http.StatusForbidden,
	)

	ErrUnauthorized = New(
		"UNAUTHORIZED",
		"User id header is required",
		http.StatusUnauthorized,
	)

	ErrConflict = New(
		"CONFLICT",
		"Record conflicts with existing data",
		http.StatusConflict,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
