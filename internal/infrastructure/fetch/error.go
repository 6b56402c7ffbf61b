package fetch

import (
	"fmt"

	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

// Error - исчерпаны попытки или запрос отменён. Несёт последнюю причину.
type Error struct {
	Target     string
	URL        string
	Attempts   int
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed after %d attempts: status %d: %s", e.Target, e.Attempts, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Kind() apperrors.Kind { return apperrors.KindTransientNetwork }
