package service

import (
	"fmt"

	"github.com/coretrack/warranty-api/internal/domain"
)

// notFound wraps the not-found sentinel with the entity and id that missed
func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
}

// invalid wraps the validation sentinel with the reason. Validation errors
// are raised before any backend write happens.
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrValidation)...)
}
