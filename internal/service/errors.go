package service

import (
	"errors"
	"fmt"

	"ecommerce-service/internal/store"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = store.ErrConflict

	// ErrRequestInFlight is returned when an idempotency key is claimed by a request that has not finished
	ErrRequestInFlight = fmt.Errorf("%w: a request with this idempotency key is still in progress", ErrConflict)

	ErrInvalidPaging = errors.New("skip and limit must not be negative")
)

// NotFoundError names the resource a lookup failed to find
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// notFound converts a store miss into a NotFoundError for resource
func notFound(resource string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource}
	}
	return err
}
