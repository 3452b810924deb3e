package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gol43/test-moon/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDepthExceeded    = errors.New("activity depth exceeded")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidFilter    = errors.New("invalid filter")
)

// NotFoundError names the entity and the key that did not resolve.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// ReferenceError lists the building and activity ids an organization points at that do not exist.
type ReferenceError struct {
	BuildingID  int64 // zero when the building exists
	ActivityIDs []int64
}

func (e *ReferenceError) Error() string {
	var parts []string
	if e.BuildingID != 0 {
		parts = append(parts, fmt.Sprintf("building %d not found", e.BuildingID))
	}
	if len(e.ActivityIDs) > 0 {
		ids := make([]string, len(e.ActivityIDs))
		for i, id := range e.ActivityIDs {
			ids[i] = fmt.Sprint(id)
		}
		parts = append(parts, fmt.Sprintf("activities [%s] not found", strings.Join(ids, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (e *ReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// mapNotFound turns a repository miss on an update/delete into a NotFoundError.
func mapNotFound(err error, entity string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}
