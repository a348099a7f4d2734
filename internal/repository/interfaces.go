package repository

import (
	"speedgate/internal/dto"
	"speedgate/internal/model"
)

// ViolationRepository defines the interface for violation data operations.
type ViolationRepository interface {
	// Create operations
	Insert(v *model.Violation) error

	// Read operations
	GetByID(id string) (*model.Violation, error)
	GetAll(filter *dto.ViolationFilters) ([]model.Violation, error)
	GetTotalCount(filter *dto.ViolationFilters) (int, error)
	GetDirectorySize() (int64, error)

	// Delete operations
	Delete(id string) error
	DeleteAll() error
}
