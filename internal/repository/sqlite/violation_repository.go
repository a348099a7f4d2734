package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"speedgate/internal/dto"
	"speedgate/internal/model"
)

// ViolationRepository implements repository.ViolationRepository for SQLite.
type ViolationRepository struct {
	db *DB
}

// NewViolationRepository creates a new SQLite violation repository.
func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

const violationColumns = `id, plate_number, speed_kmh, speed_limit_kmh, timestamp, image_path, file_size`

// Insert adds a new violation record. Timestamps are stored in UTC.
func (r *ViolationRepository) Insert(v *model.Violation) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO violations (`+violationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.PlateNumber, v.SpeedKmh, v.SpeedLimitKmh, v.Timestamp.UTC(), v.ImagePath, v.FileSize)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// GetByID retrieves a violation by its ID. It returns nil when not found.
func (r *ViolationRepository) GetByID(id string) (*model.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var v model.Violation
	err := r.db.Conn().QueryRow(`SELECT `+violationColumns+` FROM violations WHERE id = ?`, id).
		Scan(&v.ID, &v.PlateNumber, &v.SpeedKmh, &v.SpeedLimitKmh, &v.Timestamp, &v.ImagePath, &v.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get violation: %w", err)
	}
	return &v, nil
}

// whereClause builds the shared filter part of list and count queries.
func whereClause(filter *dto.ViolationFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return query, args
	}

	if filter.Plate != "" {
		query += " AND plate_number LIKE ?"
		args = append(args, "%"+strings.ToUpper(filter.Plate)+"%")
	}

	if filter.MinSpeed > 0 {
		query += " AND speed_kmh >= ?"
		args = append(args, filter.MinSpeed)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.DateAfter.UTC())
	}

	// DateBefore is inclusive of the whole day
	if !filter.DateBefore.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, filter.DateBefore.Add(24*time.Hour).UTC())
	}

	return query, args
}

// GetAll retrieves violations based on filter criteria, newest first.
func (r *ViolationRepository) GetAll(filter *dto.ViolationFilters) ([]model.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + violationColumns + ` FROM violations` + where + ` ORDER BY timestamp DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.PlateNumber, &v.SpeedKmh, &v.SpeedLimitKmh, &v.Timestamp, &v.ImagePath, &v.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// GetTotalCount returns the total count of violations matching the filter.
func (r *ViolationRepository) GetTotalCount(filter *dto.ViolationFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return count, nil
}

// GetDirectorySize returns the total size of stored snapshots in bytes.
func (r *ViolationRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(file_size), 0) FROM violations`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum snapshot sizes: %w", err)
	}
	return size, nil
}

// Delete removes a violation by its ID.
func (r *ViolationRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM violations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete violation: %w", err)
	}
	return nil
}

// DeleteAll removes all violations.
func (r *ViolationRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM violations`); err != nil {
		return fmt.Errorf("failed to delete violations: %w", err)
	}
	return nil
}
