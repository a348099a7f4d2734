package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"speedgate/internal/config"
	"speedgate/internal/dto"
	"speedgate/internal/logger"
	"speedgate/internal/model"
	"speedgate/internal/repository"
)

// filtersFromQuery reads plate, minSpeed, dateAfter and dateBefore.
func filtersFromQuery(r *http.Request) *dto.ViolationFilters {
	q := r.URL.Query()
	return &dto.ViolationFilters{
		Plate:      strings.TrimSpace(q.Get("plate")),
		MinSpeed:   parseFloat(q.Get("minSpeed")),
		DateAfter:  parseDate(q.Get("dateAfter")),
		DateBefore: parseDate(q.Get("dateBefore")),
	}
}

// GetViolationsHandler returns a filtered, paginated list of violations.
func GetViolationsHandler(logger *logger.Logger, repo repository.ViolationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := filtersFromQuery(r)
		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting violations: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		violations, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying violations from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if violations == nil {
			violations = []model.Violation{}
		}

		totalSize, err := repo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting snapshot directory size: %v", err)
			totalSize = 0
		}

		data := dto.ViolationsData{
			Violations:  violations,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}

// CountViolationsHandler returns the number of violations matching the filters.
func CountViolationsHandler(logger *logger.Logger, repo repository.ViolationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := repo.GetTotalCount(filtersFromQuery(r))
		if err != nil {
			logger.Error("Error counting violations: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]int{"count": count})
	}
}

// ViewSnapshotHandler serves a single snapshot specified via the "image" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(cfg.ImageDirectory, filepath.Base(image))
		if _, err := os.Stat(filePath); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// DeleteViolationHandler removes a violation and its snapshot.
func DeleteViolationHandler(cfg *config.Config, logger *logger.Logger, repo repository.ViolationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "ID required", http.StatusBadRequest)
			return
		}

		v, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Failed to look up violation %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if v == nil {
			http.NotFound(w, r)
			return
		}

		if v.ImagePath != "" {
			filePath := filepath.Join(cfg.ImageDirectory, filepath.Base(v.ImagePath))
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				logger.Error("Failed to delete file %s: %v", filePath, err)
			}
		}

		if err := repo.Delete(id); err != nil {
			logger.Error("Failed to delete from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Deleted violation: %s", id)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

// ClearViolationsHandler deletes every snapshot and clears the database.
func ClearViolationsHandler(cfg *config.Config, logger *logger.Logger, repo repository.ViolationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading snapshot directory: %v", err)
			http.Error(w, "Unable to read snapshot directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if err := repo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("All violations cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
