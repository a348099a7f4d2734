package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"speedgate/internal/logger"
	"speedgate/internal/model"
	"speedgate/internal/repository"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// BufferService buffers violations in memory and periodically writes their
// snapshots to disk and their records to the repository.
type BufferService struct {
	imagesDir     string
	violations    []model.Violation
	bufferLimit   int
	flushInterval time.Duration
	mu            sync.Mutex
	logger        *logger.Logger
	repo          repository.ViolationRepository
}

// NewBufferService creates a BufferService. A full buffer is flushed
// immediately instead of dropping violations.
func NewBufferService(imagesDir string, bufferLimit int, flushInterval time.Duration,
	logger *logger.Logger, repo repository.ViolationRepository) *BufferService {
	if bufferLimit < 1 {
		bufferLimit = 1
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BufferService{
		imagesDir:     imagesDir,
		violations:    make([]model.Violation, 0, bufferLimit),
		bufferLimit:   bufferLimit,
		flushInterval: flushInterval,
		logger:        logger,
		repo:          repo,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return nil
		case <-ticker.C:
			s.Flush()
		}
	}
}

// AddViolation queues a violation for the next flush.
func (s *BufferService) AddViolation(v model.Violation) {
	s.mu.Lock()
	s.violations = append(s.violations, v)
	size := len(s.violations)
	s.mu.Unlock()

	s.logger.Info("Buffer size: %d/%d", size, s.bufferLimit)
	if size >= s.bufferLimit {
		s.Flush()
	}
}

// Pending returns the number of buffered violations.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.violations)
}

// Flush writes buffered snapshots to disk and records to the repository.
func (s *BufferService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.violations) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, v := range s.violations {
		if len(v.Snapshot) > 0 {
			filename := SnapshotFilename(v)
			fullpath := filepath.Join(s.imagesDir, filename)

			if err := os.WriteFile(fullpath, v.Snapshot, 0644); err != nil {
				s.logger.Error("Error saving snapshot %s: %v", filename, err)
			} else {
				v.ImagePath = filename
				v.FileSize = int64(len(v.Snapshot))
			}
		}

		if s.repo != nil {
			if err := s.repo.Insert(&v); err != nil {
				s.logger.Error("Error saving violation %s to database: %v", v.ID, err)
				continue
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d violations", savedCount)
	s.violations = s.violations[:0]
}

// SnapshotFilename builds "<timestamp>_<plate>_<id>.jpg" with the plate made
// filesystem-safe.
func SnapshotFilename(v model.Violation) string {
	plate := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, v.PlateNumber)
	if plate == "" {
		plate = "UNKNOWN"
	}

	id := v.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.jpg", v.Timestamp.Format(timestampLayout), plate, id)
}
