package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"speedgate/internal/dto"
	"speedgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*DB, *ViolationRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewViolationRepository(db)
}

func violationAt(id, plate string, speed float64, ts time.Time) *model.Violation {
	return &model.Violation{
		ID:            id,
		PlateNumber:   plate,
		SpeedKmh:      speed,
		SpeedLimitKmh: 30,
		Timestamp:     ts,
		ImagePath:     id + ".jpg",
		FileSize:      1024,
	}
}

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		db, err := New(dbPath)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}

func TestViolationRepository_InsertAndGet(t *testing.T) {
	_, repo := newTestRepo(t)
	ts := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(violationAt("v1", "KA-05-MN-1234", 45.5, ts)))

	got, err := repo.GetByID("v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "KA-05-MN-1234", got.PlateNumber)
	assert.Equal(t, 45.5, got.SpeedKmh)
	assert.Equal(t, 30.0, got.SpeedLimitKmh)
	assert.True(t, ts.Equal(got.Timestamp), "got %v", got.Timestamp)
	assert.Equal(t, "v1.jpg", got.ImagePath)
	assert.Equal(t, int64(1024), got.FileSize)
}

func TestViolationRepository_GetByIDMissing(t *testing.T) {
	_, repo := newTestRepo(t)

	got, err := repo.GetByID("nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestViolationRepository_DuplicateID(t *testing.T) {
	_, repo := newTestRepo(t)
	v := violationAt("dup", "AB", 40, time.Now())

	require.NoError(t, repo.Insert(v))
	assert.Error(t, repo.Insert(v))
}

func TestViolationRepository_FiltersAndOrder(t *testing.T) {
	_, repo := newTestRepo(t)
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(violationAt("a", "KA-05-MN-1234", 45.5, day.Add(9*time.Hour))))
	require.NoError(t, repo.Insert(violationAt("b", "MH-12-RT-9988", 38.2, day.Add(18*time.Hour))))
	require.NoError(t, repo.Insert(violationAt("c", "KA-01-XX-0001", 61.0, day.Add(36*time.Hour))))

	all, err := repo.GetAll(&dto.ViolationFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	tests := []struct {
		name   string
		filter dto.ViolationFilters
		want   []string
	}{
		{"plate substring, case-insensitive", dto.ViolationFilters{Plate: "ka-"}, []string{"c", "a"}},
		{"min speed", dto.ViolationFilters{MinSpeed: 40}, []string{"c", "a"}},
		{"date after", dto.ViolationFilters{DateAfter: day.Add(24 * time.Hour)}, []string{"c"}},
		{"date before is inclusive", dto.ViolationFilters{DateBefore: day}, []string{"b", "a"}},
		{"limit", dto.ViolationFilters{Limit: 1}, []string{"c"}},
		{"limit and offset", dto.ViolationFilters{Limit: 1, Offset: 1}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetAll(&tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, v := range got {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.want, ids)

			count, err := repo.GetTotalCount(&dto.ViolationFilters{
				Plate:      tt.filter.Plate,
				MinSpeed:   tt.filter.MinSpeed,
				DateAfter:  tt.filter.DateAfter,
				DateBefore: tt.filter.DateBefore,
			})
			require.NoError(t, err)
			if tt.filter.Limit == 0 {
				assert.Equal(t, len(tt.want), count)
			}
		})
	}
}

func TestViolationRepository_DeleteAndSize(t *testing.T) {
	_, repo := newTestRepo(t)
	now := time.Now()

	require.NoError(t, repo.Insert(violationAt("a", "A", 40, now)))
	require.NoError(t, repo.Insert(violationAt("b", "B", 50, now)))

	size, err := repo.GetDirectorySize()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)

	require.NoError(t, repo.Delete("a"))
	count, err := repo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.DeleteAll())
	count, err = repo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	size, err = repo.GetDirectorySize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestViolationRepository_ConcurrentInserts(t *testing.T) {
	_, repo := newTestRepo(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v := violationAt(fmt.Sprintf("c%d", idx), "CONC", 40, time.Now())
			assert.NoError(t, repo.Insert(v))
		}(i)
	}
	wg.Wait()

	count, err := repo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
