package students

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStudentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  school_id TEXT NOT NULL,
  admission_no TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  grade_level TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (school_id, admission_no)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedStudent(t *testing.T, repo *Repository, schoolID uuid.UUID, admissionNo, grade string, createdAt time.Time) models.Student {
	t.Helper()
	student := models.Student{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		AdmissionNo: admissionNo,
		FirstName:   "Test",
		LastName:    "Student",
		GradeLevel:  grade,
		IsActive:    true,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), &student))
	return student
}

func TestStudentRepoFindByIDScopedToSchool(t *testing.T) {
	repo := NewRepository(setupStudentsTestDB(t))
	schoolID := uuid.New()
	otherSchool := uuid.New()
	student := seedStudent(t, repo, schoolID, "ADM-001", "5", time.Now().UTC())

	found, err := repo.FindByID(context.Background(), schoolID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, found.ID)
	assert.Equal(t, "ADM-001", found.AdmissionNo)

	_, err = repo.FindByID(context.Background(), otherSchool, student.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStudentRepoDuplicateAdmissionNoRejected(t *testing.T) {
	repo := NewRepository(setupStudentsTestDB(t))
	schoolID := uuid.New()
	seedStudent(t, repo, schoolID, "ADM-002", "5", time.Now().UTC())

	dup := models.Student{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		AdmissionNo: "ADM-002",
		FirstName:   "Dup",
		LastName:    "Student",
		GradeLevel:  "5",
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	assert.Error(t, repo.Create(context.Background(), &dup))
}

func TestStudentRepoListPagesByCursor(t *testing.T) {
	repo := NewRepository(setupStudentsTestDB(t))
	schoolID := uuid.New()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	var newest models.Student
	for i := 0; i < 3; i++ {
		newest = seedStudent(t, repo, schoolID, fmt.Sprintf("ADM-10%d", i), "6", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := repo.List(context.Background(), schoolID, "", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)

	cursor := &pagination.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	rest, err := repo.List(context.Background(), schoolID, "", cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].CreatedAt.Before(page[1].CreatedAt))
}

func TestStudentRepoListFiltersByGrade(t *testing.T) {
	repo := NewRepository(setupStudentsTestDB(t))
	schoolID := uuid.New()
	now := time.Now().UTC()
	seedStudent(t, repo, schoolID, "ADM-201", "5", now)
	target := seedStudent(t, repo, schoolID, "ADM-202", "6", now.Add(time.Second))

	rows, err := repo.List(context.Background(), schoolID, "6", nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, target.ID, rows[0].ID)
}

func TestStudentRepoUpdatesAndActiveCount(t *testing.T) {
	repo := NewRepository(setupStudentsTestDB(t))
	schoolID := uuid.New()
	student := seedStudent(t, repo, schoolID, "ADM-301", "5", time.Now().UTC())

	count, err := repo.CountActiveBySchool(context.Background(), schoolID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Updates(context.Background(), schoolID, student.ID, map[string]any{
		"grade_level": "6",
		"is_active":   false,
	}))

	updated, err := repo.FindByID(context.Background(), schoolID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", updated.GradeLevel)
	assert.False(t, updated.IsActive)

	count, err = repo.CountActiveBySchool(context.Background(), schoolID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
