package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestSaveBatchUpdatesThenInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectBegin()
	// first mark already exists, the update hits
	mock.ExpectExec("UPDATE marks SET").WillReturnResult(sqlmock.NewResult(0, 1))
	// second mark is new: update misses, insert follows
	mock.ExpectExec("UPDATE marks SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO marks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, updated, err := repo.SaveBatch(context.Background(), []models.Mark{
		{AssessmentID: 50, StudentID: 30, Score: 18},
		{AssessmentID: 50, StudentID: 31, Score: 16},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	inserted, updated, err := repo.SaveBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Zero(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByAssessment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	rows := sqlmock.NewRows([]string{"id", "assessment_id", "student_id", "score", "comment", "updated_at"}).
		AddRow(int64(7), int64(50), int64(30), 18.0, "good", time.Now()).
		AddRow(int64(8), int64(50), int64(31), 12.5, nil, time.Now())
	mock.ExpectQuery("SELECT id, assessment_id, student_id, score, comment, updated_at FROM marks").
		WithArgs(int64(50)).
		WillReturnRows(rows)

	marks, err := repo.ListByAssessment(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, int64(30), marks[0].StudentID)
	assert.Nil(t, marks[1].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeightedRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	rows := sqlmock.NewRows([]string{"assessment_id", "score", "max_score", "weight"}).
		AddRow(int64(50), 18.0, 20.0, 0.2).
		AddRow(int64(51), 24.0, 30.0, 0.3)
	mock.ExpectQuery("SELECT m.assessment_id, m.score, a.max_score, a.weight").
		WithArgs(int64(30), int64(1), "Math").
		WillReturnRows(rows)

	got, err := repo.WeightedRows(context.Background(), 30, 1, "Math")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 20.0, got[0].MaxScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetEntriesIncludesUnmarkedStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "score", "comment"}).
		AddRow(int64(30), "Alice A", 87.5, "good").
		AddRow(int64(31), "Bob B", nil, nil)
	mock.ExpectQuery("SELECT u.id AS student_id, u.name AS student_name").
		WithArgs(int64(50), int64(1)).
		WillReturnRows(rows)

	entries, err := repo.SheetEntries(context.Background(), 50, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Score)
	assert.Equal(t, 87.5, *entries[0].Score)
	assert.Nil(t, entries[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
