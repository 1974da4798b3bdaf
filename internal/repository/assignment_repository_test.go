package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestReplaceForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM student_class_map WHERE student_id").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM student_subjects WHERE student_id").
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_class_map").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_class_map").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO student_subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceForStudent(context.Background(), 10, []int64{1, 2}, []string{"Math"}, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForTeacherEmptySetClears(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM teacher_class_map WHERE teacher_id").
		WithArgs(int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM teacher_subjects WHERE teacher_id").
		WithArgs(int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceForTeacher(context.Background(), 20, nil, nil, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentsForUserByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT class_id FROM teacher_class_map").
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT subject_name FROM teacher_subjects").
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"subject_name"}).AddRow("Math"))

	assignments, err := repo.AssignmentsForUser(context.Background(), 20, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, assignments.ClassIDs)
	assert.Equal(t, []string{"Math"}, assignments.SubjectNames)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasTeacherClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM teacher_class_map").
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := repo.HasTeacherClass(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery("SELECT 1 FROM teacher_class_map").
		WithArgs(int64(2), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err = repo.HasTeacherClass(context.Background(), 2, 9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsStudentEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM student_class_map").
		WithArgs(int64(30), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err := repo.IsStudentEnrolled(context.Background(), 30, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
