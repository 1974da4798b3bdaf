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

func TestOverwriteBatchReplacesRecords(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(30), int64(1), date).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(31), int64(1), date).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attendance").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	markedBy := int64(2)
	err := repo.OverwriteBatch(context.Background(), []models.Attendance{
		{StudentID: 30, ClassID: 1, Date: date, Status: models.AttendancePresent, MarkedBy: &markedBy},
		{StudentID: 31, ClassID: 1, Date: date, Status: models.AttendanceAbsent, MarkedBy: &markedBy},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverwriteBatchEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	err := repo.OverwriteBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceSummaryPercentage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"present", "absent", "late", "excused", "total"}).
		AddRow(8, 1, 1, 0, 10)
	classID := int64(1)
	mock.ExpectQuery("SELECT").WithArgs(classID).WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), models.AttendanceFilter{ClassID: &classID})
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Present)
	assert.Equal(t, 80.0, summary.Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceSummaryEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"present", "absent", "late", "excused", "total"}).
		AddRow(0, 0, 0, 0, 0)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	classID, studentID := int64(1), int64(30)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "attendance_date", "status", "notes", "marked_by", "marked_on"}).
		AddRow(int64(5), studentID, classID, now, "present", nil, nil, now)
	mock.ExpectQuery("SELECT id, student_id, class_id, attendance_date").
		WithArgs(classID, studentID).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AttendanceFilter{ClassID: &classID, StudentID: &studentID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendancePresent, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
