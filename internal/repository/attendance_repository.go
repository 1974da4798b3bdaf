package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AttendanceRepository handles persistence of the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// OverwriteBatch records the given attendance entries for one class and day
// in a single transaction. Each entry replaces any prior record for its
// (student, class, date) key; students absent from the batch keep whatever
// record they already had.
func (r *AttendanceRepository) OverwriteBatch(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark attendance: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range records {
		if records[i].MarkedOn.IsZero() {
			records[i].MarkedOn = time.Now().UTC()
		}
		const deleteQuery = `DELETE FROM attendance WHERE student_id = $1 AND class_id = $2 AND attendance_date = $3`
		if _, err := tx.ExecContext(ctx, deleteQuery, records[i].StudentID, records[i].ClassID, records[i].Date); err != nil {
			return fmt.Errorf("clear attendance record: %w", err)
		}
		const insertQuery = `INSERT INTO attendance (student_id, class_id, attendance_date, status, notes, marked_by, marked_on)
            VALUES (:student_id, :class_id, :attendance_date, :status, :notes, :marked_by, :marked_on)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, records[i]); err != nil {
			return fmt.Errorf("insert attendance record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark attendance: %w", err)
	}
	return nil
}

// List returns attendance records matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	query := `SELECT id, student_id, class_id, attendance_date, status, notes, marked_by, marked_on FROM attendance`
	clause, args := attendanceConditions(filter)
	query += clause + " ORDER BY attendance_date DESC, student_id"

	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Summary aggregates status counts and a presence percentage over the filter.
// An empty result set yields zero counts, not an error.
func (r *AttendanceRepository) Summary(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceSummary, error) {
	query := `SELECT
        COUNT(*) FILTER (WHERE status = 'present') AS present,
        COUNT(*) FILTER (WHERE status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE status = 'late') AS late,
        COUNT(*) FILTER (WHERE status = 'excused') AS excused,
        COUNT(*) AS total
        FROM attendance`
	clause, args := attendanceConditions(filter)
	query += clause

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("summarise attendance: %w", err)
	}
	if summary.Total > 0 {
		pct := float64(summary.Present) / float64(summary.Total) * 100
		summary.Percentage = math.Round(pct*100) / 100
	}
	return &summary, nil
}

func attendanceConditions(filter models.AttendanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.ClassID != nil {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, *filter.ClassID)
	}
	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, *filter.StudentID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("attendance_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("attendance_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
