package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var email, phone *string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&email,
		&phone,
		&a.Date,
		&a.Time,
		&a.Duration,
		&a.LessonType,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if email != nil {
		a.Email = *email
	}
	if phone != nil {
		a.Phone = *phone
	}
	return &a, nil
}

func (r *PgRepository) ListForDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, lesson_date, start_time, duration_minutes, lesson_type, created_at
		FROM appointments
		WHERE lesson_date = $1
		ORDER BY start_time, duration_minutes
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", date, err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", date, err)
	}

	return result, nil
}

func (r *PgRepository) IsSlotAvailable(ctx context.Context, date, startTime string, duration int) (bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id
		FROM appointments
		WHERE lesson_date = $1 AND start_time = $2 AND duration_minutes = $3
	`, date, startTime, duration).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("check slot availability: %w", err)
	}
	return false, nil
}

func (r *PgRepository) Save(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (name, email, phone, lesson_date, start_time, duration_minutes, lesson_type)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id, name, email, phone, lesson_date, start_time, duration_minutes, lesson_type, created_at
	`, appt.Name, appt.Email, appt.Phone, appt.Date, appt.Time, appt.Duration, appt.LessonType)

	saved, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return saved, nil
}
