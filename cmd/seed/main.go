package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pianostudio/lesson-booking/internal/booking"
	"github.com/pianostudio/lesson-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	days := 14
	if v := os.Getenv("SEED_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAppointments(context.Background(), pool, days); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

var lessonTypes = []booking.LessonType{
	booking.LessonOnline,
	booking.LessonStudentLocation,
	booking.LessonTeacherLocation,
}

// seedAppointments books a handful of random half-hour-aligned lessons per
// upcoming day. Collisions with already-seeded slots are skipped by the
// unique constraint rather than checked up front.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, days int) error {
	log.Printf("seeding appointments for the next %d days", days)

	total := 0
	today := time.Now()

	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d).Format("2006-01-02")
		perDay := gofakeit.Number(2, 6)

		for i := 0; i < perDay; i++ {
			startMinutes := gofakeit.Number(0, 23)*30 + 8*60 // 08:00 .. 19:30
			startTime := fmt.Sprintf("%02d:%02d", startMinutes/60, startMinutes%60)

			duration := 30
			if gofakeit.Bool() {
				duration = 60
			}

			lessonType := lessonTypes[gofakeit.Number(0, len(lessonTypes)-1)]

			tag, err := pool.Exec(ctx, `
				INSERT INTO appointments (name, email, phone, lesson_date, start_time, duration_minutes, lesson_type)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT ON CONSTRAINT appointments_slot_key DO NOTHING
			`, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), date, startTime, duration, lessonType)
			if err != nil {
				return err
			}
			total += int(tag.RowsAffected())
		}
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}
