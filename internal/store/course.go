package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/tutorquiz/internal/model"
)

// CreateCourse stores a course.
func (s *Store) CreateCourse(ctx context.Context, c model.Course) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, tutor_id, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, c.TutorID, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		slog.Error("failed to create course", "course_id", c.ID, "error", err)
		return err
	}
	slog.Info("created course", "course_id", c.ID, "tutor_id", c.TutorID)
	return nil
}

// GetCourse returns a course by id.
func (s *Store) GetCourse(ctx context.Context, id string) (model.Course, error) {
	var c model.Course
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, tutor_id, created_at FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.TutorID, &c.CreatedAt)
	if err != nil {
		return model.Course{}, notFound(err)
	}
	return c, nil
}

// CourseOwner returns the id of the tutor who owns the course.
func (s *Store) CourseOwner(ctx context.Context, courseID string) (string, error) {
	var tutorID string
	err := s.db.QueryRowContext(ctx, `SELECT tutor_id FROM courses WHERE id = ?`, courseID).Scan(&tutorID)
	if err != nil {
		return "", notFound(err)
	}
	return tutorID, nil
}

// ListCourses returns all courses ordered by creation time.
func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, tutor_id, created_at FROM courses ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.TutorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
