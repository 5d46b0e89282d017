package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/tutorquiz/internal/model"
)

const quizColumns = `id, course_id, lesson_id, title, description, passing_score, time_limit,
	max_attempts, is_published, shuffle_questions, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (model.Quiz, error) {
	var q model.Quiz
	err := row.Scan(&q.ID, &q.CourseID, &q.LessonID, &q.Title, &q.Description, &q.PassingScore, &q.TimeLimit,
		&q.MaxAttempts, &q.IsPublished, &q.ShuffleQuestions, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// CreateQuiz stores a quiz with its questions and options. Ids must already be set.
func (s *Store) CreateQuiz(ctx context.Context, q model.Quiz) error {
	return s.CreateQuizzes(ctx, []model.Quiz{q})
}

// CreateQuizzes stores several quizzes in one transaction. Either all of
// them are stored or none is.
func (s *Store) CreateQuizzes(ctx context.Context, quizzes []model.Quiz) error {
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range quizzes {
			if q.CreatedAt.IsZero() {
				q.CreatedAt = now
			}
			if q.UpdatedAt.IsZero() {
				q.UpdatedAt = q.CreatedAt
			}
			if err := insertQuiz(ctx, tx, q); err != nil {
				slog.Error("failed to create quiz", "quiz_id", q.ID, "course_id", q.CourseID, "error", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, q := range quizzes {
		slog.Info("created quiz", "quiz_id", q.ID, "course_id", q.CourseID, "questions", len(q.Questions))
	}
	return nil
}

func insertQuiz(ctx context.Context, tx *sql.Tx, q model.Quiz) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (`+quizColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.CourseID, q.LessonID, q.Title, q.Description, q.PassingScore, q.TimeLimit,
		q.MaxAttempts, q.IsPublished, q.ShuffleQuestions, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return insertQuestions(ctx, tx, q.ID, q.Questions)
}

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID string, questions []model.Question) error {
	for i, qq := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, position, text, type, correct_answer, points, explanation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			qq.ID, quizID, i, qq.Text, qq.Type, qq.CorrectAnswer, qq.Points, qq.Explanation,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", qq.ID, err)
		}
		for j, o := range qq.Options {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO options (id, question_id, position, text, is_correct) VALUES (?, ?, ?, ?, ?)`,
				o.ID, qq.ID, j, o.Text, o.IsCorrect,
			)
			if err != nil {
				return fmt.Errorf("insert option %s: %w", o.ID, err)
			}
		}
	}
	return nil
}

func deleteQuestions(ctx context.Context, tx *sql.Tx, quizID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id = ?)`, quizID,
	); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = ?`, quizID)
	return err
}

// GetQuiz returns a quiz with its questions and options in authoring order.
func (s *Store) GetQuiz(ctx context.Context, id string) (model.Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id))
	if err != nil {
		return model.Quiz{}, notFound(err)
	}
	if q.Questions, err = s.loadQuestions(ctx, q.ID); err != nil {
		return model.Quiz{}, err
	}
	return q, nil
}

// ListQuizzesByCourse returns the quizzes of a course, oldest first.
func (s *Store) ListQuizzesByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]model.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE course_id = ?`
	if publishedOnly {
		query += ` AND is_published = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	var quizzes []model.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range quizzes {
		if quizzes[i].Questions, err = s.loadQuestions(ctx, quizzes[i].ID); err != nil {
			return nil, err
		}
	}
	return quizzes, nil
}

func (s *Store) loadQuestions(ctx context.Context, quizID string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, correct_answer, points, explanation
		 FROM questions WHERE quiz_id = ? ORDER BY position`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	index := make(map[string]int)
	for rows.Next() {
		var qq model.Question
		if err := rows.Scan(&qq.ID, &qq.Text, &qq.Type, &qq.CorrectAnswer, &qq.Points, &qq.Explanation); err != nil {
			return nil, err
		}
		index[qq.ID] = len(questions)
		questions = append(questions, qq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM options o JOIN questions q ON q.id = o.question_id
		 WHERE q.quiz_id = ? ORDER BY q.position, o.position`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()
	for optRows.Next() {
		var o model.Option
		var questionID string
		if err := optRows.Scan(&o.ID, &questionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}

// UpdateQuiz overwrites the quiz settings and replaces its questions.
func (s *Store) UpdateQuiz(ctx context.Context, q model.Quiz) error {
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now().UTC()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE quizzes SET lesson_id = ?, title = ?, description = ?, passing_score = ?, time_limit = ?,
			 max_attempts = ?, is_published = ?, shuffle_questions = ?, updated_at = ?
			 WHERE id = ?`,
			q.LessonID, q.Title, q.Description, q.PassingScore, q.TimeLimit,
			q.MaxAttempts, q.IsPublished, q.ShuffleQuestions, q.UpdatedAt, q.ID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if err := deleteQuestions(ctx, tx, q.ID); err != nil {
			return err
		}
		return insertQuestions(ctx, tx, q.ID, q.Questions)
	})
	if err != nil {
		return err
	}
	slog.Info("updated quiz", "quiz_id", q.ID, "published", q.IsPublished)
	return nil
}

// DeleteQuiz removes a quiz and its questions. Recorded attempts are kept.
func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteQuestions(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("deleted quiz", "quiz_id", id)
	return nil
}
