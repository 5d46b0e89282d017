package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/tutorquiz/internal/model"
)

const attemptColumns = `r.id, r.student_id, r.quiz_id, r.course_id, r.attempt_number, r.total_questions,
	r.correct_answers, r.score, r.passed, r.time_spent, r.started_at, r.completed_at`

func scanAttempt(row rowScanner, extra ...any) (model.Attempt, error) {
	var a model.Attempt
	dest := []any{&a.ID, &a.StudentID, &a.QuizID, &a.CourseID, &a.AttemptNumber, &a.TotalQuestions,
		&a.CorrectAnswers, &a.Score, &a.Passed, &a.TimeSpent, &a.StartedAt, &a.CompletedAt}
	err := row.Scan(append(dest, extra...)...)
	return a, err
}

// CountAttempts returns how many attempts the student has recorded for the quiz.
func (s *Store) CountAttempts(ctx context.Context, studentID, quizID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_results WHERE student_id = ? AND quiz_id = ?`, studentID, quizID,
	).Scan(&count)
	return count, err
}

// RecordAttempt appends a graded attempt to the ledger. It returns ErrConflict
// when the student already has an attempt with the same number for the quiz.
func (s *Store) RecordAttempt(ctx context.Context, a model.Attempt) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_results (id, student_id, quiz_id, course_id, attempt_number, total_questions,
			 correct_answers, score, passed, time_spent, started_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.StudentID, a.QuizID, a.CourseID, a.AttemptNumber, a.TotalQuestions,
			a.CorrectAnswers, a.Score, a.Passed, a.TimeSpent, a.StartedAt, a.CompletedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		for i, ans := range a.Answers {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO answer_records (result_id, position, question_id, selected_option_id, text_answer,
				 is_correct, points_earned) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.ID, i, ans.QuestionID, ans.SelectedOptionID, ans.TextAnswer, ans.IsCorrect, ans.PointsEarned,
			)
			if err != nil {
				return fmt.Errorf("insert answer %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			slog.Warn("attempt number already taken",
				"student_id", a.StudentID, "quiz_id", a.QuizID, "attempt", a.AttemptNumber)
		}
		return err
	}
	slog.Info("recorded attempt",
		"result_id", a.ID, "student_id", a.StudentID, "quiz_id", a.QuizID,
		"attempt", a.AttemptNumber, "score", a.Score, "passed", a.Passed)
	return nil
}

// GetAttempt returns an attempt with its answers.
func (s *Store) GetAttempt(ctx context.Context, id string) (model.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM quiz_results r WHERE r.id = ?`, id,
	))
	if err != nil {
		return model.Attempt{}, notFound(err)
	}
	if a.Answers, err = s.loadAnswers(ctx, a.ID); err != nil {
		return model.Attempt{}, err
	}
	return a, nil
}

// ListStudentAttempts returns a student's attempts on a quiz by ascending attempt number.
func (s *Store) ListStudentAttempts(ctx context.Context, studentID, quizID string) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM quiz_results r
		 WHERE r.student_id = ? AND r.quiz_id = ? ORDER BY r.attempt_number`, studentID, quizID,
	)
	if err != nil {
		return nil, err
	}
	attempts, err := collectAttempts(rows, false)
	if err != nil {
		return nil, err
	}
	return attempts, s.attachAnswers(ctx, attempts)
}

// ListQuizAttempts returns every attempt on a quiz with the student's identity attached.
func (s *Store) ListQuizAttempts(ctx context.Context, quizID string) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+`, COALESCE(u.display_name, '')
		 FROM quiz_results r LEFT JOIN users u ON u.id = r.student_id
		 WHERE r.quiz_id = ? ORDER BY r.completed_at, r.student_id, r.attempt_number`, quizID,
	)
	if err != nil {
		return nil, err
	}
	attempts, err := collectAttempts(rows, true)
	if err != nil {
		return nil, err
	}
	return attempts, s.attachAnswers(ctx, attempts)
}

func collectAttempts(rows *sql.Rows, withStudent bool) ([]model.Attempt, error) {
	defer rows.Close()
	attempts := []model.Attempt{}
	for rows.Next() {
		var (
			a    model.Attempt
			err  error
			name string
		)
		if withStudent {
			a, err = scanAttempt(rows, &name)
			a.Student = &model.UserRef{ID: a.StudentID, DisplayName: name}
		} else {
			a, err = scanAttempt(rows)
		}
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *Store) attachAnswers(ctx context.Context, attempts []model.Attempt) error {
	for i := range attempts {
		answers, err := s.loadAnswers(ctx, attempts[i].ID)
		if err != nil {
			return err
		}
		attempts[i].Answers = answers
	}
	return nil
}

func (s *Store) loadAnswers(ctx context.Context, resultID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, selected_option_id, text_answer, is_correct, points_earned
		 FROM answer_records WHERE result_id = ? ORDER BY position`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.AnswerRecord{}
	for rows.Next() {
		var ans model.AnswerRecord
		if err := rows.Scan(&ans.QuestionID, &ans.SelectedOptionID, &ans.TextAnswer, &ans.IsCorrect, &ans.PointsEarned); err != nil {
			return nil, err
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}
