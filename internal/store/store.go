package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		last_seen_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		tutor_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		passing_score REAL NOT NULL DEFAULT 70,
		time_limit INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 1,
		is_published INTEGER NOT NULL DEFAULT 0,
		shuffle_questions INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);
	CREATE INDEX IF NOT EXISTS idx_quizzes_course ON quizzes(course_id);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		correct_answer TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 1,
		explanation TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);

	CREATE TABLE IF NOT EXISTS options (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, position);

	CREATE TABLE IF NOT EXISTS quiz_results (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL,
		score REAL NOT NULL,
		passed INTEGER NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL,
		UNIQUE (student_id, quiz_id, attempt_number)
	);
	CREATE INDEX IF NOT EXISTS idx_quiz_results_quiz ON quiz_results(quiz_id);

	CREATE TABLE IF NOT EXISTS answer_records (
		result_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		selected_option_id TEXT NOT NULL DEFAULT '',
		text_answer TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL,
		points_earned INTEGER NOT NULL,
		PRIMARY KEY (result_id, position),
		FOREIGN KEY (result_id) REFERENCES quiz_results(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
