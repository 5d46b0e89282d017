package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pavelanni/tutorquiz/internal/model"
	"github.com/pavelanni/tutorquiz/internal/quiz"
	"github.com/pavelanni/tutorquiz/internal/store"
)

// importQuizzes loads quiz definitions from JSON files into a course. A file
// holds either one quiz object or an array of them and is imported whole or
// not at all. Files already imported are skipped.
func importQuizzes(ctx context.Context, db *store.Store, svc *quiz.Service, courseID, tutorID string, paths []string) error {
	course, err := db.GetCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("course %s: %w", courseID, err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("quiz file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("quiz file changed since last import, skipping to avoid duplicate quizzes",
				"path", path)
			continue
		}

		inputs, err := parseQuizFile(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		views, err := svc.ImportQuizzes(ctx, tutorID, course.ID, inputs)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, describe(err))
		}
		for _, v := range views {
			slog.Info("imported quiz", "path", path, "quiz_id", v.ID, "title", v.Title)
		}

		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported quiz file", "path", path, "course", course.Title, "count", len(inputs))
	}

	return nil
}

func parseQuizFile(data []byte) ([]model.QuizInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var inputs []model.QuizInput
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, err
		}
		return inputs, nil
	}
	var in model.QuizInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return []model.QuizInput{in}, nil
}

// describe appends field messages to validation errors.
func describe(err error) error {
	var qe *quiz.Error
	if !errors.As(err, &qe) || len(qe.Fields) == 0 {
		return err
	}
	return fmt.Errorf("%w %v", err, qe.Fields)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
