// Package grading scores quiz submissions. Everything here is pure: no I/O and
// no clock, so the same input always produces the same result.
package grading

import (
	"strings"

	"github.com/pavelanni/tutorquiz/internal/model"
)

// Result is the outcome of grading one submission.
type Result struct {
	Answers        []model.AnswerRecord
	TotalQuestions int
	CorrectAnswers int
	TotalPoints    int
	EarnedPoints   int
	Score          float64
	Passed         bool
	TimeSpent      int
}

// Grade evaluates the submitted answers against the quiz.
//
// Answers that reference a question not in the quiz are dropped. TotalPoints
// covers only the questions that were answered, while TotalQuestions is the
// size of the whole quiz, so skipped questions do not lower the score.
func Grade(quiz model.Quiz, answers []model.SubmittedAnswer, timeSpent int) Result {
	index := quiz.QuestionIndex()
	res := Result{
		Answers:        make([]model.AnswerRecord, 0, len(answers)),
		TotalQuestions: len(quiz.Questions),
		TimeSpent:      timeSpent,
	}

	for _, a := range answers {
		q, ok := index[a.QuestionID]
		if !ok {
			continue
		}
		rec := evaluate(q, a)
		res.TotalPoints += q.Points
		res.EarnedPoints += rec.PointsEarned
		if rec.IsCorrect {
			res.CorrectAnswers++
		}
		res.Answers = append(res.Answers, rec)
	}

	if res.TotalPoints > 0 {
		res.Score = float64(res.EarnedPoints) / float64(res.TotalPoints) * 100
	}
	res.Passed = res.Score >= quiz.PassingScore
	return res
}

func evaluate(q model.Question, a model.SubmittedAnswer) model.AnswerRecord {
	rec := model.AnswerRecord{QuestionID: q.ID}

	switch {
	case q.Type.IsChoice():
		rec.SelectedOptionID = a.SelectedOptionID
		if opt, ok := q.Option(a.SelectedOptionID); ok {
			rec.IsCorrect = opt.IsCorrect
		}
	case q.Type == model.QuestionShortAnswer:
		// A missing answer compares as the empty string.
		rec.TextAnswer = a.TextAnswer
		rec.IsCorrect = strings.EqualFold(a.TextAnswer, q.CorrectAnswer)
	}

	if rec.IsCorrect {
		rec.PointsEarned = q.Points
	}
	return rec
}

// Summarize computes aggregate statistics over a set of attempts. With no
// attempts every figure is 0.
func Summarize(attempts []model.Attempt) model.AttemptStats {
	stats := model.AttemptStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats
	}

	var sum float64
	var passed int
	for i, a := range attempts {
		sum += a.Score
		if a.Passed {
			passed++
		}
		if i == 0 || a.Score > stats.TopScore {
			stats.TopScore = a.Score
		}
	}
	stats.AverageScore = sum / float64(len(attempts))
	stats.PassRate = float64(passed) / float64(len(attempts)) * 100
	return stats
}
