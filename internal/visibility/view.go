package visibility

import (
	"errors"

	"github.com/pavelanni/tutorquiz/internal/model"
)

// ErrDenied is returned when the viewer may not see the quiz.
var ErrDenied = errors.New("quiz access denied")

// ForViewer projects the quiz for the subject according to the role table.
func ForViewer(q model.Quiz, s Subject) (model.QuizView, error) {
	switch QuizAccess(q, s) {
	case Full:
		return FullView(q), nil
	case Redacted:
		return Redact(FullView(q)), nil
	}
	return model.QuizView{}, ErrDenied
}

// ForListing projects a quiz for a course listing. The answer key is always
// stripped, whoever is listing.
func ForListing(q model.Quiz) model.QuizView {
	return Redact(FullView(q))
}

// FullView converts a quiz into a view that keeps every answer field.
func FullView(q model.Quiz) model.QuizView {
	v := model.QuizView{
		ID:               q.ID,
		CourseID:         q.CourseID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Description:      q.Description,
		Questions:        make([]model.QuestionView, 0, len(q.Questions)),
		PassingScore:     q.PassingScore,
		TimeLimit:        q.TimeLimit,
		MaxAttempts:      q.MaxAttempts,
		IsPublished:      q.IsPublished,
		ShuffleQuestions: q.ShuffleQuestions,
	}
	for _, qq := range q.Questions {
		qv := model.QuestionView{
			ID:     qq.ID,
			Text:   qq.Text,
			Type:   qq.Type,
			Points: qq.Points,
		}
		if qq.Type == model.QuestionShortAnswer {
			qv.CorrectAnswer = ptr(qq.CorrectAnswer)
		}
		if qq.Explanation != "" {
			qv.Explanation = ptr(qq.Explanation)
		}
		for _, o := range qq.Options {
			qv.Options = append(qv.Options, model.OptionView{
				ID:        o.ID,
				Text:      o.Text,
				IsCorrect: ptr(o.IsCorrect),
			})
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

// Redact strips the answer key from a view: option correctness, the short
// answer and the explanation. Redact is idempotent.
func Redact(v model.QuizView) model.QuizView {
	out := v
	out.Questions = make([]model.QuestionView, len(v.Questions))
	for i, qv := range v.Questions {
		qv.CorrectAnswer = nil
		qv.Explanation = nil
		if qv.Options != nil {
			opts := make([]model.OptionView, len(qv.Options))
			for j, o := range qv.Options {
				opts[j] = model.OptionView{ID: o.ID, Text: o.Text}
			}
			qv.Options = opts
		}
		out.Questions[i] = qv
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
