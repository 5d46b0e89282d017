package quiz

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tutorquiz/internal/model"
	"github.com/pavelanni/tutorquiz/internal/store"
)

var (
	tutor      = model.Actor{UserID: "tutor-1", Role: model.RoleTutor}
	otherTutor = model.Actor{UserID: "tutor-2", Role: model.RoleTutor}
	student    = model.Actor{UserID: "student-1", Role: model.RoleStudent}
	student2   = model.Actor{UserID: "student-2", Role: model.RoleStudent}
	admin      = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}

	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc   *Service
	store *store.Store
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.CreateCourse(ctx, model.Course{ID: "course-1", Title: "Geography", TutorID: tutor.UserID}))
	require.NoError(t, st.CreateCourse(ctx, model.Course{ID: "course-2", Title: "History", TutorID: otherTutor.UserID}))

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return fixture{svc: New(st, opts...), store: st}
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool { return &v }
func strPtr(v string) *string { return &v }

func choiceInput(maxAttempts int, published bool) model.QuizInput {
	return model.QuizInput{
		Title:       "Capitals",
		IsPublished: published,
		MaxAttempts: intPtr(maxAttempts),
		Questions: []model.QuestionInput{{
			Text: "Capital of Italy?",
			Type: model.QuestionMultipleChoice,
			Options: []model.OptionInput{
				{Text: "Rome", IsCorrect: true},
				{Text: "Milan"},
			},
		}},
	}
}

func createQuiz(t *testing.T, f fixture, in model.QuizInput) model.QuizView {
	t.Helper()
	v, err := f.svc.CreateQuiz(context.Background(), tutor, "course-1", in)
	require.NoError(t, err)
	return v
}

func optionID(t *testing.T, v model.QuizView, text string) string {
	t.Helper()
	for _, q := range v.Questions {
		for _, o := range q.Options {
			if o.Text == text {
				return o.ID
			}
		}
	}
	t.Fatalf("option %q not found", text)
	return ""
}

func requireKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
	var e *Error
	require.True(t, errors.As(err, &e))
	return e
}

func TestCreateQuizAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	in := model.QuizInput{
		Title: "Defaults",
		Questions: []model.QuestionInput{
			{Text: "Say hi", Type: model.QuestionShortAnswer, CorrectAnswer: "hi"},
		},
	}
	v := createQuiz(t, f, in)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, float64(model.DefaultPassingScore), v.PassingScore)
	assert.Equal(t, model.DefaultMaxAttempts, v.MaxAttempts)
	require.Len(t, v.Questions, 1)
	assert.Equal(t, model.DefaultPoints, v.Questions[0].Points)
	assert.NotEmpty(t, v.Questions[0].ID)
	require.NotNil(t, v.Questions[0].CorrectAnswer)
	assert.Equal(t, "hi", *v.Questions[0].CorrectAnswer)
	assert.False(t, v.IsPublished)

	stored, err := f.store.GetQuiz(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, tutor.UserID, stored.CreatedBy)
	assert.Equal(t, "course-1", stored.CourseID)
}

func TestCreateQuizConfiguredDefaults(t *testing.T) {
	f := newFixture(t, WithDefaults(50, 3))
	in := choiceInput(1, false)
	in.MaxAttempts = nil
	v := createQuiz(t, f, in)
	assert.Equal(t, 50.0, v.PassingScore)
	assert.Equal(t, 3, v.MaxAttempts)
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		mutate    func(in *model.QuizInput)
		wantField string
	}{
		{"missing title", func(in *model.QuizInput) { in.Title = "" }, "title"},
		{"no questions", func(in *model.QuizInput) { in.Questions = nil }, "questions"},
		{"empty questions", func(in *model.QuizInput) { in.Questions = []model.QuestionInput{} }, "questions"},
		{"passing score above 100", func(in *model.QuizInput) { in.PassingScore = floatPtr(101) }, "passingScore"},
		{"zero max attempts", func(in *model.QuizInput) { in.MaxAttempts = intPtr(0) }, "maxAttempts"},
		{"unknown type", func(in *model.QuizInput) { in.Questions[0].Type = "essay" }, "questions[0].type"},
		{"one option", func(in *model.QuizInput) { in.Questions[0].Options = in.Questions[0].Options[:1] }, "questions[0].options"},
		{"no correct option", func(in *model.QuizInput) { in.Questions[0].Options[0].IsCorrect = false }, "questions[0].options"},
		{"blank option text", func(in *model.QuizInput) { in.Questions[0].Options[1].Text = "" }, "questions[0].options[1].text"},
		{"true-false with three options", func(in *model.QuizInput) {
			in.Questions[0].Type = model.QuestionTrueFalse
			in.Questions[0].Options = append(in.Questions[0].Options, model.OptionInput{Text: "Maybe"})
		}, "questions[0].options"},
		{"short answer without answer", func(in *model.QuizInput) {
			in.Questions[0] = model.QuestionInput{Text: "Capital?", Type: model.QuestionShortAnswer}
		}, "questions[0].correctAnswer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := choiceInput(1, false)
			tt.mutate(&in)
			_, err := f.svc.CreateQuiz(context.Background(), tutor, "course-1", in)
			e := requireKind(t, err, KindValidation)
			assert.Contains(t, e.Fields, tt.wantField, "fields: %v", e.Fields)
		})
	}
}

func TestCreateQuizAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateQuiz(ctx, student, "course-1", choiceInput(1, false))
	requireKind(t, err, KindForbidden)

	_, err = f.svc.CreateQuiz(ctx, otherTutor, "course-1", choiceInput(1, false))
	requireKind(t, err, KindForbidden)

	_, err = f.svc.CreateQuiz(ctx, tutor, "no-such-course", choiceInput(1, false))
	requireKind(t, err, KindNotFound)

	_, err = f.svc.CreateQuiz(ctx, admin, "course-1", choiceInput(1, false))
	require.NoError(t, err)
}

func TestScenarioACorrectChoice(t *testing.T) {
	f := newFixture(t)
	v := createQuiz(t, f, choiceInput(1, true))

	a, err := f.svc.SubmitAttempt(context.Background(), student, v.ID, model.SubmitInput{
		Answers:   []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, SelectedOptionID: optionID(t, v, "Rome")}},
		TimeSpent: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, a.Score)
	assert.True(t, a.Passed)
	assert.Equal(t, 1, a.CorrectAnswers)
	assert.Equal(t, 1, a.AttemptNumber)
	require.Len(t, a.Answers, 1)
	assert.True(t, a.Answers[0].IsCorrect)
	assert.Equal(t, fixedNow, a.CompletedAt)
	assert.Equal(t, fixedNow.Add(-5*time.Minute), a.StartedAt)
	assert.Equal(t, "course-1", a.CourseID)
}

func TestScenarioBWrongChoice(t *testing.T) {
	f := newFixture(t)
	v := createQuiz(t, f, choiceInput(1, true))

	a, err := f.svc.SubmitAttempt(context.Background(), student, v.ID, model.SubmitInput{
		Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, SelectedOptionID: optionID(t, v, "Milan")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Score)
	assert.False(t, a.Passed)
	assert.Equal(t, 0, a.CorrectAnswers)
}

func TestScenarioCShortAnswerIgnoresCase(t *testing.T) {
	f := newFixture(t)
	v := createQuiz(t, f, model.QuizInput{
		Title:       "France",
		IsPublished: true,
		Questions: []model.QuestionInput{
			{Text: "Capital of France?", Type: model.QuestionShortAnswer, CorrectAnswer: "Paris"},
		},
	})

	a, err := f.svc.SubmitAttempt(context.Background(), student, v.ID, model.SubmitInput{
		Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, TextAnswer: "paris"}},
	})
	require.NoError(t, err)
	assert.True(t, a.Answers[0].IsCorrect)
	assert.Equal(t, 100.0, a.Score)
}

func TestScenarioDAttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, true))
	in := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, SelectedOptionID: optionID(t, v, "Rome")}}}

	_, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(ctx, student, v.ID, in)
	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "MaxAttemptsReached", e.MessageID)
	assert.Contains(t, e.Message, "maximum attempts")

	count, err := f.store.CountAttempts(ctx, student.UserID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rejected submission must not be stored")

	// The limit is per student.
	_, err = f.svc.SubmitAttempt(ctx, student2, v.ID, in)
	require.NoError(t, err)
}

func TestScenarioETutorResultsForeignQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, true))

	_, err := f.svc.TutorResults(ctx, otherTutor, v.ID)
	requireKind(t, err, KindForbidden)

	_, err = f.svc.TutorResults(ctx, otherTutor, "missing-quiz")
	requireKind(t, err, KindForbidden)

	_, err = f.svc.TutorResults(ctx, admin, "missing-quiz")
	requireKind(t, err, KindNotFound)

	_, err = f.svc.TutorResults(ctx, student, v.ID)
	requireKind(t, err, KindForbidden)
}

func TestAttemptNumbersAreGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(3, true))
	in := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID}}}

	for i := 1; i <= 3; i++ {
		a, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
		require.NoError(t, err)
		assert.Equal(t, i, a.AttemptNumber)
	}
	_, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
	requireKind(t, err, KindValidation)

	results, err := f.svc.StudentResults(ctx, student, v.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, a := range results {
		assert.Equal(t, i+1, a.AttemptNumber)
	}
}

type racingStore struct {
	Store
}

// CountAttempts always reports no attempts, as a concurrent reader would
// before the other writer commits.
func (racingStore) CountAttempts(context.Context, string, string) (int, error) {
	return 0, nil
}

func TestSubmitConflictIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(5, true))
	in := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID}}}

	_, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
	require.NoError(t, err)

	racing := New(racingStore{Store: f.store}, WithClock(func() time.Time { return fixedNow }))
	_, err = racing.SubmitAttempt(ctx, student, v.ID, in)
	e := requireKind(t, err, KindConflict)
	assert.True(t, e.Retryable())

	// A plain retry sees the winner and takes the next number.
	a, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 2, a.AttemptNumber)
}

func TestSubmitRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := createQuiz(t, f, choiceInput(1, false))
	in := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: draft.Questions[0].ID}}}

	_, err := f.svc.SubmitAttempt(ctx, student, draft.ID, in)
	e := requireKind(t, err, KindForbidden)
	assert.Equal(t, "QuizNotPublished", e.MessageID)

	_, err = f.svc.SubmitAttempt(ctx, student, "missing", in)
	requireKind(t, err, KindNotFound)

	_, err = f.svc.SubmitAttempt(ctx, tutor, draft.ID, in)
	requireKind(t, err, KindForbidden)

	for _, spent := range []int{-1, 100001, 1 << 40} {
		_, err = f.svc.SubmitAttempt(ctx, student, draft.ID, model.SubmitInput{TimeSpent: spent})
		e = requireKind(t, err, KindValidation)
		assert.Contains(t, e.Fields, "timeSpent", "timeSpent %d", spent)
	}
}

func TestSubmitStartedBeforeCompleted(t *testing.T) {
	f := newFixture(t)
	live := createQuiz(t, f, choiceInput(1, true))
	in := model.SubmitInput{
		Answers:   []model.SubmittedAnswer{{QuestionID: live.Questions[0].ID}},
		TimeSpent: 100000,
	}

	a, err := f.svc.SubmitAttempt(context.Background(), student, live.ID, in)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, a.CompletedAt)
	assert.Equal(t, fixedNow.Add(-100000*time.Minute), a.StartedAt)
}

func TestGetQuizVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := createQuiz(t, f, choiceInput(1, false))
	live := createQuiz(t, f, choiceInput(1, true))

	_, err := f.svc.GetQuiz(ctx, student, draft.ID)
	e := requireKind(t, err, KindForbidden)
	assert.Equal(t, "QuizNotPublished", e.MessageID)

	owned, err := f.svc.GetQuiz(ctx, tutor, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, owned.Questions[0].Options[0].IsCorrect)

	_, err = f.svc.GetQuiz(ctx, otherTutor, live.ID)
	requireKind(t, err, KindForbidden)

	seen, err := f.svc.GetQuiz(ctx, student, live.ID)
	require.NoError(t, err)
	for _, o := range seen.Questions[0].Options {
		assert.Nil(t, o.IsCorrect)
	}

	full, err := f.svc.GetQuiz(ctx, admin, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Questions[0].Options[0].IsCorrect)

	_, err = f.svc.GetQuiz(ctx, student, "missing")
	requireKind(t, err, KindNotFound)
}

func TestGetQuizShufflesForStudents(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	f := newFixture(t, WithShuffle(reverse))
	ctx := context.Background()
	in := model.QuizInput{
		Title:            "Order",
		IsPublished:      true,
		ShuffleQuestions: true,
		Questions: []model.QuestionInput{
			{Text: "first", Type: model.QuestionShortAnswer, CorrectAnswer: "a"},
			{Text: "second", Type: model.QuestionShortAnswer, CorrectAnswer: "b"},
		},
	}
	v := createQuiz(t, f, in)

	seen, err := f.svc.GetQuiz(ctx, student, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", seen.Questions[0].Text)

	owned, err := f.svc.GetQuiz(ctx, tutor, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", owned.Questions[0].Text)
}

func TestListQuizzes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	createQuiz(t, f, choiceInput(1, false))
	createQuiz(t, f, choiceInput(1, true))

	tests := []struct {
		name  string
		actor model.Actor
		want  int
	}{
		{"student sees published", student, 1},
		{"owner sees all", tutor, 2},
		{"admin sees all", admin, 2},
		{"other tutor sees published", otherTutor, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.svc.ListQuizzes(ctx, tt.actor, "course-1")
			require.NoError(t, err)
			require.Len(t, views, tt.want)
			for _, v := range views {
				for _, q := range v.Questions {
					assert.Nil(t, q.CorrectAnswer)
					for _, o := range q.Options {
						assert.Nil(t, o.IsCorrect)
					}
				}
			}
		})
	}

	empty, err := f.svc.ListQuizzes(ctx, student, "no-such-course")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, false))

	updated, err := f.svc.UpdateQuiz(ctx, tutor, v.ID, model.QuizPatch{
		Title:        strPtr("Renamed"),
		MaxAttempts:  intPtr(4),
		PassingScore: floatPtr(55),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 4, updated.MaxAttempts)
	assert.Equal(t, 55.0, updated.PassingScore)
	assert.Equal(t, v.Questions[0].ID, updated.Questions[0].ID, "questions untouched")

	replaced, err := f.svc.UpdateQuiz(ctx, tutor, v.ID, model.QuizPatch{
		Questions: []model.QuestionInput{
			{Text: "Sky is blue", Type: model.QuestionTrueFalse, Options: []model.OptionInput{
				{Text: "True", IsCorrect: true}, {Text: "False"},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, replaced.Questions, 1)
	assert.Equal(t, model.QuestionTrueFalse, replaced.Questions[0].Type)

	_, err = f.svc.UpdateQuiz(ctx, tutor, v.ID, model.QuizPatch{Questions: []model.QuestionInput{}})
	requireKind(t, err, KindValidation)

	_, err = f.svc.UpdateQuiz(ctx, otherTutor, v.ID, model.QuizPatch{Title: strPtr("Hijack")})
	requireKind(t, err, KindForbidden)

	_, err = f.svc.UpdateQuiz(ctx, student, v.ID, model.QuizPatch{Title: strPtr("Hijack")})
	requireKind(t, err, KindForbidden)

	_, err = f.svc.UpdateQuiz(ctx, tutor, "missing", model.QuizPatch{Title: strPtr("x")})
	requireKind(t, err, KindNotFound)

	_, err = f.svc.UpdateQuiz(ctx, admin, v.ID, model.QuizPatch{Description: strPtr("by admin")})
	require.NoError(t, err)
}

func TestUpdateQuizUsesServiceClock(t *testing.T) {
	now := fixedNow
	f := newFixture(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, false))

	now = fixedNow.Add(time.Hour)
	_, err := f.svc.UpdateQuiz(ctx, tutor, v.ID, model.QuizPatch{Title: strPtr("Later")})
	require.NoError(t, err)

	stored, err := f.store.GetQuiz(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(fixedNow), "created_at %v", stored.CreatedAt)
	assert.True(t, stored.UpdatedAt.Equal(now), "updated_at %v", stored.UpdatedAt)
}

func TestImportQuizzes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := choiceInput(1, true)
	bad := model.QuizInput{
		Title:     "Broken",
		Questions: []model.QuestionInput{{Text: "Say hi", Type: model.QuestionShortAnswer}},
	}

	_, err := f.svc.ImportQuizzes(ctx, tutor.UserID, "course-1", []model.QuizInput{good, bad})
	e := requireKind(t, err, KindValidation)
	assert.Contains(t, e.Fields, "[1].questions[0].correctAnswer")
	stored, err := f.store.ListQuizzesByCourse(ctx, "course-1", false)
	require.NoError(t, err)
	assert.Empty(t, stored, "no quiz from a rejected batch is stored")

	_, err = f.svc.ImportQuizzes(ctx, otherTutor.UserID, "course-1", []model.QuizInput{good})
	requireKind(t, err, KindForbidden)

	views, err := f.svc.ImportQuizzes(ctx, tutor.UserID, "course-1", []model.QuizInput{good, good})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.NotEqual(t, views[0].ID, views[1].ID)
	stored, err = f.store.ListQuizzesByCourse(ctx, "course-1", false)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPublishIsOneWay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, false))

	published, err := f.svc.PublishQuiz(ctx, tutor, v.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	again, err := f.svc.PublishQuiz(ctx, tutor, v.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPublished)

	_, err = f.svc.UpdateQuiz(ctx, tutor, v.ID, model.QuizPatch{IsPublished: boolPtr(false)})
	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "CannotUnpublish", e.MessageID)

	_, err = f.svc.PublishQuiz(ctx, otherTutor, v.ID)
	requireKind(t, err, KindForbidden)
}

func TestDeleteQuizKeepsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, true))
	a, err := f.svc.SubmitAttempt(ctx, student, v.ID, model.SubmitInput{})
	require.NoError(t, err)

	err = f.svc.DeleteQuiz(ctx, otherTutor, v.ID)
	requireKind(t, err, KindForbidden)

	require.NoError(t, f.svc.DeleteQuiz(ctx, tutor, v.ID))

	_, err = f.svc.GetQuiz(ctx, tutor, v.ID)
	requireKind(t, err, KindNotFound)

	got, err := f.svc.Result(ctx, student, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	err = f.svc.DeleteQuiz(ctx, tutor, v.ID)
	requireKind(t, err, KindNotFound)
}

func TestTutorResultsStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(2, true))

	report, err := f.svc.TutorResults(ctx, tutor, v.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, model.AttemptStats{}, report.Stats)

	right := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, SelectedOptionID: optionID(t, v, "Rome")}}}
	wrong := model.SubmitInput{Answers: []model.SubmittedAnswer{{QuestionID: v.Questions[0].ID, SelectedOptionID: optionID(t, v, "Milan")}}}
	for _, in := range []model.SubmitInput{wrong, right} {
		_, err := f.svc.SubmitAttempt(ctx, student, v.ID, in)
		require.NoError(t, err)
	}
	_, err = f.svc.SubmitAttempt(ctx, student2, v.ID, right)
	require.NoError(t, err)

	report, err = f.svc.TutorResults(ctx, tutor, v.ID)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Stats.TotalAttempts)
	assert.InDelta(t, 200.0/3, report.Stats.AverageScore, 1e-9)
	assert.InDelta(t, 200.0/3, report.Stats.PassRate, 1e-9)
	assert.Equal(t, 100.0, report.Stats.TopScore)
	for _, a := range report.Results {
		require.NotNil(t, a.Student)
		assert.Equal(t, a.StudentID, a.Student.ID)
	}

	adminReport, err := f.svc.TutorResults(ctx, admin, v.ID)
	require.NoError(t, err)
	assert.Len(t, adminReport.Results, 3)
}

func TestResultByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createQuiz(t, f, choiceInput(1, true))
	a, err := f.svc.SubmitAttempt(ctx, student, v.ID, model.SubmitInput{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor model.Actor
		want  Kind
	}{
		{"own student", student, ""},
		{"other student", student2, KindForbidden},
		{"owning tutor", tutor, ""},
		{"other tutor", otherTutor, KindForbidden},
		{"admin", admin, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Result(ctx, tt.actor, a.ID)
			if tt.want == "" {
				require.NoError(t, err)
				assert.Equal(t, a.ID, got.ID)
				return
			}
			requireKind(t, err, tt.want)
		})
	}

	_, err = f.svc.Result(ctx, student, "missing")
	requireKind(t, err, KindNotFound)
}

type stubDrafter struct {
	draft model.QuizInput
	err   error
	calls int
}

func (d *stubDrafter) DraftQuiz(_ context.Context, _ model.GenerateInput) (model.QuizInput, error) {
	d.calls++
	return d.draft, d.err
}

func TestGenerateQuiz(t *testing.T) {
	draft := choiceInput(1, true)
	d := &stubDrafter{draft: draft}
	f := newFixture(t, WithDrafter(d))
	ctx := context.Background()
	in := model.GenerateInput{Topic: "capitals", NumQuestions: 1}

	v, err := f.svc.GenerateQuiz(ctx, tutor, "course-1", in)
	require.NoError(t, err)
	assert.False(t, v.IsPublished, "drafts are always stored unpublished")
	assert.Equal(t, "Capitals", v.Title)

	_, err = f.svc.GenerateQuiz(ctx, otherTutor, "course-1", in)
	requireKind(t, err, KindForbidden)

	_, err = f.svc.GenerateQuiz(ctx, tutor, "course-1", model.GenerateInput{Topic: "x", NumQuestions: 21})
	requireKind(t, err, KindValidation)
	assert.Equal(t, 1, d.calls)

	d.draft = model.QuizInput{Title: "broken"}
	_, err = f.svc.GenerateQuiz(ctx, tutor, "course-1", in)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestGenerateQuizWithoutDrafter(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.svc.HasDrafter())
	_, err := f.svc.GenerateQuiz(context.Background(), tutor, "course-1", model.GenerateInput{Topic: "x", NumQuestions: 1})
	assert.ErrorIs(t, err, ErrDrafterUnavailable)
}
