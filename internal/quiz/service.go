// Package quiz is the access controller for quizzes and attempts. It checks
// who may do what, runs grading and records attempts in the ledger.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/tutorquiz/internal/grading"
	"github.com/pavelanni/tutorquiz/internal/model"
	"github.com/pavelanni/tutorquiz/internal/store"
	"github.com/pavelanni/tutorquiz/internal/visibility"
)

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	CourseOwner(ctx context.Context, courseID string) (string, error)

	CreateQuiz(ctx context.Context, q model.Quiz) error
	CreateQuizzes(ctx context.Context, quizzes []model.Quiz) error
	GetQuiz(ctx context.Context, id string) (model.Quiz, error)
	ListQuizzesByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]model.Quiz, error)
	UpdateQuiz(ctx context.Context, q model.Quiz) error
	DeleteQuiz(ctx context.Context, id string) error

	CountAttempts(ctx context.Context, studentID, quizID string) (int, error)
	RecordAttempt(ctx context.Context, a model.Attempt) error
	GetAttempt(ctx context.Context, id string) (model.Attempt, error)
	ListStudentAttempts(ctx context.Context, studentID, quizID string) ([]model.Attempt, error)
	ListQuizAttempts(ctx context.Context, quizID string) ([]model.Attempt, error)
}

// Drafter produces quiz drafts on a topic.
type Drafter interface {
	DraftQuiz(ctx context.Context, req model.GenerateInput) (model.QuizInput, error)
}

// ErrDrafterUnavailable is returned by GenerateQuiz when no drafter is configured.
var ErrDrafterUnavailable = errors.New("quiz drafting is not configured")

// Service implements the quiz operations on behalf of an actor.
type Service struct {
	store        Store
	drafter      Drafter
	now          func() time.Time
	shuffle      func(n int, swap func(i, j int))
	newID        func() string
	passingScore float64
	maxAttempts  int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithShuffle overrides how question order is shuffled for students.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = shuffle }
}

// WithDefaults sets the passing score and attempt limit applied when a new
// quiz leaves them unset.
func WithDefaults(passingScore float64, maxAttempts int) Option {
	return func(s *Service) {
		s.passingScore = passingScore
		s.maxAttempts = maxAttempts
	}
}

// WithDrafter enables GenerateQuiz.
func WithDrafter(d Drafter) Option {
	return func(s *Service) { s.drafter = d }
}

// New creates a Service backed by st.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		now:          func() time.Time { return time.Now().UTC() },
		shuffle:      rand.Shuffle,
		newID:        uuid.NewString,
		passingScore: model.DefaultPassingScore,
		maxAttempts:  model.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasDrafter reports whether GenerateQuiz can be used.
func (s *Service) HasDrafter() bool {
	return s.drafter != nil
}

// courseOwner returns the tutor owning the course, or "" if the course is unknown.
func (s *Service) courseOwner(ctx context.Context, courseID string) (string, error) {
	owner, err := s.store.CourseOwner(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve owner of course %s: %w", courseID, err)
	}
	return owner, nil
}

func (s *Service) subject(ctx context.Context, actor model.Actor, courseID string) (visibility.Subject, error) {
	sub := visibility.Subject{Actor: actor}
	if actor.Role != model.RoleTutor {
		return sub, nil
	}
	owner, err := s.courseOwner(ctx, courseID)
	if err != nil {
		return sub, err
	}
	sub.IsOwner = owner != "" && owner == actor.UserID
	return sub, nil
}

func (s *Service) loadQuiz(ctx context.Context, quizID string) (model.Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Quiz{}, errQuizNotFound
	}
	if err != nil {
		return model.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return q, nil
}

// loadManaged loads a quiz the actor is allowed to change.
func (s *Service) loadManaged(ctx context.Context, actor model.Actor, quizID string) (model.Quiz, error) {
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return model.Quiz{}, err
	}
	sub, err := s.subject(ctx, actor, q.CourseID)
	if err != nil {
		return model.Quiz{}, err
	}
	if !visibility.CanManage(sub) {
		if actor.Role == model.RoleTutor {
			return model.Quiz{}, errNotQuizOwner
		}
		return model.Quiz{}, errRoleNotAllowed
	}
	return q, nil
}

// authorizeCourse checks that the actor may author quizzes in the course.
func (s *Service) authorizeCourse(ctx context.Context, actor model.Actor, courseID string) error {
	if actor.Role != model.RoleTutor && actor.Role != model.RoleAdmin {
		return errRoleNotAllowed
	}
	owner, err := s.courseOwner(ctx, courseID)
	if err != nil {
		return err
	}
	if owner == "" {
		return errCourseNotFound
	}
	sub := visibility.Subject{Actor: actor, IsOwner: owner == actor.UserID}
	if !visibility.CanManage(sub) {
		return errNotCourseOwner
	}
	return nil
}

// CreateQuiz authors a new quiz in the course.
func (s *Service) CreateQuiz(ctx context.Context, actor model.Actor, courseID string, in model.QuizInput) (model.QuizView, error) {
	if err := s.authorizeCourse(ctx, actor, courseID); err != nil {
		return model.QuizView{}, err
	}
	if err := checkInput(in); err != nil {
		return model.QuizView{}, err
	}
	return s.insertQuiz(ctx, actor, courseID, in)
}

// ImportQuizzes stores quiz definitions loaded from a file, on behalf of the
// course tutor. Every input is validated as in CreateQuiz before anything is
// stored, and the quizzes are stored together. Field keys of a validation
// error are prefixed with the input index, e.g. "[1].title".
func (s *Service) ImportQuizzes(ctx context.Context, tutorID, courseID string, in []model.QuizInput) ([]model.QuizView, error) {
	actor := model.Actor{UserID: tutorID, Role: model.RoleTutor}
	if err := s.authorizeCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	for i, qi := range in {
		err := checkInput(qi)
		if err == nil {
			continue
		}
		var qe *Error
		if !errors.As(err, &qe) {
			return nil, err
		}
		for k, msg := range qe.Fields {
			fields[fmt.Sprintf("[%d].%s", i, k)] = msg
		}
	}
	if len(fields) > 0 {
		return nil, validationErr(fields)
	}

	quizzes := make([]model.Quiz, 0, len(in))
	views := make([]model.QuizView, 0, len(in))
	for _, qi := range in {
		q := s.buildQuiz(actor, courseID, qi)
		quizzes = append(quizzes, q)
		views = append(views, visibility.FullView(q))
	}
	if err := s.store.CreateQuizzes(ctx, quizzes); err != nil {
		return nil, fmt.Errorf("create quizzes: %w", err)
	}
	return views, nil
}

func (s *Service) insertQuiz(ctx context.Context, actor model.Actor, courseID string, in model.QuizInput) (model.QuizView, error) {
	q := s.buildQuiz(actor, courseID, in)
	if err := s.store.CreateQuiz(ctx, q); err != nil {
		return model.QuizView{}, fmt.Errorf("create quiz: %w", err)
	}
	return visibility.FullView(q), nil
}

func (s *Service) buildQuiz(actor model.Actor, courseID string, in model.QuizInput) model.Quiz {
	now := s.now()
	q := model.Quiz{
		ID:               s.newID(),
		CourseID:         courseID,
		LessonID:         in.LessonID,
		Title:            in.Title,
		Description:      in.Description,
		Questions:        s.buildQuestions(in.Questions),
		PassingScore:     s.passingScore,
		MaxAttempts:      s.maxAttempts,
		IsPublished:      in.IsPublished,
		ShuffleQuestions: in.ShuffleQuestions,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.PassingScore != nil {
		q.PassingScore = *in.PassingScore
	}
	if in.TimeLimit != nil {
		q.TimeLimit = *in.TimeLimit
	}
	if in.MaxAttempts != nil {
		q.MaxAttempts = *in.MaxAttempts
	}
	return q
}

func (s *Service) buildQuestions(in []model.QuestionInput) []model.Question {
	questions := make([]model.Question, 0, len(in))
	for _, qi := range in {
		q := model.Question{
			ID:          s.newID(),
			Text:        qi.Text,
			Type:        qi.Type,
			Points:      model.DefaultPoints,
			Explanation: qi.Explanation,
		}
		if qi.Points != nil {
			q.Points = *qi.Points
		}
		if qi.Type == model.QuestionShortAnswer {
			q.CorrectAnswer = qi.CorrectAnswer
		} else {
			for _, oi := range qi.Options {
				q.Options = append(q.Options, model.Option{ID: s.newID(), Text: oi.Text, IsCorrect: oi.IsCorrect})
			}
		}
		questions = append(questions, q)
	}
	return questions
}

// UpdateQuiz applies a partial update. A non-nil Questions slice replaces
// every question, which assigns new ids.
func (s *Service) UpdateQuiz(ctx context.Context, actor model.Actor, quizID string, patch model.QuizPatch) (model.QuizView, error) {
	q, err := s.loadManaged(ctx, actor, quizID)
	if err != nil {
		return model.QuizView{}, err
	}
	if err := checkInput(patch); err != nil {
		return model.QuizView{}, err
	}
	if patch.Questions != nil && len(patch.Questions) == 0 {
		return model.QuizView{}, validationErr(map[string]string{"questions": "questions must contain at least 1 item"})
	}
	if patch.IsPublished != nil && !*patch.IsPublished && q.IsPublished {
		return model.QuizView{}, errCannotUnpublish
	}

	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Description != nil {
		q.Description = *patch.Description
	}
	if patch.LessonID != nil {
		q.LessonID = *patch.LessonID
	}
	if patch.Questions != nil {
		q.Questions = s.buildQuestions(patch.Questions)
	}
	if patch.PassingScore != nil {
		q.PassingScore = *patch.PassingScore
	}
	if patch.TimeLimit != nil {
		q.TimeLimit = *patch.TimeLimit
	}
	if patch.MaxAttempts != nil {
		q.MaxAttempts = *patch.MaxAttempts
	}
	if patch.IsPublished != nil {
		q.IsPublished = *patch.IsPublished
	}
	if patch.ShuffleQuestions != nil {
		q.ShuffleQuestions = *patch.ShuffleQuestions
	}

	if err := s.saveQuiz(ctx, q); err != nil {
		return model.QuizView{}, err
	}
	return visibility.FullView(q), nil
}

// PublishQuiz makes the quiz available to students. Publishing a published
// quiz is a no-op.
func (s *Service) PublishQuiz(ctx context.Context, actor model.Actor, quizID string) (model.QuizView, error) {
	q, err := s.loadManaged(ctx, actor, quizID)
	if err != nil {
		return model.QuizView{}, err
	}
	if !q.IsPublished {
		q.IsPublished = true
		if err := s.saveQuiz(ctx, q); err != nil {
			return model.QuizView{}, err
		}
	}
	return visibility.FullView(q), nil
}

func (s *Service) saveQuiz(ctx context.Context, q model.Quiz) error {
	q.UpdatedAt = s.now()
	err := s.store.UpdateQuiz(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return errQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("update quiz %s: %w", q.ID, err)
	}
	return nil
}

// DeleteQuiz removes the quiz. Attempts already recorded stay in the ledger.
func (s *Service) DeleteQuiz(ctx context.Context, actor model.Actor, quizID string) error {
	if _, err := s.loadManaged(ctx, actor, quizID); err != nil {
		return err
	}
	err := s.store.DeleteQuiz(ctx, quizID)
	if errors.Is(err, store.ErrNotFound) {
		return errQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("delete quiz %s: %w", quizID, err)
	}
	return nil
}

// GetQuiz returns the quiz as the actor is allowed to see it.
func (s *Service) GetQuiz(ctx context.Context, actor model.Actor, quizID string) (model.QuizView, error) {
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return model.QuizView{}, err
	}
	sub, err := s.subject(ctx, actor, q.CourseID)
	if err != nil {
		return model.QuizView{}, err
	}

	access := visibility.QuizAccess(q, sub)
	switch access {
	case visibility.Deny:
		return model.QuizView{}, denyReason(q, actor)
	case visibility.Redacted:
		v := visibility.Redact(visibility.FullView(q))
		if q.ShuffleQuestions {
			s.shuffle(len(v.Questions), func(i, j int) {
				v.Questions[i], v.Questions[j] = v.Questions[j], v.Questions[i]
			})
		}
		return v, nil
	}
	return visibility.FullView(q), nil
}

func denyReason(q model.Quiz, actor model.Actor) error {
	switch actor.Role {
	case model.RoleStudent:
		if !q.IsPublished {
			return errQuizNotPublished
		}
	case model.RoleTutor:
		return errNotQuizOwner
	}
	return errRoleNotAllowed
}

// ListQuizzes returns the quizzes of a course. Unpublished quizzes are listed
// only for the course tutor and admins, and the answer key is stripped for
// everyone.
func (s *Service) ListQuizzes(ctx context.Context, actor model.Actor, courseID string) ([]model.QuizView, error) {
	publishedOnly := true
	if visibility.ListsUnpublished(actor.Role) {
		sub, err := s.subject(ctx, actor, courseID)
		if err != nil {
			return nil, err
		}
		publishedOnly = !visibility.CanManage(sub)
	}

	quizzes, err := s.store.ListQuizzesByCourse(ctx, courseID, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("list quizzes of course %s: %w", courseID, err)
	}
	views := make([]model.QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, visibility.ForListing(q))
	}
	return views, nil
}

// SubmitAttempt grades a student's answers and records the attempt. The
// returned attempt is not redacted.
func (s *Service) SubmitAttempt(ctx context.Context, actor model.Actor, quizID string, in model.SubmitInput) (model.Attempt, error) {
	if !visibility.CanSubmit(actor.Role) {
		return model.Attempt{}, errRoleNotAllowed
	}
	if err := checkInput(in); err != nil {
		return model.Attempt{}, err
	}
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return model.Attempt{}, err
	}
	if !q.IsPublished {
		return model.Attempt{}, errQuizNotPublished
	}

	previous, err := s.store.CountAttempts(ctx, actor.UserID, q.ID)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("count attempts: %w", err)
	}
	if previous >= q.MaxAttempts {
		slog.Info("attempt limit reached", "student_id", actor.UserID, "quiz_id", q.ID, "max_attempts", q.MaxAttempts)
		return model.Attempt{}, maxAttemptsErr(q.MaxAttempts)
	}

	res := grading.Grade(q, in.Answers, in.TimeSpent)
	completed := s.now()
	// Elapsed minutes stand in for the real start time.
	started := completed.Add(-time.Duration(in.TimeSpent) * time.Minute)
	a := model.Attempt{
		ID:             s.newID(),
		StudentID:      actor.UserID,
		QuizID:         q.ID,
		CourseID:       q.CourseID,
		AttemptNumber:  previous + 1,
		Answers:        res.Answers,
		TotalQuestions: res.TotalQuestions,
		CorrectAnswers: res.CorrectAnswers,
		Score:          res.Score,
		Passed:         res.Passed,
		TimeSpent:      res.TimeSpent,
		StartedAt:      started,
		CompletedAt:    completed,
	}

	err = s.store.RecordAttempt(ctx, a)
	if errors.Is(err, store.ErrConflict) {
		return model.Attempt{}, errAttemptConflict
	}
	if err != nil {
		return model.Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return a, nil
}

// StudentResults returns the actor's own attempts on the quiz, oldest first.
func (s *Service) StudentResults(ctx context.Context, actor model.Actor, quizID string) ([]model.Attempt, error) {
	attempts, err := s.store.ListStudentAttempts(ctx, actor.UserID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// TutorResults returns every attempt on the quiz with statistics. A tutor
// who does not own the quiz is refused whether or not the quiz exists.
func (s *Service) TutorResults(ctx context.Context, actor model.Actor, quizID string) (model.TutorReport, error) {
	if actor.Role != model.RoleTutor && actor.Role != model.RoleAdmin {
		return model.TutorReport{}, errRoleNotAllowed
	}
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		if actor.Role == model.RoleTutor && KindOf(err) == KindNotFound {
			return model.TutorReport{}, errNotQuizOwner
		}
		return model.TutorReport{}, err
	}
	sub, err := s.subject(ctx, actor, q.CourseID)
	if err != nil {
		return model.TutorReport{}, err
	}
	if !visibility.CanViewResults(sub) {
		return model.TutorReport{}, errNotQuizOwner
	}

	attempts, err := s.store.ListQuizAttempts(ctx, q.ID)
	if err != nil {
		return model.TutorReport{}, fmt.Errorf("list quiz attempts: %w", err)
	}
	return model.TutorReport{
		QuizID:  q.ID,
		Results: attempts,
		Stats:   grading.Summarize(attempts),
	}, nil
}

// Result returns a single attempt to its student, the owning tutor or an admin.
func (s *Service) Result(ctx context.Context, actor model.Actor, resultID string) (model.Attempt, error) {
	a, err := s.store.GetAttempt(ctx, resultID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Attempt{}, errResultNotFound
	}
	if err != nil {
		return model.Attempt{}, fmt.Errorf("load result %s: %w", resultID, err)
	}
	sub, err := s.subject(ctx, actor, a.CourseID)
	if err != nil {
		return model.Attempt{}, err
	}
	if !visibility.CanViewAttempt(a, sub) {
		return model.Attempt{}, errNotResultOwner
	}
	return a, nil
}

// GenerateQuiz asks the drafter for a quiz on a topic and stores it
// unpublished in the course.
func (s *Service) GenerateQuiz(ctx context.Context, actor model.Actor, courseID string, in model.GenerateInput) (model.QuizView, error) {
	if err := s.authorizeCourse(ctx, actor, courseID); err != nil {
		return model.QuizView{}, err
	}
	if err := checkInput(in); err != nil {
		return model.QuizView{}, err
	}
	if s.drafter == nil {
		return model.QuizView{}, ErrDrafterUnavailable
	}

	draft, err := s.drafter.DraftQuiz(ctx, in)
	if err != nil {
		return model.QuizView{}, fmt.Errorf("draft quiz: %w", err)
	}
	draft.IsPublished = false
	if err := checkInput(draft); err != nil {
		// %v keeps this an internal error.
		return model.QuizView{}, fmt.Errorf("drafted quiz is invalid: %v", err)
	}
	slog.Info("drafted quiz", "course_id", courseID, "topic", in.Topic, "questions", len(draft.Questions))
	return s.insertQuiz(ctx, actor, courseID, draft)
}
