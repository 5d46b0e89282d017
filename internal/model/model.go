package model

import (
	"context"
	"time"
)

// Role represents a caller's access level.
type Role string

const (
	// RoleStudent is a student role.
	RoleStudent Role = "student"
	// RoleTutor is a tutor role.
	RoleTutor Role = "tutor"
	// RoleAdmin is an admin role.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who is making a request.
type Actor struct {
	UserID string
	Role   Role
}

// User is a known caller, recorded the first time their token is seen.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// UserRef is the identity attached to attempts in tutor reports.
type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Course groups quizzes and is owned by a single tutor.
type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	TutorID   string    `json:"tutorId"`
	CreatedAt time.Time `json:"createdAt"`
}

type actorCtxKey struct{}

// ContextWithActor stores the actor in the request context.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

// ActorFromContext retrieves the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(Actor)
	return a, ok
}

// QuestionType is the kind of answer a question expects.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionShortAnswer    QuestionType = "short-answer"
)

// IsChoice reports whether answers select one of the question's options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// Defaults applied when a quiz or question leaves a setting unset.
const (
	DefaultPassingScore = 70
	DefaultMaxAttempts  = 1
	DefaultPoints       = 1
)

// Option is one selectable answer of a choice question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a single item of a quiz.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        int          `json:"points"`
	Explanation   string       `json:"explanation,omitempty"`
}

// Option looks up an option by id.
func (q Question) Option(id string) (Option, bool) {
	if id == "" {
		return Option{}, false
	}
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Quiz is an assessable unit of questions attached to a course.
type Quiz struct {
	ID               string     `json:"id"`
	CourseID         string     `json:"courseId"`
	LessonID         string     `json:"lessonId,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	PassingScore     float64    `json:"passingScore"`
	TimeLimit        int        `json:"timeLimit,omitempty"` // minutes, 0 means unlimited
	MaxAttempts      int        `json:"maxAttempts"`
	IsPublished      bool       `json:"isPublished"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// QuestionIndex maps question ids to questions.
func (q Quiz) QuestionIndex() map[string]Question {
	idx := make(map[string]Question, len(q.Questions))
	for _, qq := range q.Questions {
		idx[qq.ID] = qq
	}
	return idx
}

// SubmittedAnswer is one answer as sent by a student.
type SubmittedAnswer struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	TextAnswer       string `json:"textAnswer,omitempty"`
}

// AnswerRecord is a graded answer stored with an attempt.
type AnswerRecord struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	TextAnswer       string `json:"textAnswer,omitempty"`
	IsCorrect        bool   `json:"isCorrect"`
	PointsEarned     int    `json:"pointsEarned"`
}

// Attempt is one graded submission of a quiz by a student.
type Attempt struct {
	ID             string         `json:"id"`
	StudentID      string         `json:"studentId"`
	QuizID         string         `json:"quizId"`
	CourseID       string         `json:"courseId"`
	AttemptNumber  int            `json:"attemptNumber"`
	Answers        []AnswerRecord `json:"answers"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	Score          float64        `json:"score"`
	Passed         bool           `json:"passed"`
	TimeSpent      int            `json:"timeSpent"` // minutes
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    time.Time      `json:"completedAt"`
	Student        *UserRef       `json:"student,omitempty"`
}
