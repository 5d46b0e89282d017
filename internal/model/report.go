package model

// AttemptStats aggregates all attempts made on a quiz.
type AttemptStats struct {
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	PassRate      float64 `json:"passRate"`
	TopScore      float64 `json:"topScore"`
}

// TutorReport is what a quiz owner sees for the quiz's attempts.
type TutorReport struct {
	QuizID  string       `json:"quizId"`
	Results []Attempt    `json:"results"`
	Stats   AttemptStats `json:"stats"`
}

// OptionView is an option as shown to a viewer. IsCorrect is nil once redacted.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

// QuestionView is a question as shown to a viewer.
type QuestionView struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []OptionView `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correctAnswer,omitempty"`
	Points        int          `json:"points"`
	Explanation   *string      `json:"explanation,omitempty"`
}

// QuizView is a quiz as shown to a viewer.
type QuizView struct {
	ID               string         `json:"id"`
	CourseID         string         `json:"courseId"`
	LessonID         string         `json:"lessonId,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Questions        []QuestionView `json:"questions"`
	PassingScore     float64        `json:"passingScore"`
	TimeLimit        int            `json:"timeLimit,omitempty"`
	MaxAttempts      int            `json:"maxAttempts"`
	IsPublished      bool           `json:"isPublished"`
	ShuffleQuestions bool           `json:"shuffleQuestions"`
}
