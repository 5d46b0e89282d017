package model

// QuizInput is the authoring payload for a new quiz.
type QuizInput struct {
	Title            string          `json:"title" validate:"required,max=200"`
	Description      string          `json:"description" validate:"max=5000"`
	LessonID         string          `json:"lessonId"`
	Questions        []QuestionInput `json:"questions" validate:"required,min=1,dive"`
	PassingScore     *float64        `json:"passingScore" validate:"omitempty,min=0,max=100"`
	TimeLimit        *int            `json:"timeLimit" validate:"omitempty,min=0"`
	MaxAttempts      *int            `json:"maxAttempts" validate:"omitempty,min=1"`
	IsPublished      bool            `json:"isPublished"`
	ShuffleQuestions bool            `json:"shuffleQuestions"`
}

// QuestionInput is the authoring payload for one question.
type QuestionInput struct {
	Text          string        `json:"text" validate:"required"`
	Type          QuestionType  `json:"type" validate:"required,oneof=multiple-choice true-false short-answer"`
	Options       []OptionInput `json:"options" validate:"dive"`
	CorrectAnswer string        `json:"correctAnswer"`
	Points        *int          `json:"points" validate:"omitempty,min=0"`
	Explanation   string        `json:"explanation"`
}

// OptionInput is the authoring payload for one option.
type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizPatch carries a partial quiz update. Nil fields are left unchanged.
type QuizPatch struct {
	Title            *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string         `json:"description" validate:"omitempty,max=5000"`
	LessonID         *string         `json:"lessonId"`
	Questions        []QuestionInput `json:"questions" validate:"omitempty,dive"`
	PassingScore     *float64        `json:"passingScore" validate:"omitempty,min=0,max=100"`
	TimeLimit        *int            `json:"timeLimit" validate:"omitempty,min=0"`
	MaxAttempts      *int            `json:"maxAttempts" validate:"omitempty,min=1"`
	IsPublished      *bool           `json:"isPublished"`
	ShuffleQuestions *bool           `json:"shuffleQuestions"`
}

// SubmitInput is a student's submission for a quiz.
type SubmitInput struct {
	Answers   []SubmittedAnswer `json:"answers"`
	TimeSpent int               `json:"timeSpent" validate:"min=0,max=100000"`
}

// GenerateInput asks the drafting model for a new quiz on a topic.
type GenerateInput struct {
	Topic        string `json:"topic" validate:"required,max=200"`
	NumQuestions int    `json:"numQuestions" validate:"required,min=1,max=20"`
	Lang         string `json:"lang" validate:"omitempty,max=16"`
	Difficulty   string `json:"difficulty" validate:"omitempty,oneof=easy standard hard"`
}
