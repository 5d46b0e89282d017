package quiz

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/tutorquiz/internal/model"
)

// custom validation tags
const (
	choiceOptionsTag    = "choice_options"
	correctOptionTag    = "correct_option"
	trueFalseOptionsTag = "true_false_options"
	correctAnswerTag    = "correct_answer"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names so field keys match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(questionStructValidation, model.QuestionInput{})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{choiceOptionsTag, correctOptionTag, trueFalseOptionsTag, correctAnswerTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomErrs)
	}
}

func translateCustomErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case choiceOptionsTag:
		return "a choice question needs at least 2 options"
	case correctOptionTag:
		return "at least one option must be marked correct"
	case trueFalseOptionsTag:
		return "a true-false question needs exactly 2 options"
	case correctAnswerTag:
		return "a short-answer question needs a correct answer"
	}
	return ""
}

// questionStructValidation checks the rules that depend on the question type.
func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(model.QuestionInput)
	if !ok {
		return
	}
	switch q.Type {
	case model.QuestionMultipleChoice:
		if len(q.Options) < 2 {
			sl.ReportError(q.Options, "options", "Options", choiceOptionsTag, "")
			return
		}
	case model.QuestionTrueFalse:
		if len(q.Options) != 2 {
			sl.ReportError(q.Options, "options", "Options", trueFalseOptionsTag, "")
			return
		}
	case model.QuestionShortAnswer:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", correctAnswerTag, "")
		}
		return
	default:
		return
	}
	for _, o := range q.Options {
		if o.IsCorrect {
			return
		}
	}
	sl.ReportError(q.Options, "options", "Options", correctOptionTag, "")
}

// checkInput validates v and converts validation failures into a
// KindValidation error keyed by JSON field path, e.g. "questions[0].options".
func checkInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldKey(fe)] = fe.Translate(translator)
	}
	return validationErr(fields)
}

func validationErr(fields map[string]string) *Error {
	return &Error{
		Kind:      KindValidation,
		MessageID: "ValidationFailed",
		Message:   "the request is invalid",
		Fields:    fields,
	}
}

// fieldKey drops the top-level struct name from the namespace.
func fieldKey(fe validator.FieldError) string {
	if parts := strings.SplitN(fe.Namespace(), ".", 2); len(parts) == 2 {
		return parts[1]
	}
	return fe.Field()
}
