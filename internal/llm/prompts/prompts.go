package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	topicRegex              = regexp.MustCompile(`(?i)</?\s*topic\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Variant is a drafting prompt variant.
type Variant string

const (
	// VariantEasy drafts warm-up questions for beginners.
	VariantEasy Variant = "easy"
	// VariantStandard is the default.
	VariantStandard Variant = "standard"
	// VariantHard drafts application questions with plausible distractors.
	VariantHard Variant = "hard"
)

const maxTopicRunes = 500

var validVariants = map[Variant]bool{
	VariantEasy:     true,
	VariantStandard: true,
	VariantHard:     true,
}

var (
	loadOnce       sync.Once
	loadErr        error
	draftTemplates map[Variant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// DraftData holds template data for drafting prompts.
type DraftData struct {
	Topic        string
	NumQuestions int
	Language     string
}

// Load parses the embedded templates. It is safe to call more than once.
func Load() error {
	return load(templateFS)
}

func load(fsys fs.FS) error {
	loadOnce.Do(func() {
		draftTemplates = make(map[Variant]*template.Template)
		for _, v := range []Variant{VariantEasy, VariantStandard, VariantHard} {
			file := "templates/draft_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			draftTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildDraftPrompt renders the system prompt asking for a quiz draft.
// An empty variant means VariantStandard.
func BuildDraftPrompt(variant Variant, data DraftData) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	if variant == "" {
		variant = VariantStandard
	}
	tmpl, ok := draftTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data.Topic = sanitizeTopic(data.Topic)
	if data.Language == "" {
		data.Language = "English"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LanguageName maps a language tag to the name used in prompts. Unknown tags
// are passed through.
func LanguageName(tag string) string {
	switch strings.ToLower(strings.SplitN(tag, "-", 2)[0]) {
	case "", "en":
		return "English"
	case "ru":
		return "Russian"
	case "de":
		return "German"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	}
	return tag
}

func sanitizeTopic(topic string) string {
	topic = topicRegex.ReplaceAllString(topic, "")
	topic = systemInstructionsRegex.ReplaceAllString(topic, "")
	topic = strings.TrimSpace(topic)

	if utf8.RuneCountInString(topic) > maxTopicRunes {
		topic = string([]rune(topic)[:maxTopicRunes])
	}
	return topic
}
