package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/tutorquiz/internal/llm/prompts"
	"github.com/pavelanni/tutorquiz/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyDraft is returned when the model produced no usable questions.
var ErrEmptyDraft = errors.New("LLM draft contains no usable questions")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM list models: %w", err)
	}
	return nil
}

// draft is the JSON shape the drafting prompts ask for.
type draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Questions   []struct {
		Text    string `json:"text"`
		Options []struct {
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"options"`
		Explanation string `json:"explanation"`
	} `json:"questions"`
}

// DraftQuiz asks the model for a multiple-choice quiz on the requested topic.
// The draft is not validated here beyond dropping questions that are
// obviously unusable.
func (c *Client) DraftQuiz(ctx context.Context, req model.GenerateInput) (model.QuizInput, error) {
	variant := req.Difficulty
	if variant != "" && !prompts.IsValidVariant(variant) {
		slog.Warn("invalid difficulty, using standard", "difficulty", variant)
		variant = string(prompts.VariantStandard)
	}
	systemPrompt, err := prompts.BuildDraftPrompt(prompts.Variant(variant), prompts.DraftData{
		Topic:        req.Topic,
		NumQuestions: req.NumQuestions,
		Language:     prompts.LanguageName(req.Lang),
	})
	if err != nil {
		return model.QuizInput{}, fmt.Errorf("build draft prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Write the quiz now."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return model.QuizInput{}, fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return model.QuizInput{}, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	return parseDraft(raw, req.NumQuestions)
}

func parseDraft(raw string, limit int) (model.QuizInput, error) {
	var d draft
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &d); err != nil {
		return model.QuizInput{}, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	in := model.QuizInput{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
	}
	for _, q := range d.Questions {
		if limit > 0 && len(in.Questions) == limit {
			break
		}
		text := strings.TrimSpace(q.Text)
		if text == "" || len(q.Options) < 2 {
			continue
		}
		qi := model.QuestionInput{
			Text:        text,
			Type:        model.QuestionMultipleChoice,
			Explanation: strings.TrimSpace(q.Explanation),
		}
		for _, o := range q.Options {
			qi.Options = append(qi.Options, model.OptionInput{Text: strings.TrimSpace(o.Text), IsCorrect: o.Correct})
		}
		in.Questions = append(in.Questions, qi)
	}
	if len(in.Questions) == 0 {
		return model.QuizInput{}, ErrEmptyDraft
	}
	return in, nil
}

// stripCodeFence removes a surrounding ```json fence some models add despite
// the JSON response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
