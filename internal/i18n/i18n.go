package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	bundle      *i18n.Bundle
	defaultLang = "en"
)

// Init loads the message bundle with lang as the default language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	bundle = b
	defaultLang = tag.String()
	return nil
}

// Languages returns the languages that have a message file.
func Languages() []string {
	if bundle == nil {
		return nil
	}
	var langs []string
	for _, tag := range bundle.LanguageTags() {
		langs = append(langs, tag.String())
	}
	return langs
}

// NewLocalizer creates a localizer preferring the given languages, in order.
// Each entry may be a tag or an Accept-Language header value.
func NewLocalizer(langs ...string) *i18n.Localizer {
	if bundle == nil {
		return nil
	}
	prefs := append(append([]string(nil), langs...), defaultLang)
	return i18n.NewLocalizer(bundle, prefs...)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok && loc != nil {
		return loc
	}
	return NewLocalizer()
}

// Message translates msgID with template data. An int "Count" entry in data
// selects the plural form. fallback is returned when the bundle is not
// loaded or the message is missing.
func Message(ctx context.Context, msgID string, data map[string]any, fallback string) string {
	loc := localizerFromCtx(ctx)
	if loc == nil || msgID == "" {
		return fallback
	}
	cfg := &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data}
	if n, ok := data["Count"].(int); ok {
		cfg.PluralCount = n
	}
	s, err := loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return fallback
	}
	return s
}
