package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/tutorquiz/internal/handler"
	appI18n "github.com/pavelanni/tutorquiz/internal/i18n"
	"github.com/pavelanni/tutorquiz/internal/llm"
	"github.com/pavelanni/tutorquiz/internal/model"
	"github.com/pavelanni/tutorquiz/internal/quiz"
	"github.com/pavelanni/tutorquiz/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutorquiz",
		Short: "Quiz grading and access-control service",
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), importCmd(), courseCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tutorquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "tutorquiz.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("jwt-secret", "", "HMAC secret shared with the identity service (or set TUTORQUIZ_JWT_SECRET)")
	f.String("jwt-issuer", "", "Required token issuer (empty accepts any)")
	f.StringP("lang", "l", "en", "Default message language (en, ru)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables quiz generation)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Float64("default-passing-score", model.DefaultPassingScore, "Passing score for quizzes that do not set one")
	f.Int("default-max-attempts", model.DefaultMaxAttempts, "Attempt limit for quizzes that do not set one")
	addCommonFlags(cmd)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE:  runMigrate,
	}
	addCommonFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import quiz definitions from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("course", "", "Course id the quizzes belong to (required)")
	f.String("tutor", "", "Id of the tutor who owns the course (required)")
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("tutor")

	return cmd
}

func courseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Manage courses",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a course owned by a tutor",
		RunE:  runCourseAdd,
	}
	f := add.Flags()
	f.String("id", "", "Course id (generated when empty)")
	f.String("title", "", "Course title (required)")
	f.String("tutor", "", "Id of the owning tutor (required)")
	addCommonFlags(add)
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("tutor")

	list := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		RunE:  runCourseList,
	}
	addCommonFlags(list)

	cmd.AddCommand(add, list)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTORQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutorquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tutorquiz")
	v.AddConfigPath("/etc/tutorquiz")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	secret := v.GetString("jwt-secret")
	if secret == "" {
		return errors.New("jwt secret is required: set --jwt-secret flag or TUTORQUIZ_JWT_SECRET env var")
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	users, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	opts := []quiz.Option{
		quiz.WithDefaults(v.GetFloat64("default-passing-score"), v.GetInt("default-max-attempts")),
	}
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		client := llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"))
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		opts = append(opts, quiz.WithDrafter(client))
	}
	svc := quiz.New(db, opts...)

	h := handler.New(svc, db, handler.Config{
		JWTSecret: secret,
		JWTIssuer: v.GetString("jwt-issuer"),
		Lang:      lang,
	})

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"languages", appI18n.Languages(),
		"known_users", users,
		"generation", svc.HasDrafter(),
		"default_passing_score", v.GetFloat64("default-passing-score"),
		"default_max_attempts", v.GetInt("default-max-attempts"),
	)
	return http.ListenAndServe(addr, h.Router())
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database schema is up to date", "path", v.GetString("db"))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	return importQuizzes(cmd.Context(), db, quiz.New(db), v.GetString("course"), v.GetString("tutor"), args)
}

func runCourseAdd(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	tutor := v.GetString("tutor")
	if _, err := db.GetUser(ctx, tutor); errors.Is(err, store.ErrNotFound) {
		slog.Warn("tutor has not signed in yet", "tutor_id", tutor)
	} else if err != nil {
		return fmt.Errorf("look up tutor: %w", err)
	}

	id := v.GetString("id")
	if id == "" {
		id = uuid.NewString()
	}
	err = db.CreateCourse(ctx, model.Course{ID: id, Title: v.GetString("title"), TutorID: tutor})
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("course %s already exists", id)
	}
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runCourseList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	courses, err := db.ListCourses(cmd.Context())
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, c := range courses {
		fmt.Fprintf(out, "%s\t%s\t%s\n", c.ID, c.TutorID, c.Title)
	}
	return nil
}
