// folio - personal site backend: blog, projects and a realtime trivia game
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/eyalm/folio/internal/api"
	"github.com/eyalm/folio/internal/assistant"
	"github.com/eyalm/folio/internal/auth"
	"github.com/eyalm/folio/internal/config"
	"github.com/eyalm/folio/internal/content"
	"github.com/eyalm/folio/internal/game"
	"github.com/eyalm/folio/internal/github"
	"github.com/eyalm/folio/internal/schedule"
	"github.com/eyalm/folio/internal/storage"
)

var version = "dev"

const defaultConfigPath = "config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: folio <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                    Start the site server")
	fmt.Println("  user add [--admin] <username>")
	fmt.Println("                           Add a user (prompts for password)")
	fmt.Println("  user remove <username>   Remove a user")
	fmt.Println("  user list                List all users")
	fmt.Println("  user reset <username>    Reset a user's password")
	fmt.Println("  version                  Show version")
	fmt.Println("  help                     Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default config.yml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  folio serve --config /etc/folio/config.yml")
	fmt.Println("  folio user add --admin myuser")
}

// newLogger builds the process logger. Colored output on a terminal,
// plain text otherwise.
func newLogger(w *os.File) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
		NoColor:    !term.IsTerminal(int(w.Fd())),
	}))
}

// cmdServe starts the site server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	// Secrets may live in a .env next to the binary; absence is fine.
	godotenv.Load()

	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	cfg := config.Default()
	if _, statErr := os.Stat(*configPath); statErr == nil || *configPath != defaultConfigPath {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger.Info("folio starting", "version", version)

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("database initialized", "path", cfg.Database.Path)

	posts, err := content.Load(cfg.Content.Dir, logger.With("component", "content"))
	if err != nil {
		logger.Error("failed to load blog content", "dir", cfg.Content.Dir, "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no JWT secret configured, auth tokens will use an empty secret")
	}

	hub := api.NewGameHub(logger.With("component", "gamehub"))
	gameSvc := game.NewService(game.Config{
		MaxPlayers:       cfg.Game.MaxPlayers,
		MinPlayers:       cfg.Game.MinPlayers,
		QuestionsPerRoom: cfg.Game.QuestionsPerRoom,
		PointsPerCorrect: cfg.Game.PointsPerCorrect,
		StartDelay:       cfg.Game.StartDelay,
		QuestionInterval: cfg.Game.QuestionInterval,
		FinishedTTL:      cfg.Game.FinishedTTL,
	}, game.DefaultBank, hub, logger.With("component", "game"), nil)
	hub.Bind(gameSvc)
	defer gameSvc.Close()

	router := api.NewRouter(api.Deps{
		Store: store,
		Auth:  authService,
		Posts: posts,
		Site: content.Site{
			BaseURL:     cfg.Site.BaseURL,
			Title:       cfg.Site.Title,
			Description: cfg.Site.Description,
			Author:      cfg.Site.Author,
			Language:    cfg.Site.Language,
		},
		GitHub: github.New(cfg.GitHub.Username, cfg.GitHub.Token, cfg.GitHub.CacheTTL,
			logger.With("component", "github")),
		Assistant: assistant.New(assistant.Config{
			APIKey:          cfg.Assistant.APIKey,
			Model:           cfg.Assistant.Model,
			Endpoint:        cfg.Assistant.Endpoint,
			RatePerHour:     cfg.Assistant.RatePerHour,
			UpstreamTimeout: cfg.Assistant.UpstreamTimeout,
		}, logger.With("component", "assistant")),
		Schedule: schedule.New(schedule.Config{
			CodeTTL: cfg.Schedule.CodeTTL,
			Dev:     cfg.Schedule.Dev,
		}, store, logger.With("component", "schedule")),
		Hub:       hub,
		StaticDir: cfg.Server.StaticDir,
		Logger:    logger.With("component", "api"),
	})
	if cfg.Server.StaticDir != "" {
		logger.Info("serving static files", "dir", cfg.Server.StaticDir)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// cmdUser handles user subcommands
func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: user subcommand required: add, remove, list, reset\n")
		os.Exit(1)
	}

	subCmd := args[0]
	fs := flag.NewFlagSet("user", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args[1:])
	remaining := fs.Args()

	godotenv.Load()

	dbPath := "folio.db"
	if cfg, err := config.Load(*configPath); err == nil {
		dbPath = cfg.Database.Path
	}

	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	var cmdErr error
	switch subCmd {
	case "add":
		cmdErr = cmdUserAdd(ctx, store, *isAdmin, remaining)
	case "remove":
		cmdErr = cmdUserRemove(ctx, store, remaining)
	case "list":
		cmdErr = cmdUserList(ctx, store)
	case "reset":
		cmdErr = cmdUserReset(ctx, store, remaining)
	default:
		cmdErr = fmt.Errorf("unknown user command: %s (use: add, remove, list, reset)", subCmd)
	}
	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// promptPassword reads and confirms a password without echo
func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func cmdUserAdd(ctx context.Context, store *storage.Store, isAdmin bool, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio user add [--admin] <username>")
	}
	username := args[0]

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := store.CreateUser(ctx, username, hash, isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tCREATED\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t-------\t----------")

	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", user.Username, role,
			user.CreatedAt.Format("2006-01-02"), lastLogin)
	}
	return w.Flush()
}

func cmdUserReset(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio user reset <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	fmt.Printf("Password reset for '%s'\n", username)
	return nil
}
