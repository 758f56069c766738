package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"devbook/internal/api"
	"devbook/internal/app/service"
	"devbook/internal/app/worker"
	"devbook/internal/common"
	"devbook/internal/common/security"
	"devbook/internal/domain/repository"
	"devbook/internal/platform/cache"
	"devbook/internal/platform/config"
	"devbook/internal/platform/database"
	"devbook/internal/platform/logger"
	"devbook/internal/platform/mailer"
	"devbook/internal/platform/storage"
)

var (
	// Version is set via ldflags during build.
	Version = "dev"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "devbook",
	Short:   "Devbook social networking API",
	Version: Version,
	RunE:    runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Connect(cmd.Context(), cfg.DBConnStr)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.Migrate(cmd.Context(), db, command)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML file with configuration keys")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	common.SetProduction(cfg.IsProduction())
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("database connected")

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, rate limiting is per instance")
	}

	objects, err := storage.NewS3Storage(ctx, storage.S3Config{
		Bucket:          cfg.AWSBucketName,
		Region:          cfg.AWSBucketRegion,
		AccessKeyID:     cfg.AWSAccessKey,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Endpoint:        cfg.AWSEndpoint,
	})
	if err != nil {
		return err
	}

	mail, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		return err
	}

	stores := api.Stores{
		Users:        repository.NewPgUserRepository(db),
		Sessions:     repository.NewPgSessionRepository(db),
		Posts:        repository.NewPgPostRepository(db),
		Comments:     repository.NewStore(db, repository.CommentTable),
		PostLikes:    repository.NewStore(db, repository.PostLikeTable),
		CommentLikes: repository.NewStore(db, repository.CommentLikeTable),
		Addresses:    repository.NewStore(db, repository.AddressTable),
		Educations:   repository.NewStore(db, repository.EducationTable),
		Experiences:  repository.NewStore(db, repository.ExperienceTable),
	}

	tokens := security.NewTokenIssuer(cfg.JWTKey, cfg.JWTExp)
	authService := service.NewAuthService(db, stores.Users, stores.Sessions, tokens, mail, service.AuthConfig{
		SessionTTL:    cfg.SessionTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		FrontendURL:   cfg.FrontendURL,
	})
	userService := service.NewUserService(db, stores.Users, stores.Posts)
	imageService := service.NewImageService(objects, stores.Users)

	janitor := worker.NewSessionJanitor(rdb, stores.Sessions, stores.Users, cfg.JanitorInterval)
	background := runBackground(ctx, janitor.Start)

	router := api.NewRouter(api.Dependencies{
		Config: api.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxBodyBytes:       cfg.MaxBodyBytes,
			MaxImageBytes:      cfg.MaxImageBytes,
			RateLimitMax:       cfg.RateLimitMax,
			RateLimitWindow:    cfg.RateLimitWindow,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		},
		Stores:       stores,
		Tokens:       tokens,
		Redis:        rdb,
		AuthService:  authService,
		UserService:  userService,
		ImageService: imageService,
	})

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.APIPort).Str("env", cfg.AppEnv).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stop()
		background.Wait()
		return fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	background.Wait()
	log.Info().Msg("server and janitor stopped")
	return nil
}

// runBackground starts each job in its own goroutine. Wait on the returned
// group after cancelling ctx to let them finish.
func runBackground(ctx context.Context, jobs ...func(context.Context)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job(ctx)
		}()
	}
	return &wg
}
