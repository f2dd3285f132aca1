package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/config"
	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/generator"
	"khaos-quiz-service/internal/infra/amqp"
	"khaos-quiz-service/internal/infra/memory"
	"khaos-quiz-service/internal/infra/openai"
	"khaos-quiz-service/internal/infra/postgres"
	infraredis "khaos-quiz-service/internal/infra/redis"
	"khaos-quiz-service/internal/metrics"
	transport "khaos-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// directory is what the services and the authenticator need from a course and user directory.
type directory interface {
	memory.CourseSource
	app.UserDirectory
}

type closer func()

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var cleanup []closer
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup = append(cleanup, func() { redisClient.Close() })
	}

	dir, err := openDirectory(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}

	cacheTTL := config.TTLDuration(cfg.Directory.CacheTTL, 10*time.Minute)
	var courses app.CourseDirectory
	var store app.Store
	var health func(context.Context) error
	if redisClient != nil {
		redisStore := infraredis.NewStore(redisClient)
		store = redisStore
		health = redisStore.Ping
		courses = infraredis.NewCourseCache(redisClient, dir, cacheTTL)
	} else {
		glog.Warning("redis not configured, quiz state is kept in memory")
		store = memory.NewStore()
		courses = memory.NewCourseCache(dir, cacheTTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	model := openai.DefaultModel
	if cfg.OpenAI.GPT4 {
		model = openai.GPT4Model
	}
	if cfg.OpenAI.APIKey == "" {
		glog.Warning("openai api key not configured, generation requests will fail")
	}
	gen := generator.New(m.InstrumentCompleter(openai.NewCompleter(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   model,
	})))

	opts := []app.Option{
		app.WithDraftTTL(config.TTLDuration(cfg.Quiz.DraftTTL, 0)),
		app.WithPracticeTTL(config.TTLDuration(cfg.Practice.TTL, 0)),
	}
	if cfg.AMQP.URL != "" {
		publisher, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { publisher.Close() })
		opts = append(opts, app.WithEvents(publisher))
	}

	quizzes := app.NewQuizService(store, courses, gen, opts...)
	services := transport.Services{
		Quizzes:   quizzes,
		Attempts:  app.NewAttemptService(store, quizzes, gen, opts...),
		Practices: app.NewPracticeService(store, courses, gen, opts...),
		Courses:   app.NewCourseService(courses, quizzes, opts...),
	}
	router := transport.NewRouter(services, transport.RouterConfig{
		Auth:           transport.NewAuthenticator(dir, cfg.Auth.JWTSecret),
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         health,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		glog.Info("shutting down server...")
	case <-ctx.Done():
		glog.Info("context canceled, shutting down server...")
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openDirectory connects the Postgres directory when configured, otherwise it
// serves the sample course from memory.
func openDirectory(ctx context.Context, cfg config.Config, cleanup *[]closer) (directory, error) {
	if cfg.Postgres.URL == "" {
		glog.Warning("postgres not configured, using the sample course directory")
		return memory.NewDirectory([]domain.Course{sampleCourse()}, sampleUsers()), nil
	}

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if cfg.Directory.Seed {
		if err := seedDirectory(ctx, cfg.Postgres.URL); err != nil {
			return nil, err
		}
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	*cleanup = append(*cleanup, pool.Close)
	return postgres.NewDirectory(pool), nil
}
