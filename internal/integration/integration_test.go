package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/generator"
	"khaos-quiz-service/internal/infra/postgres"
	pgmigrations "khaos-quiz-service/internal/infra/postgres/migrations"
	infraredis "khaos-quiz-service/internal/infra/redis"
)

// scriptedCompleter numbers questions and answers score prompts with a fixed score.
type scriptedCompleter struct {
	mu    sync.Mutex
	calls int
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []domain.Message, _ int) (domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	last := messages[len(messages)-1]
	if last.Role == domain.RoleSystem && strings.Contains(last.Content, "json") {
		return domain.Message{Role: domain.RoleAssistant, Content: `{"score": 7}`}, nil
	}
	return domain.Message{Role: domain.RoleAssistant, Content: fmt.Sprintf("Question %d?", c.calls)}, nil
}

var (
	instructor = domain.User{ID: "inst-1", CourseID: "course-1", Name: "Ada", Type: domain.UserInstructor}
	alice      = domain.User{ID: "stud-1", CourseID: "course-1", Name: "Alice", Type: domain.UserStudent}
	bob        = domain.User{ID: "stud-2", CourseID: "course-1", Name: "Bob", Type: domain.UserStudent}
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDirectory(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	dir := postgres.NewDirectory(pool)
	seedDirectory(t, ctx, dir)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := infraredis.NewStore(redisClient)
	courses := infraredis.NewCourseCache(redisClient, dir, time.Minute)
	gen := generator.New(&scriptedCompleter{})

	quizzes := app.NewQuizService(store, courses, gen)
	attempts := app.NewAttemptService(store, quizzes, gen)
	listings := app.NewCourseService(courses, quizzes)

	quiz, err := quizzes.Create(ctx, instructor, app.QuizOptions{Name: "Week 1", QuestionLimit: 2, Prompt: "lifecycles"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := quizzes.NextQuestion(ctx, quiz.ID, instructor); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if err := quizzes.Start(ctx, quiz.ID, instructor); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The quiz id must have reached Postgres through the cache.
	course, err := dir.LoadCourse(ctx, "course-1")
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if !course.QuizIDs.Has(quiz.ID) {
		t.Fatalf("expected quiz %s on course, got %v", quiz.ID, course.QuizIDs.Sorted())
	}

	started, err := attempts.Create(ctx, alice, quiz.ID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if len(started.Attempt.QuizQuestions) != 2 {
		t.Fatalf("expected 2 frozen questions, got %d", len(started.Attempt.QuizQuestions))
	}
	score, err := attempts.Submit(ctx, started.Attempt.ID, alice, []string{"a", "b"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score != 7 {
		t.Fatalf("expected score 7, got %d", score)
	}

	if err := quizzes.Finish(ctx, quiz.ID, instructor); err != nil {
		t.Fatalf("finish: %v", err)
	}
	view, err := quizzes.InstructorView(ctx, quiz.ID, instructor)
	if err != nil {
		t.Fatalf("instructor view: %v", err)
	}
	if len(view.FinishedUserAttempts) != 2 {
		t.Fatalf("expected alice scored and bob backfilled, got %+v", view.FinishedUserAttempts)
	}
	for _, a := range view.FinishedUserAttempts {
		if a.StudentID == bob.ID && (a.Score != 0 || a.AttemptID != "") {
			t.Fatalf("expected backfilled zero for bob, got %+v", a)
		}
	}

	listed, err := listings.StudentQuizzes(ctx, alice)
	if err != nil {
		t.Fatalf("student quizzes: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one listed quiz, got %d", len(listed))
	}
}

func migrateDirectory(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedDirectory(t *testing.T, ctx context.Context, dir *postgres.Directory) {
	t.Helper()
	course := domain.Course{
		ID:             "course-1",
		InstructorID:   instructor.ID,
		Name:           "Mobile Computing",
		EducationLevel: domain.University,
		Description:    "Android development",
		StudentIDs:     domain.NewIDSet(alice.ID, bob.ID),
		QuizIDs:        domain.NewIDSet(),
	}
	if err := dir.SaveCourse(ctx, course); err != nil {
		t.Fatalf("save course: %v", err)
	}
	for _, u := range []domain.User{instructor, alice, bob} {
		if err := dir.SaveUser(ctx, u); err != nil {
			t.Fatalf("save user %s: %v", u.ID, err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
