package cli

import (
	"context"
	"database/sql"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"khaos-quiz-service/internal/config"
	"khaos-quiz-service/internal/infra/postgres"
	pgmigrations "khaos-quiz-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run directory database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if seed || cfg.Directory.Seed {
				return seedDirectory(cmd.Context(), cfg.Postgres.URL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the sample course and users after migrating")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return errors.New("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return errors.Wrap(err, "init migrations")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, "migrate")
	}
	if group.IsZero() {
		glog.Info("directory schema is up to date")
		return nil
	}
	glog.Infof("migrated directory schema to %s", group)
	return nil
}

func seedDirectory(ctx context.Context, url string) error {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	defer pool.Close()

	dir := postgres.NewDirectory(pool)
	if err := dir.SaveCourse(ctx, sampleCourse()); err != nil {
		return err
	}
	for _, u := range sampleUsers() {
		if err := dir.SaveUser(ctx, u); err != nil {
			return err
		}
	}
	glog.Infof("seeded course %s", sampleCourseID)
	return nil
}

func loadConfig(path string) (config.Config, error) {
	config.LoadDotEnv(".env")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}
