package repository

import (
	"context"
	"fmt"

	"leaderboard_miniapp/pkg/logger"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Repository persists the backend call journal.
type Repository struct {
	db *sqlx.DB
	ph sq.PlaceholderFormat
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

// Enabled reports whether a journal database is configured at all.
func (c *Config) Enabled() bool {
	return c.Driver != ""
}

func New(ctx context.Context, cfg Config) (*Repository, error) {
	var (
		dsn string
		ph  sq.PlaceholderFormat
	)

	switch cfg.Driver {
	case DriverPostgres:
		dsn = cfg.GetDatabaseURL()
		ph = sq.Dollar
	case DriverSQLite:
		dsn = cfg.Path
		ph = sq.Question
	default:
		return nil, errors.Wrap(ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db, ph: ph}
	if err := repo.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully", zap.String("driver", cfg.Driver))

	return repo, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

const schema = `
CREATE TABLE IF NOT EXISTS backend_calls (
	id          TEXT PRIMARY KEY,
	method      TEXT NOT NULL,
	path        TEXT NOT NULL,
	status      INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	called_at   BIGINT NOT NULL
)`

func (r *Repository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}
