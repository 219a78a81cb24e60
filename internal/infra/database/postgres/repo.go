package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ---- Postgres-хранилище документа (pgxpool) + golang-migrate ----
// Документ узла лежит одной строкой JSONB; version — оптимистичная блокировка.

type PGRepo struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	schema  string
	nodeID  string
	locker  domain.Locker
	lockKey string
	now     func() time.Time
}

func NewPGRepo(ctx context.Context, logger *zap.Logger, dsn, schema, nodeID string, locker domain.Locker) (*PGRepo, error) {
	// Запускаем golang-migrate используя pgx/stdlib
	if err := runMigrations(dsn, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	logger.Info("initializing pgxpool...")
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	logger.Info("pgxpool initialized")

	r := &PGRepo{
		pool:    pool,
		schema:  schema,
		logger:  logger,
		nodeID:  nodeID,
		locker:  locker,
		lockKey: domain.LockKeyDocument(nodeID),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := r.seed(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed document: %w", err)
	}
	return r, nil
}

func (r *PGRepo) Close() {
	r.logger.Info("closing pgxpool...")
	r.pool.Close()
	r.logger.Info("pgxpool closed")
}

// ---- Миграции через golang-migrate ----

//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

func runMigrations(dsn string, logger *zap.Logger) error {
	// Отдельный *sql.DB через pgx stdlib, не из пула.
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer sqldb.Close()

	driver, err := postgres.WithInstance(sqldb, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	src, err := iofs.New(EmbeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	logger.Info("applying migrations...")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied successfully")
	return nil
}

func (r *PGRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		r.logger.Warn("ping failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *PGRepo) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PGRepo) table() string {
	if r.schema == "" {
		return "documents"
	}
	return r.schema + ".documents"
}

func (r *PGRepo) logSQL(op, sqlStr string, args []any) {
	// тело документа в лог не пишем — там base64 вложения
	r.logger.Debug("sql", zap.String("op", op), zap.String("query", sqlStr), zap.Int("args", len(args)))
}
