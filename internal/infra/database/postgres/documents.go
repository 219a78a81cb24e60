package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/EgorLis/retail-pos/internal/domain"
)

// seed вставляет документ по умолчанию, если строки для узла ещё нет.
func (r *PGRepo) seed(ctx context.Context) error {
	body, err := json.Marshal(domain.NewDocument(r.now()))
	if err != nil {
		return err
	}
	q := r.qb().Insert(r.table()).
		Columns("node_id", "body", "version").
		Values(r.nodeID, body, 0).
		Suffix("ON CONFLICT (node_id) DO NOTHING")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	r.logSQL("seed", sqlStr, args)

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		r.logger.Info("document seeded", zap.String("node", r.nodeID))
	}
	return nil
}

func (r *PGRepo) load(ctx context.Context) (*domain.Document, int64, error) {
	q := r.qb().Select("body", "version").
		From(r.table()).
		Where(sq.Eq{"node_id": r.nodeID})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	r.logSQL("load", sqlStr, args)

	var (
		body    []byte
		version int64
	)
	start := time.Now()
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&body, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewDocument(r.now()), 0, nil
		}
		r.logger.Error("load scan error", zap.Duration("after", time.Since(start)), zap.Error(err))
		return nil, 0, err
	}

	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	doc.Version = version
	return &doc, version, nil
}

func (r *PGRepo) View(ctx context.Context, fn func(doc *domain.Document) error) error {
	doc, _, err := r.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update: блокировка + compare-and-swap по version.
// Если версию успел поменять другой писатель, возвращается ErrConflict.
func (r *PGRepo) Update(ctx context.Context, fn func(doc *domain.Document) error) error {
	unlock, err := r.locker.Lock(ctx, r.lockKey)
	if err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	defer unlock()

	doc, version, err := r.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.Version = version + 1

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	q := r.qb().Update(r.table()).
		Set("body", body).
		Set("version", doc.Version).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"node_id": r.nodeID, "version": version})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	r.logSQL("update", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Error("update exec error", zap.Duration("after", time.Since(start)), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document changed concurrently (version %d)", domain.ErrConflict, version)
	}
	r.logger.Debug("document written", zap.Int64("version", doc.Version), zap.Duration("took", time.Since(start)))
	return nil
}
