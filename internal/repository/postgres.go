// Package repository содержит хранение снимков синхронизации в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Виды снимков.
const (
	KindCatalog = "catalog"
	KindOrders  = "orders"
)

// ErrSnapshotNotFound возвращается, если снимок указанного вида ещё не сохранялся.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot содержит последний успешно синхронизированный список.
type Snapshot struct {
	Kind      string
	Payload   json.RawMessage
	ItemCount int
	SyncedAt  time.Time
}

// StatusChange описывает отправленное изменение статуса заказа.
type StatusChange struct {
	OrderID   string
	Status    string
	Accepted  bool
	Message   string
	CreatedAt time.Time
}

// PostgresRepository предоставляет доступ к снимкам в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveSnapshot сохраняет список последней успешной синхронизации, заменяя предыдущий снимок того же вида.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	count := 0
	var items []json.RawMessage
	if json.Unmarshal(data, &items) == nil {
		count = len(items)
	}

	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sync_snapshots (kind, payload, item_count, synced_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (kind) DO UPDATE
			 SET payload = EXCLUDED.payload, item_count = EXCLUDED.item_count, synced_at = EXCLUDED.synced_at`,
			kind, data, count,
		)
		if err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
		return nil
	})
}

// LoadSnapshot возвращает последний сохранённый снимок указанного вида.
func (r *PostgresRepository) LoadSnapshot(ctx context.Context, kind string) (*Snapshot, error) {
	s := Snapshot{Kind: kind}

	err := r.pool.QueryRow(ctx,
		`SELECT payload, item_count, synced_at FROM sync_snapshots WHERE kind = $1`,
		kind,
	).Scan(&s.Payload, &s.ItemCount, &s.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	return &s, nil
}

// RecordStatusChange сохраняет факт отправки нового статуса заказа и ответ сервиса.
func (r *PostgresRepository) RecordStatusChange(ctx context.Context, orderID, status string, accepted bool, message string) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO order_status_changes (order_id, status, accepted, message) VALUES ($1, $2, $3, $4)`,
			orderID, status, accepted, message,
		)
		if err != nil {
			return fmt.Errorf("insert status change: %w", err)
		}
		return nil
	})
}

// GetStatusChanges возвращает историю изменений статуса заказа, начиная с последних.
func (r *PostgresRepository) GetStatusChanges(ctx context.Context, orderID string, limit int) ([]StatusChange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, status, accepted, message, created_at
		 FROM order_status_changes
		 WHERE order_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		orderID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select status changes: %w", err)
	}
	defer rows.Close()

	var res []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.OrderID, &c.Status, &c.Accepted, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
