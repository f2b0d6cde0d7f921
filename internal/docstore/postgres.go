package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// PostgresStore 文档库的 PostgreSQL 实现
// 文档存为 (collection, doc_id) 主键 + JSONB 字段的单表
type PostgresStore struct {
	db           *sql.DB
	pollInterval time.Duration // Subscribe 轮询间隔
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, pollInterval: 2 * time.Second}
}

// EnsureSchema 创建 documents 表（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, doc_id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fields, updated_at FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	).Scan(&raw, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return &Document{ID: id, Fields: fields, UpdatedAt: updatedAt}, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	query := `SELECT doc_id, fields, updated_at FROM documents WHERE collection = $1`
	args := []any{collection}
	for _, f := range filters {
		// 等值过滤走 JSONB 文本比较（过滤值统一按字符串匹配）
		args = append(args, f.Field, fmt.Sprintf("%v", f.Value))
		query += fmt.Sprintf(" AND fields->>$%d = $%d", len(args)-1, len(args))
	}
	query += ` ORDER BY doc_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	out := make([]*Document, 0)
	for rows.Next() {
		var id string
		var raw []byte
		var updatedAt time.Time
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document fields: %w", err)
		}
		out = append(out, &Document{ID: id, Fields: fields, UpdatedAt: updatedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document fields: %w", err)
	}

	// merge=true: JSONB || 按顶层字段合并；否则整体替换
	assign := `fields = EXCLUDED.fields`
	if merge {
		assign = `fields = documents.fields || EXCLUDED.fields`
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_id, fields, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, doc_id)
		 DO UPDATE SET `+assign+`, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Subscribe 轮询实现：按 (行数, 最大 updated_at) 指纹检测集合变更
func (s *PostgresStore) Subscribe(ctx context.Context, collection string, onChange func([]*Document)) (func(), error) {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		var lastFingerprint string
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
			}

			var count int
			var maxUpdated sql.NullTime
			err := s.db.QueryRowContext(ctx,
				`SELECT COUNT(*), MAX(updated_at) FROM documents WHERE collection = $1`,
				collection,
			).Scan(&count, &maxUpdated)
			if err != nil {
				continue
			}
			fingerprint := fmt.Sprintf("%d:%s", count, maxUpdated.Time.Format(time.RFC3339Nano))
			if fingerprint == lastFingerprint {
				continue
			}
			lastFingerprint = fingerprint

			docs, err := s.Query(ctx, collection)
			if err != nil {
				continue
			}
			onChange(docs)
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }, nil
}

// CollectionPath 拼接层级集合路径（如 events/{id}/exhibitors）
func CollectionPath(parts ...string) string {
	return strings.Join(parts, "/")
}
