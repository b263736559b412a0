// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS testgen_audit_log (
  id          BIGSERIAL PRIMARY KEY,
  request_id  TEXT NOT NULL,
  method      TEXT NOT NULL,
  path        TEXT NOT NULL,
  client_ip   TEXT NOT NULL DEFAULT '',
  image_count INT NOT NULL DEFAULT 0,
  status_code INT NOT NULL,
  duration_ms BIGINT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore PostgreSQL 审计存储，使用 testgen_audit_log 表
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接数据库并确保表存在
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.audit.dsn 未配置")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接审计数据库失败: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("连接审计数据库失败: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("创建审计表失败: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Log 写入一条记录
func (s *PostgresStore) Log(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO testgen_audit_log (request_id, method, path, client_ip, image_count, status_code, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.RequestID, r.Method, r.Path, r.ClientIP, r.ImageCount, r.StatusCode, r.DurationMS, r.CreatedAt,
	)
	return err
}

// Recent 按时间倒序返回最近记录
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT request_id, method, path, client_ip, image_count, status_code, duration_ms, created_at
FROM testgen_audit_log ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RequestID, &r.Method, &r.Path, &r.ClientIP, &r.ImageCount, &r.StatusCode, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
