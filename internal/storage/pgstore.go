package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"interview-tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS interviews (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	company          TEXT NOT NULL,
	company_key      TEXT NOT NULL DEFAULT '',
	vacancy_link     TEXT NOT NULL,
	hr_name          TEXT NOT NULL,
	contact_telegram TEXT,
	contact_whatsapp TEXT,
	contact_phone    TEXT,
	salary_from      BIGINT,
	salary_to        BIGINT,
	stages           JSONB,
	result           TEXT
);
ALTER TABLE interviews ADD COLUMN IF NOT EXISTS company_key TEXT NOT NULL DEFAULT '';
UPDATE interviews SET company_key = LOWER(BTRIM(company)) WHERE company_key = '';
CREATE INDEX IF NOT EXISTS idx_interviews_owner_created ON interviews (owner_id, created_at, id);`

const pgColumns = `id, owner_id, created_at, company, vacancy_link, hr_name,
	contact_telegram, contact_whatsapp, contact_phone,
	salary_from, salary_to, stages, result`

// PGStore 基于 pgxpool 的 PostgreSQL 实现，阶段列表存为 JSONB。
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore 建立连接池、校验连通性并确保表结构存在。
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close 关闭连接池。
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) CreateInterview(ctx context.Context, rec *model.Interview) error {
	stages, err := encodeStages(rec.Stages)
	if err != nil {
		return err
	}
	rec.CompanyKey = model.CompanyKey(rec.Company)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO interviews (`+pgColumns+`, company_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.OwnerID, rec.CreatedAt, rec.Company, rec.VacancyLink, rec.HRName,
		rec.ContactTelegram, rec.ContactWhatsApp, rec.ContactPhone,
		rec.SalaryFrom, rec.SalaryTo, stages, rec.Result, rec.CompanyKey,
	)
	if err != nil {
		return fmt.Errorf("create interview: %w", err)
	}
	return nil
}

func (s *PGStore) GetInterview(ctx context.Context, ownerID, id string) (*model.Interview, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM interviews WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	rec, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return rec, nil
}

func (s *PGStore) UpdateInterview(ctx context.Context, rec *model.Interview) error {
	stages, err := encodeStages(rec.Stages)
	if err != nil {
		return err
	}
	rec.CompanyKey = model.CompanyKey(rec.Company)
	tag, err := s.pool.Exec(ctx,
		`UPDATE interviews
		 SET company          = $3,
		     vacancy_link     = $4,
		     hr_name          = $5,
		     contact_telegram = $6,
		     contact_whatsapp = $7,
		     contact_phone    = $8,
		     salary_from      = $9,
		     salary_to        = $10,
		     stages           = $11,
		     result           = $12,
		     company_key      = $13
		 WHERE id = $1 AND owner_id = $2`,
		rec.ID, rec.OwnerID, rec.Company, rec.VacancyLink, rec.HRName,
		rec.ContactTelegram, rec.ContactWhatsApp, rec.ContactPhone,
		rec.SalaryFrom, rec.SalaryTo, stages, rec.Result, rec.CompanyKey,
	)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListInterviews(ctx context.Context, ownerID string, q InterviewQuery) ([]model.Interview, error) {
	where, args := pgFilters(ownerID, q)
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	sql := `SELECT ` + pgColumns + ` FROM interviews WHERE ` + where +
		` ORDER BY created_at ` + dir + `, id ` + dir
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list interviews query: %w", err)
	}
	defer rows.Close()

	recs := make([]model.Interview, 0)
	for rows.Next() {
		rec, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("list interviews scan: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return recs, nil
}

func (s *PGStore) CountInterviews(ctx context.Context, ownerID string, q InterviewQuery) (int64, error) {
	where, args := pgFilters(ownerID, q)
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM interviews WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	return total, nil
}

func (s *PGStore) DeleteInterview(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM interviews WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgFilters(ownerID string, q InterviewQuery) (string, []any) {
	clauses := []string{"owner_id = $1"}
	args := []any{ownerID}
	if company := strings.TrimSpace(q.Company); company != "" {
		args = append(args, likePattern(company))
		clauses = append(clauses, fmt.Sprintf(`company_key LIKE $%d ESCAPE '\'`, len(args)))
	}
	if q.Result != nil {
		if *q.Result == model.ResultInProgress {
			clauses = append(clauses, "result IS NULL")
		} else {
			args = append(args, string(*q.Result))
			clauses = append(clauses, fmt.Sprintf("result = $%d", len(args)))
		}
	}
	return strings.Join(clauses, " AND "), args
}

func encodeStages(stages []model.InterviewStage) ([]byte, error) {
	if stages == nil {
		return nil, nil
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("marshal stages: %w", err)
	}
	return data, nil
}

func scanInterview(row pgx.Row) (*model.Interview, error) {
	var (
		rec    model.Interview
		stages []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.CreatedAt, &rec.Company, &rec.VacancyLink, &rec.HRName,
		&rec.ContactTelegram, &rec.ContactWhatsApp, &rec.ContactPhone,
		&rec.SalaryFrom, &rec.SalaryTo, &stages, &rec.Result,
	); err != nil {
		return nil, err
	}
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &rec.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages: %w", err)
		}
	}
	rec.CompanyKey = model.CompanyKey(rec.Company)
	normalizeTimes(&rec)
	return &rec, nil
}
