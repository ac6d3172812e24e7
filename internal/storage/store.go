package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"interview-tracker/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrNotFound 表示记录不存在或不属于当前用户。
var ErrNotFound = errors.New("record not found")

// Store 封装 SQLite 数据库访问，负责面试记录的增删改查。
type Store struct {
	db *gorm.DB
}

// InterviewQuery 描述列表过滤条件。
type InterviewQuery struct {
	Company string
	Result  *model.Result
	Desc    bool
	Limit   int
	Offset  int
}

// NewStore 创建 Store 并自动迁移数据表。
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&model.Interview{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}
	if err := backfillCompanyKeys(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// CreateInterview 写入新记录。
func (s *Store) CreateInterview(ctx context.Context, rec *model.Interview) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create interview: %w", err)
	}
	return nil
}

// GetInterview 根据 ID 与所属用户获取记录。
func (s *Store) GetInterview(ctx context.Context, ownerID, id string) (*model.Interview, error) {
	var rec model.Interview
	if err := s.db.WithContext(ctx).First(&rec, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	normalizeTimes(&rec)
	return &rec, nil
}

// UpdateInterview 整体覆盖已有记录，记录不存在时返回 ErrNotFound。
func (s *Store) UpdateInterview(ctx context.Context, rec *model.Interview) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Interview{}).
			Where("id = ? AND owner_id = ?", rec.ID, rec.OwnerID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("lookup interview: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("save interview: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update interview: %w", err)
	}
	return nil
}

// ListInterviews 返回按创建时间排序的记录，默认升序。
func (s *Store) ListInterviews(ctx context.Context, ownerID string, q InterviewQuery) ([]model.Interview, error) {
	var recs []model.Interview

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	query := applyInterviewFilters(s.db.WithContext(ctx).Model(&model.Interview{}), ownerID, q).
		Order("created_at " + dir).
		Order("id " + dir)
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	for i := range recs {
		normalizeTimes(&recs[i])
	}
	return recs, nil
}

// CountInterviews 返回满足过滤条件的记录数量。
func (s *Store) CountInterviews(ctx context.Context, ownerID string, q InterviewQuery) (int64, error) {
	var total int64
	query := applyInterviewFilters(s.db.WithContext(ctx).Model(&model.Interview{}), ownerID, q)
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	return total, nil
}

// DeleteInterview 删除整条记录。
func (s *Store) DeleteInterview(ctx context.Context, ownerID, id string) error {
	tx := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Interview{})
	if tx.Error != nil {
		return fmt.Errorf("delete interview: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func applyInterviewFilters(db *gorm.DB, ownerID string, q InterviewQuery) *gorm.DB {
	db = db.Where("owner_id = ?", ownerID)
	if company := strings.TrimSpace(q.Company); company != "" {
		db = db.Where(`company_key LIKE ? ESCAPE '\'`, likePattern(company))
	}
	if q.Result != nil {
		if *q.Result == model.ResultInProgress {
			db = db.Where("result IS NULL")
		} else {
			db = db.Where("result = ?", string(*q.Result))
		}
	}
	return db
}

// backfillCompanyKeys 为新增 company_key 列之前写入的记录补齐过滤键。
func backfillCompanyKeys(db *gorm.DB) error {
	var rows []model.Interview
	if err := db.Select("id", "company").
		Where("company_key = '' OR company_key IS NULL").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("load interviews without company key: %w", err)
	}
	for _, row := range rows {
		if err := db.Model(&model.Interview{}).
			Where("id = ?", row.ID).
			UpdateColumn("company_key", model.CompanyKey(row.Company)).Error; err != nil {
			return fmt.Errorf("backfill company key: %w", err)
		}
	}
	return nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(model.CompanyKey(s)) + "%"
}

func normalizeTimes(rec *model.Interview) {
	rec.CreatedAt = rec.CreatedAt.UTC()
	for i := range rec.Stages {
		if rec.Stages[i].Date != nil {
			d := rec.Stages[i].Date.UTC()
			rec.Stages[i].Date = &d
		}
	}
}
