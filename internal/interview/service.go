package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	"interview-tracker/internal/logging"
	"interview-tracker/internal/model"
	"interview-tracker/internal/storage"

	"github.com/google/uuid"
)

// Repository 抽象远端存储，便于测试替换。
type Repository interface {
	CreateInterview(ctx context.Context, rec *model.Interview) error
	GetInterview(ctx context.Context, ownerID, id string) (*model.Interview, error)
	UpdateInterview(ctx context.Context, rec *model.Interview) error
	ListInterviews(ctx context.Context, ownerID string, q storage.InterviewQuery) ([]model.Interview, error)
	CountInterviews(ctx context.Context, ownerID string, q storage.InterviewQuery) (int64, error)
	DeleteInterview(ctx context.Context, ownerID, id string) error
}

// Notifier 接收写入成功后的变更事件。
type Notifier interface {
	Notify(ctx context.Context, ev model.Event) error
}

// Input 为创建请求，只有 company、vacancyLink、hrName 必填。
type Input struct {
	Company         string                 `json:"company"`
	VacancyLink     string                 `json:"vacancyLink"`
	HRName          string                 `json:"hrName"`
	ContactTelegram *string                `json:"contactTelegram"`
	ContactWhatsApp *string                `json:"contactWhatsApp"`
	ContactPhone    *string                `json:"contactPhone"`
	SalaryFrom      *int64                 `json:"salaryFrom"`
	SalaryTo        *int64                 `json:"salaryTo"`
	Stages          []model.InterviewStage `json:"stages"`
	Result          model.Result           `json:"result"`
}

// Patch 描述部分更新，Stages 整体替换。
type Patch struct {
	Company         Nullable[string]                 `json:"company"`
	VacancyLink     Nullable[string]                 `json:"vacancyLink"`
	HRName          Nullable[string]                 `json:"hrName"`
	ContactTelegram Nullable[string]                 `json:"contactTelegram"`
	ContactWhatsApp Nullable[string]                 `json:"contactWhatsApp"`
	ContactPhone    Nullable[string]                 `json:"contactPhone"`
	SalaryFrom      Nullable[int64]                  `json:"salaryFrom"`
	SalaryTo        Nullable[int64]                  `json:"salaryTo"`
	Stages          Nullable[[]model.InterviewStage] `json:"stages"`
	Result          Nullable[model.Result]           `json:"result"`
}

// Order 指定列表排序方向。
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Filter 为列表过滤条件，Result 取值 Offer、Refusal 或 in_progress。
type Filter struct {
	Company string
	Result  string
	Order   Order
	Limit   int
	Offset  int
}

// ResultFilterInProgress 用于筛选尚无结果的记录。
const ResultFilterInProgress = "in_progress"

// Option 配置 Service。
type Option func(*Service)

// WithClock 替换时间源。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator 替换 ID 生成器。
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithNotifier 设置变更通知。
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger 设置日志。
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service 负责面试记录的校验、归一化与读写。
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
	newID    func() string
}

// NewService 创建 Service。
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 校验输入，分配 ID 与创建时间后写入存储。
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*model.Interview, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	rec := model.Interview{
		OwnerID:         ownerID,
		Company:         in.Company,
		VacancyLink:     in.VacancyLink,
		HRName:          in.HRName,
		ContactTelegram: in.ContactTelegram,
		ContactWhatsApp: in.ContactWhatsApp,
		ContactPhone:    in.ContactPhone,
		SalaryFrom:      in.SalaryFrom,
		SalaryTo:        in.SalaryTo,
		Stages:          in.Stages,
		Result:          in.Result,
	}
	if err := prepare(&rec); err != nil {
		return nil, err
	}
	rec.ID = s.newID()
	rec.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.repo.CreateInterview(ctx, &rec); err != nil {
		return nil, &RemoteError{Op: "create", Err: err}
	}

	s.notify(ctx, model.Event{Type: model.EventCreated, OwnerID: ownerID, Interview: rec.Clone()})
	out := rec.Clone()
	return &out, nil
}

// Get 返回单条记录，不存在时返回 ErrNotFound。
func (s *Service) Get(ctx context.Context, ownerID, id string) (*model.Interview, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetInterview(ctx, ownerID, id)
	if err != nil {
		return nil, mapStoreError("get", err)
	}
	return rec, nil
}

// Update 合并补丁并重新校验，校验失败时记录保持不变。
func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (*model.Interview, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := checkPatch(p); err != nil {
		return nil, err
	}

	cur, err := s.repo.GetInterview(ctx, ownerID, id)
	if err != nil {
		return nil, mapStoreError("get", err)
	}

	next := cur.Clone()
	applyPatch(&next, p)
	if err := prepare(&next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInterview(ctx, &next); err != nil {
		return nil, mapStoreError("update", err)
	}

	s.notify(ctx, model.Event{
		Type:           model.EventUpdated,
		OwnerID:        ownerID,
		Interview:      next.Clone(),
		PreviousResult: cur.Result,
	})
	out := next.Clone()
	return &out, nil
}

// List 按过滤条件返回记录，默认按创建时间升序。
func (s *Service) List(ctx context.Context, ownerID string, f Filter) ([]model.Interview, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	q, err := f.query()
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.ListInterviews(ctx, ownerID, q)
	if err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}
	return recs, nil
}

// Count 返回满足过滤条件的记录数，忽略分页参数。
func (s *Service) Count(ctx context.Context, ownerID string, f Filter) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	q, err := f.query()
	if err != nil {
		return 0, err
	}
	q.Limit, q.Offset = 0, 0
	total, err := s.repo.CountInterviews(ctx, ownerID, q)
	if err != nil {
		return 0, &RemoteError{Op: "count", Err: err}
	}
	return total, nil
}

// Delete 删除整条记录。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.repo.DeleteInterview(ctx, ownerID, id); err != nil {
		return mapStoreError("delete", err)
	}
	s.notify(ctx, model.Event{Type: model.EventDeleted, OwnerID: ownerID, Interview: model.Interview{ID: id, OwnerID: ownerID}})
	return nil
}

func (s *Service) notify(ctx context.Context, ev model.Event) {
	if s.notifier == nil {
		return
	}
	ev.At = s.now().UTC()
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("notify interview event failed", "type", ev.Type, "interviewId", ev.Interview.ID, "err", err)
	}
}

func (f Filter) query() (storage.InterviewQuery, error) {
	q := storage.InterviewQuery{
		Company: strings.TrimSpace(f.Company),
		Limit:   f.Limit,
		Offset:  f.Offset,
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	switch f.Order {
	case "", OrderAsc:
	case OrderDesc:
		q.Desc = true
	default:
		return q, invalid("order", "must be asc or desc")
	}

	switch raw := strings.TrimSpace(f.Result); raw {
	case "":
	case ResultFilterInProgress:
		r := model.ResultInProgress
		q.Result = &r
	default:
		r, err := model.ParseResult(raw)
		if err != nil {
			return q, invalid("result", "must be Offer, Refusal or %s", ResultFilterInProgress)
		}
		q.Result = &r
	}
	return q, nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return invalid("owner", "is required")
	}
	return nil
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return &RemoteError{Op: op, Err: err}
}
