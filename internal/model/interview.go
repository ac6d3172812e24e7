package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interview 表示一次被跟踪的求职面试流程。
// - ID: 创建时生成的 UUID，不可修改
// - OwnerID: 记录所属用户，所有读写都按用户隔离
// - CreatedAt: 创建时间，列表默认按它升序
// - CompanyKey: 公司名的小写形式，供大小写无关的子串过滤使用
// - Stages: 面试阶段，插入顺序即时间顺序，以 JSON 列存储
// - Result: 为空表示流程仍在进行

type Interview struct {
	ID              string                              `gorm:"primaryKey;size:36" json:"id"`
	OwnerID         string                              `gorm:"index;not null" json:"-"`
	CreatedAt       time.Time                           `gorm:"index;not null" json:"createdAt"`
	Company         string                              `gorm:"not null" json:"company"`
	CompanyKey      string                              `gorm:"index;not null;default:''" json:"-"`
	VacancyLink     string                              `gorm:"not null" json:"vacancyLink"`
	HRName          string                              `gorm:"column:hr_name;not null" json:"hrName"`
	ContactTelegram *string                             `json:"contactTelegram,omitempty"`
	ContactWhatsApp *string                             `gorm:"column:contact_whatsapp" json:"contactWhatsApp,omitempty"`
	ContactPhone    *string                             `json:"contactPhone,omitempty"`
	SalaryFrom      *int64                              `json:"salaryFrom,omitempty"`
	SalaryTo        *int64                              `json:"salaryTo,omitempty"`
	Stages          datatypes.JSONSlice[InterviewStage] `json:"stages,omitempty"`
	Result          Result                              `gorm:"type:text" json:"result,omitempty"`
}

// CompanyKey 返回公司名的过滤键，按 Unicode 规则转小写。
func CompanyKey(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}

// BeforeSave 在 gorm 写入前刷新 CompanyKey。
func (i *Interview) BeforeSave(tx *gorm.DB) error {
	i.CompanyKey = CompanyKey(i.Company)
	return nil
}

// InterviewStage 表示面试流程中的一步，Date 为空表示尚未安排。
type InterviewStage struct {
	Name        string     `json:"name"`
	Date        *time.Time `json:"date"`
	Description string     `json:"description"`
}

// Clone 返回深拷贝，避免调用方修改共享的指针字段。
func (i Interview) Clone() Interview {
	out := i
	out.ContactTelegram = cloneString(i.ContactTelegram)
	out.ContactWhatsApp = cloneString(i.ContactWhatsApp)
	out.ContactPhone = cloneString(i.ContactPhone)
	out.SalaryFrom = cloneInt(i.SalaryFrom)
	out.SalaryTo = cloneInt(i.SalaryTo)
	if i.Stages != nil {
		out.Stages = make(datatypes.JSONSlice[InterviewStage], len(i.Stages))
		for idx, st := range i.Stages {
			if st.Date != nil {
				d := *st.Date
				st.Date = &d
			}
			out.Stages[idx] = st
		}
	}
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
