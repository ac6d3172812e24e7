package interview

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"interview-tracker/internal/model"

	"gorm.io/datatypes"
	"golang.org/x/net/idna"
)

// prepare 归一化并校验记录，结果对同一输入是幂等的。
func prepare(rec *model.Interview) error {
	rec.Company = strings.TrimSpace(rec.Company)
	if rec.Company == "" {
		return invalid("company", "is required")
	}
	rec.CompanyKey = model.CompanyKey(rec.Company)

	link := strings.TrimSpace(rec.VacancyLink)
	if link == "" {
		return invalid("vacancyLink", "is required")
	}
	normalized, err := normalizeLink(link)
	if err != nil {
		return invalid("vacancyLink", "%v", err)
	}
	rec.VacancyLink = normalized

	rec.HRName = strings.TrimSpace(rec.HRName)
	if rec.HRName == "" {
		return invalid("hrName", "is required")
	}

	rec.ContactTelegram = trimOptional(rec.ContactTelegram)
	rec.ContactWhatsApp = trimOptional(rec.ContactWhatsApp)
	rec.ContactPhone = trimOptional(rec.ContactPhone)

	if rec.SalaryFrom != nil && *rec.SalaryFrom < 0 {
		return invalid("salaryFrom", "must not be negative")
	}
	if rec.SalaryTo != nil && *rec.SalaryTo < 0 {
		return invalid("salaryTo", "must not be negative")
	}
	if rec.SalaryFrom != nil && rec.SalaryTo != nil && *rec.SalaryTo < *rec.SalaryFrom {
		return invalid("salaryTo", "must be greater than or equal to salaryFrom")
	}

	stages, err := normalizeStages(rec.Stages)
	if err != nil {
		return err
	}
	rec.Stages = stages

	if !rec.Result.Valid() {
		return invalid("result", "must be %s or %s", model.ResultRefusal, model.ResultOffer)
	}
	return nil
}

// checkPatch 在读取存储之前拒绝明显非法的补丁。
func checkPatch(p Patch) error {
	required := []struct {
		field string
		value Nullable[string]
	}{
		{"company", p.Company},
		{"vacancyLink", p.VacancyLink},
		{"hrName", p.HRName},
	}
	for _, r := range required {
		if r.value.Set && (r.value.Value == nil || strings.TrimSpace(*r.value.Value) == "") {
			return invalid(r.field, "is required")
		}
	}
	if p.SalaryFrom.Set && p.SalaryFrom.Value != nil && *p.SalaryFrom.Value < 0 {
		return invalid("salaryFrom", "must not be negative")
	}
	if p.SalaryTo.Set && p.SalaryTo.Value != nil && *p.SalaryTo.Value < 0 {
		return invalid("salaryTo", "must not be negative")
	}
	if p.SalaryFrom.Value != nil && p.SalaryTo.Value != nil && *p.SalaryTo.Value < *p.SalaryFrom.Value {
		return invalid("salaryTo", "must be greater than or equal to salaryFrom")
	}
	if p.Stages.Value != nil {
		if _, err := normalizeStages(*p.Stages.Value); err != nil {
			return err
		}
	}
	if p.Result.Value != nil && !p.Result.Value.Valid() {
		return invalid("result", "must be %s or %s", model.ResultRefusal, model.ResultOffer)
	}
	return nil
}

func applyPatch(rec *model.Interview, p Patch) {
	if p.Company.Set && p.Company.Value != nil {
		rec.Company = *p.Company.Value
	}
	if p.VacancyLink.Set && p.VacancyLink.Value != nil {
		rec.VacancyLink = *p.VacancyLink.Value
	}
	if p.HRName.Set && p.HRName.Value != nil {
		rec.HRName = *p.HRName.Value
	}
	if p.ContactTelegram.Set {
		rec.ContactTelegram = copyPtr(p.ContactTelegram.Value)
	}
	if p.ContactWhatsApp.Set {
		rec.ContactWhatsApp = copyPtr(p.ContactWhatsApp.Value)
	}
	if p.ContactPhone.Set {
		rec.ContactPhone = copyPtr(p.ContactPhone.Value)
	}
	if p.SalaryFrom.Set {
		rec.SalaryFrom = copyPtr(p.SalaryFrom.Value)
	}
	if p.SalaryTo.Set {
		rec.SalaryTo = copyPtr(p.SalaryTo.Value)
	}
	if p.Stages.Set {
		rec.Stages = nil
		if p.Stages.Value != nil {
			rec.Stages = *p.Stages.Value
		}
	}
	if p.Result.Set {
		rec.Result = model.ResultInProgress
		if p.Result.Value != nil {
			rec.Result = *p.Result.Value
		}
	}
}

// normalizeLink 要求绝对 http(s) 地址，并把主机名转换为 ASCII 形式。
func normalizeLink(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("must be a valid URL")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("must use http or https")
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("must include a host")
	}
	if net.ParseIP(host) == nil {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("invalid host %q", host)
		}
		host = strings.ToLower(ascii)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}
	return u.String(), nil
}

func normalizeStages(in []model.InterviewStage) (datatypes.JSONSlice[model.InterviewStage], error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(datatypes.JSONSlice[model.InterviewStage], len(in))
	for i, st := range in {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			return nil, invalid(fmt.Sprintf("stages[%d].name", i), "is required")
		}
		if st.Date != nil {
			d := st.Date.UTC().Truncate(time.Millisecond)
			st.Date = &d
		}
		out[i] = st
	}
	return out, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
