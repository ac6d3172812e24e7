package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"interview-tracker/internal/model"
)

// EmailConfig 邮件配置。
type EmailConfig struct {
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`
	From     string   `yaml:"from" json:"from"`
	To       []string `yaml:"to" json:"to"`
	Subject  string   `yaml:"subject" json:"subject"`
}

// Enabled 判断配置是否足以发送邮件。
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.From != "" && len(c.To) > 0
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := buildEmailData(msg)
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(data))
}

// EmailNotifier 在面试流程得到最终结果时发送邮件。
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
}

// NewEmailNotifier 创建 EmailNotifier。
func NewEmailNotifier(cfg EmailConfig, sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.Subject == "" {
		cfg.Subject = "Interview result"
	}
	return &EmailNotifier{cfg: cfg, sender: sender}
}

// Notify 仅在结果变为 Offer 或 Refusal 时发送，其他事件跳过。
func (n EmailNotifier) Notify(ctx context.Context, ev model.Event) error {
	if !ev.ResultChanged() {
		return nil
	}

	msg := EmailMessage{
		From:    n.cfg.From,
		To:      n.cfg.To,
		Subject: fmt.Sprintf("%s: %s at %s", n.cfg.Subject, ev.Interview.Result, ev.Interview.Company),
		Body:    buildBody(ev.Interview),
	}
	return n.sender.Send(ctx, msg)
}

func buildBody(rec model.Interview) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Company: %s\n", rec.Company))
	b.WriteString(fmt.Sprintf("Vacancy: %s\n", rec.VacancyLink))
	b.WriteString(fmt.Sprintf("HR: %s\n", rec.HRName))
	b.WriteString(fmt.Sprintf("Result: %s\n", rec.Result))
	if len(rec.Stages) > 0 {
		b.WriteString("Stages:\n")
		for _, st := range rec.Stages {
			when := "not scheduled"
			if st.Date != nil {
				when = st.Date.Format("2006-01-02 15:04")
			}
			b.WriteString(fmt.Sprintf("- %s (%s)\n", st.Name, when))
		}
	}
	return b.String()
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
