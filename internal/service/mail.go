package service

import (
	"fmt"
	"log"
	"net/smtp"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/user/cinelist/internal/config"
)

// Mailer 通知投递接口，便于测试替换
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer 基于 SMTP 的邮件投递
type SMTPMailer struct {
	config *config.Config
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

// Send 发送邮件
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.config.MailSender, to, subject, body))

	addr := m.config.MailHost + ":" + m.config.MailPort
	var auth smtp.Auth
	if m.config.MailUser != "" {
		auth = smtp.PlainAuth("", m.config.MailUser, m.config.MailPass, m.config.MailHost)
	}
	return smtp.SendMail(addr, auth, m.config.MailSender, []string{to}, msg)
}

// MailService 找回密码邮件服务。投递是尽力而为的：
// 失败只记日志，绝不改变接口的响应。
type MailService struct {
	mailer   Mailer
	config   *config.Config
	cooldown *gocache.Cache
}

func NewMailService(mailer Mailer, cfg *config.Config) *MailService {
	return &MailService{
		mailer: mailer,
		config: cfg,
		// 冷却窗口5分钟，防止同一邮箱被刷
		cooldown: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// SendRecoveryAsync 异步发送找回密码邮件
func (s *MailService) SendRecoveryAsync(email, token string) {
	if _, throttled := s.cooldown.Get(email); throttled {
		log.Printf("[MAIL] %s 处于冷却期，跳过本次发送", email)
		return
	}
	s.cooldown.SetDefault(email, struct{}{})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[MAIL] 发送找回密码邮件发生恐慌: %v", r)
			}
		}()

		link := fmt.Sprintf("%s/recovery/%s", s.config.FrontendURL, token)
		body := fmt.Sprintf("Click the link to recover your password: %s", link)

		// 最多重试3次
		for attempt := 1; attempt <= 3; attempt++ {
			err := s.mailer.Send(email, "Password Recovery", body)
			if err == nil {
				log.Printf("[MAIL] 找回密码邮件已发送: %s (第 %d 次尝试)", email, attempt)
				return
			}
			log.Printf("[MAIL] 第 %d 次发送失败: %v", attempt, err)
			if attempt < 3 {
				time.Sleep(2 * time.Second)
			}
		}
		log.Printf("[MAIL] 找回密码邮件最终发送失败: %s", email)
	}()
}
