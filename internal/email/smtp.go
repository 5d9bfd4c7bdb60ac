package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"path/filepath"
	"strings"

	"go-reporting/internal/config"
)

// Sender is the outbound email collaborator. The delivery subsystem is the
// only caller; it owns attempt counting and retry accounting.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
	SendWithAttachment(ctx context.Context, to []string, subject, body, attachmentName string, attachmentData []byte) error
}

type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTPSender(cfg *config.Config) Sender {
	return &SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", s.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	return s.sendMail(ctx, to, buf.Bytes())
}

func (s *SMTPSender) SendWithAttachment(ctx context.Context, to []string, subject, body, attachmentName string, attachmentData []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	marker := "ReportBoundary"
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", s.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n", marker))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", marker))
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	if len(attachmentData) > 0 {
		buf.WriteString(fmt.Sprintf("--%s\r\n", marker))
		contentType := mime.TypeByExtension(filepath.Ext(attachmentName))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		buf.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, attachmentName))
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", attachmentName))
		buf.WriteString("\r\n")

		b := make([]byte, base64.StdEncoding.EncodedLen(len(attachmentData)))
		base64.StdEncoding.Encode(b, attachmentData)
		buf.Write(b)
		buf.WriteString("\r\n")
	}

	buf.WriteString(fmt.Sprintf("--%s--", marker))

	return s.sendMail(ctx, to, buf.Bytes())
}

// sendMail runs the blocking SMTP exchange in a goroutine so a stuck server
// converts into a context error instead of wedging the caller.
func (s *SMTPSender) sendMail(ctx context.Context, to []string, msg []byte) error {
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.From, to, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send timed out: %w", ctx.Err())
	}
}
