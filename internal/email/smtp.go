package email

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
}

// Message is one outbound mail. BCC recipients are delivered via RCPT only
// and never appear in the headers, which is how admin broadcasts keep the
// member list private.
type Message struct {
	FromName    string
	FromEmail   string
	ToEmail     string
	BCC         []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

func SendSMTP(settings SMTPSettings, msg Message) error {
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)
	client, err := smtpConnect(settings, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if settings.Username != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	recipients := make([]string, 0, len(msg.BCC)+1)
	if msg.ToEmail != "" {
		recipients = append(recipients, msg.ToEmail)
	}
	recipients = append(recipients, msg.BCC...)
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.FromEmail)
	}
	body := buildMessage(from, msg)
	if _, err := writer.Write([]byte(body)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func smtpConnect(settings SMTPSettings, addr string) (*smtp.Client, error) {
	tlsMode := settings.TLSMode
	if tlsMode == "" {
		tlsMode = "starttls"
	}
	switch tlsMode {
	case "tls":
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12})
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, settings.Host)
		if err != nil {
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("smtp dial: %w", err)
		}
		if tlsMode == "starttls" {
			if err := client.StartTLS(&tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
		return client, nil
	}
}

func buildMessage(from string, msg Message) string {
	to := msg.ToEmail
	if to == "" {
		// Broadcasts address the sender; the real recipients ride in BCC.
		to = msg.FromEmail
	}

	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"MIME-Version: 1.0",
	}

	if len(msg.Attachments) == 0 && msg.HTMLBody == "" {
		headers = append(headers,
			"Content-Type: text/plain; charset=utf-8",
			"",
			msg.TextBody,
		)
		return strings.Join(headers, "\r\n")
	}
	if len(msg.Attachments) == 0 && msg.TextBody == "" {
		headers = append(headers,
			"Content-Type: text/html; charset=utf-8",
			"",
			msg.HTMLBody,
		)
		return strings.Join(headers, "\r\n")
	}

	const mixedBoundary = "=_expensemate_mixed"
	const altBoundary = "=_expensemate_alt"

	var b strings.Builder
	writePart := func(boundary, contentType, content string) {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + contentType + "\r\n")
		b.WriteString("\r\n")
		b.WriteString(content)
		b.WriteString("\r\n")
	}
	// Alternative parts go lowest fidelity first so readers pick the last
	// one they can render.
	writeAlternative := func(boundary string) {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(`Content-Type: multipart/alternative; boundary="` + altBoundary + `"` + "\r\n")
		b.WriteString("\r\n")
		writePart(altBoundary, "text/plain; charset=utf-8", msg.TextBody)
		writePart(altBoundary, "text/html; charset=utf-8", msg.HTMLBody)
		b.WriteString("--" + altBoundary + "--\r\n")
	}

	if len(msg.Attachments) == 0 {
		headers = append(headers, `Content-Type: multipart/alternative; boundary="`+altBoundary+`"`, "")
		b.WriteString(strings.Join(headers, "\r\n"))
		b.WriteString("\r\n")
		writePart(altBoundary, "text/plain; charset=utf-8", msg.TextBody)
		writePart(altBoundary, "text/html; charset=utf-8", msg.HTMLBody)
		b.WriteString("--" + altBoundary + "--\r\n")
		return b.String()
	}

	headers = append(headers, `Content-Type: multipart/mixed; boundary="`+mixedBoundary+`"`, "")
	b.WriteString(strings.Join(headers, "\r\n"))
	b.WriteString("\r\n")

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		writeAlternative(mixedBoundary)
	case msg.HTMLBody != "":
		writePart(mixedBoundary, "text/html; charset=utf-8", msg.HTMLBody)
	default:
		writePart(mixedBoundary, "text/plain; charset=utf-8", msg.TextBody)
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		b.WriteString("--" + mixedBoundary + "\r\n")
		b.WriteString("Content-Type: " + contentType + `; name="` + att.Filename + `"` + "\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(`Content-Disposition: attachment; filename="` + att.Filename + `"` + "\r\n")
		b.WriteString("\r\n")
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(att.Data)))
		b.WriteString("\r\n")
	}

	b.WriteString("--" + mixedBoundary + "--\r\n")
	return b.String()
}

// wrapBase64 folds the encoded payload at the RFC 2045 line limit.
func wrapBase64(s string) string {
	const lineLen = 76
	var b strings.Builder
	for len(s) > lineLen {
		b.WriteString(s[:lineLen])
		b.WriteString("\r\n")
		s = s[lineLen:]
	}
	b.WriteString(s)
	return b.String()
}
