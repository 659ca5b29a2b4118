package email

import (
	"strings"
	"testing"
)

func TestBuildMessagePlainText(t *testing.T) {
	got := buildMessage("ExpenseMate <noreply@example.com>", Message{
		FromEmail: "noreply@example.com",
		ToEmail:   "user@example.com",
		Subject:   "hello",
		TextBody:  "plain body",
	})

	if !strings.Contains(got, "Content-Type: text/plain; charset=utf-8") {
		t.Fatalf("missing plain content type:\n%s", got)
	}
	if strings.Contains(got, "multipart") {
		t.Fatalf("plain mail must not be multipart:\n%s", got)
	}
	if !strings.HasSuffix(got, "plain body") {
		t.Fatalf("body must close the message:\n%s", got)
	}
}

func TestBuildMessageTextAndHTMLAlternative(t *testing.T) {
	got := buildMessage("ExpenseMate <noreply@example.com>", Message{
		FromEmail: "noreply@example.com",
		ToEmail:   "user@example.com",
		Subject:   "hello",
		TextBody:  "plain body",
		HTMLBody:  "<p>rich body</p>",
	})

	if !strings.Contains(got, "Content-Type: multipart/alternative") {
		t.Fatalf("expected an alternative container:\n%s", got)
	}
	textAt := strings.Index(got, "plain body")
	htmlAt := strings.Index(got, "<p>rich body</p>")
	if textAt < 0 || htmlAt < 0 {
		t.Fatalf("both bodies must be present:\n%s", got)
	}
	if textAt > htmlAt {
		t.Fatal("text part must precede the html part")
	}
}

func TestBuildMessageAttachmentKeepsBothBodies(t *testing.T) {
	got := buildMessage("ExpenseMate <noreply@example.com>", Message{
		FromEmail: "noreply@example.com",
		Subject:   "monthly statement",
		TextBody:  "see attached",
		HTMLBody:  "<p>see attached</p>",
		Attachments: []Attachment{
			{Filename: "statement.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")},
		},
	})

	if !strings.Contains(got, "Content-Type: multipart/mixed") {
		t.Fatalf("attachments need a mixed container:\n%s", got)
	}
	if !strings.Contains(got, "Content-Type: multipart/alternative") {
		t.Fatalf("both bodies must ride in an alternative part:\n%s", got)
	}
	if !strings.Contains(got, "see attached") || !strings.Contains(got, "<p>see attached</p>") {
		t.Fatalf("both bodies must be present:\n%s", got)
	}
	if !strings.Contains(got, `Content-Disposition: attachment; filename="statement.csv"`) {
		t.Fatalf("attachment part missing:\n%s", got)
	}
	// Broadcasts have no To recipient; the header falls back to the sender.
	if !strings.Contains(got, "To: noreply@example.com") {
		t.Fatalf("missing To fallback:\n%s", got)
	}
}
