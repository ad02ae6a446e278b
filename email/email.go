package email

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// comments are untrusted input, so raw HTML in them is dropped
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type EmailService struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg Config) *EmailService {
	return &EmailService{cfg: cfg, send: smtp.SendMail}
}

// CommentNotice is the content of a "new comment on your post" mail.
type CommentNotice struct {
	To         string
	OwnerName  string
	PostTitle  string
	AuthorName string
	Comment    string
}

func (e *EmailService) SendCommentNotification(ctx context.Context, n CommentNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	message, err := buildCommentMessage(e.cfg.From, n)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%s", e.cfg.Host, e.cfg.Port)

	if err := e.send(addr, auth, e.cfg.From, []string{n.To}, message); err != nil {
		return fmt.Errorf("send comment notification: %w", err)
	}
	return nil
}

func buildCommentMessage(from string, n CommentNotice) ([]byte, error) {
	var rendered bytes.Buffer
	if err := md.Convert([]byte(n.Comment), &rendered); err != nil {
		return nil, fmt.Errorf("render comment: %w", err)
	}

	greeting := "Hello"
	if n.OwnerName != "" {
		greeting = "Hello " + html.EscapeString(n.OwnerName)
	}
	author := "Someone"
	if n.AuthorName != "" {
		author = html.EscapeString(n.AuthorName)
	}

	body := fmt.Sprintf(`<p>%s,</p>
<p>%s left a comment on your post <strong>%s</strong>:</p>
<blockquote>%s</blockquote>
`, greeting, author, html.EscapeString(n.PostTitle), rendered.String())

	subject := fmt.Sprintf("New comment on \"%s\"", stripNewlines(n.PostTitle))

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", stripNewlines(n.To))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.Bytes(), nil
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
