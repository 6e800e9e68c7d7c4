// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package mail sends the account emails of the feed.
package mail

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sync"
)

// Message is a single outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Subjects of the account emails.
const (
	SubjectSignup = "Signup succeeded!"
	SubjectReset  = "Password reset"
)

// SignupMessage is sent after a successful signup.
func SignupMessage(from, to string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: SubjectSignup,
		HTML:    "<h1>You successfully signed up!</h1>",
	}
}

// ResetMessage carries the password reset link.
func ResetMessage(from, to, link string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: SubjectReset,
		HTML: fmt.Sprintf(`<p>You requested a password reset.</p>
<p>Click this <a href="%s">link</a> to set a new password. The link is valid for one hour.</p>`,
			html.EscapeString(link)),
	}
}

// LogMailer writes message metadata to the logger instead of delivering it.
// The body is not logged since it may carry a reset token.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger selects slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail not delivered (log driver)",
		"to", msg.To,
		"from", msg.From,
		"subject", msg.Subject,
		"body_bytes", len(msg.HTML))
	return nil
}

// Outbox keeps sent messages in memory.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
}

// Send implements Mailer.
func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (Message, bool) {
	return o.Find(addr, "")
}

// Find returns the most recent message sent to addr with the given subject.
// An empty subject matches any message.
func (o *Outbox) Find(addr, subject string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == addr && (subject == "" || o.sent[i].Subject == subject) {
			return o.sent[i], true
		}
	}
	return Message{}, false
}
