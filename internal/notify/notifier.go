package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/statuswatch/statuswatch/internal/classify"
	"github.com/statuswatch/statuswatch/internal/config"
)

// Event is one status-change alert.
type Event struct {
	Person       string
	Status       classify.Status
	When         time.Time
	RateLimitMin int
}

// Notifier delivers a status-change alert.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every delivery sink. All sinks are attempted;
// the first error is returned so the caller does not mark the alert as
// sent. The chime is decoration on top of a successful delivery and its
// failure is only logged.
type Multi struct {
	sinks []Notifier
	chime Notifier
}

// NewMulti creates a fan-out over the given delivery sinks.
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks}
}

// WithChime adds a best-effort chime played after successful delivery.
func (m *Multi) WithChime(c Notifier) *Multi {
	m.chime = c
	return m
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, ev Event) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, ev); err != nil {
			slog.Error("notification sink failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}

	if m.chime != nil {
		if err := m.chime.Notify(ctx, ev); err != nil {
			slog.Warn("chime failed", "error", err)
		}
	}
	return nil
}

// MailConfigured reports whether the profile describes a usable mail route.
func MailConfigured(p config.Profile) bool {
	return p.EmailEnabled && p.SenderEmail != "" && p.RecipientEmail != ""
}

// TelegramConfigured reports whether the profile describes a telegram route.
func TelegramConfigured(p config.Profile) bool {
	return p.TelegramToken != "" && p.TelegramChatID != 0
}

// Configured reports whether at least one delivery route is available.
// The monitor loop skips the whole notification path when this is false.
func Configured(p config.Profile) bool {
	return MailConfigured(p) || TelegramConfigured(p)
}

// Build assembles the delivery stack a profile asks for. smtpPassword
// overrides the profile credential when set.
func Build(p config.Profile, smtpPassword string) *Multi {
	var sinks []Notifier

	if MailConfigured(p) {
		pw := smtpPassword
		if pw == "" {
			pw = p.SenderPassword
		}
		sinks = append(sinks, NewMailer(p.SMTPServer, p.SMTPPort, p.SenderEmail, pw, p.RecipientEmail))
	}
	if TelegramConfigured(p) {
		sinks = append(sinks, NewTelegram(p.TelegramToken, p.TelegramChatID))
	}

	m := NewMulti(sinks...)
	if p.ChimeEnabled {
		m = m.WithChime(NewChime())
	}
	return m
}
