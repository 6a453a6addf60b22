package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statuswatch/statuswatch/internal/classify"
	"github.com/statuswatch/statuswatch/internal/config"
)

type mockSink struct {
	calls int
	err   error
}

func (m *mockSink) Notify(ctx context.Context, ev Event) error {
	m.calls++
	return m.err
}

func testEvent() Event {
	return Event{
		Person:       "Ann Lee",
		Status:       classify.StatusGreen,
		When:         time.Date(2026, 8, 25, 14, 30, 5, 0, time.FixedZone("CEST", 7200)),
		RateLimitMin: 60,
	}
}

func TestMultiDeliversToAllSinks(t *testing.T) {
	a, b, chime := &mockSink{}, &mockSink{}, &mockSink{}
	m := NewMulti(a, b).WithChime(chime)

	if err := m.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify() = %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("sink calls = %d, %d; want 1, 1", a.calls, b.calls)
	}
	if chime.calls != 1 {
		t.Errorf("chime calls = %d, want 1", chime.calls)
	}
}

func TestMultiReturnsFirstErrorAndSkipsChime(t *testing.T) {
	boom := errors.New("boom")
	a := &mockSink{err: boom}
	b := &mockSink{}
	chime := &mockSink{}
	m := NewMulti(a, b).WithChime(chime)

	err := m.Notify(context.Background(), testEvent())

	if !errors.Is(err, boom) {
		t.Errorf("Notify() = %v, want the sink error", err)
	}
	if b.calls != 1 {
		t.Error("remaining sinks should still be attempted")
	}
	if chime.calls != 0 {
		t.Error("chime should not play on failed delivery")
	}
}

func TestMultiChimeFailureIsSwallowed(t *testing.T) {
	a := &mockSink{}
	chime := &mockSink{err: errors.New("no audio device")}
	m := NewMulti(a).WithChime(chime)

	if err := m.Notify(context.Background(), testEvent()); err != nil {
		t.Errorf("Notify() = %v, want nil despite chime failure", err)
	}
}

func TestSubject(t *testing.T) {
	got := Subject(testEvent())
	want := "Status Alert: Ann Lee is now GREEN"
	if got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

func TestBody(t *testing.T) {
	got := Body(testEvent())
	want := `Chat Status Alert
=================

Person: Ann Lee
Status: GREEN
Time: 2026-08-25 14:30:05 CEST

This is an automated notification.
Next email allowed after: 60 minutes`

	if got != want {
		t.Errorf("Body =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildSinkSelection(t *testing.T) {
	p := config.DefaultProfile()
	if m := Build(p, ""); len(m.sinks) != 0 {
		t.Errorf("empty profile built %d sinks, want 0", len(m.sinks))
	}

	p.SenderEmail = "watch@example.com"
	p.RecipientEmail = "me@example.com"
	if m := Build(p, ""); len(m.sinks) != 0 {
		t.Errorf("disabled mail profile built %d sinks, want 0", len(m.sinks))
	}

	p.EmailEnabled = true
	if m := Build(p, ""); len(m.sinks) != 1 {
		t.Errorf("mail profile built %d sinks, want 1", len(m.sinks))
	}

	p.TelegramToken = "123:abc"
	p.TelegramChatID = 42
	p.ChimeEnabled = true
	m := Build(p, "")
	if len(m.sinks) != 2 {
		t.Errorf("full profile built %d sinks, want 2", len(m.sinks))
	}
	if m.chime == nil {
		t.Error("chime enabled but not attached")
	}
}

func TestBuildPasswordOverride(t *testing.T) {
	p := config.DefaultProfile()
	p.EmailEnabled = true
	p.SenderEmail = "watch@example.com"
	p.RecipientEmail = "me@example.com"
	p.SenderPassword = "from-profile"

	m := Build(p, "from-env")
	mailer, ok := m.sinks[0].(*Mailer)
	if !ok {
		t.Fatal("first sink is not the mailer")
	}
	if mailer.password != "from-env" {
		t.Errorf("password = %q, want the environment override", mailer.password)
	}

	m = Build(p, "")
	mailer = m.sinks[0].(*Mailer)
	if mailer.password != "from-profile" {
		t.Errorf("password = %q, want the profile credential", mailer.password)
	}
}
