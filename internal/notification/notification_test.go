package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/estate-link/estate_link/internal/session"
)

func TestNoticeSkipsSilentResults(t *testing.T) {
	silent := []session.Result{
		{Op: session.OpRestore, Success: true, Message: "Welcome back"},
		{Op: session.OpRefreshProfile, Err: session.ErrSuperseded, Message: "stale"},
		{Op: session.OpLogout, Success: true},
	}
	for _, res := range silent {
		if msg, ok := Notice(res); ok {
			t.Fatalf("expected no notice for %+v, got %+v", res, msg)
		}
	}
}

func TestPresenterWritesNotices(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(NewWriterNotifier(&buf), "cli")

	ctx := context.Background()
	if err := p.Present(ctx, session.Result{Op: session.OpLogin, Success: true, Message: "Logged in successfully"}); err != nil {
		t.Fatalf("present: %v", err)
	}
	if err := p.Present(ctx, session.Result{Op: session.OpLogin, Err: session.ErrNetwork, Message: "Unable to reach the server"}); err != nil {
		t.Fatalf("present: %v", err)
	}

	want := "ok: Logged in successfully\nerror: Unable to reach the server\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, Message) error { return errors.New("down") }

func TestFanoutDeliversToAll(t *testing.T) {
	box := NewOutbox()
	err := Fanout{failingNotifier{}, box}.Send(context.Background(), Message{Kind: KindLoginOTP, Destination: "a@b.co", Body: "123456"})
	if err == nil {
		t.Fatal("expected first error")
	}
	msg, ok := box.Last("a@b.co", KindLoginOTP)
	if !ok || msg.Body != "123456" {
		t.Fatalf("outbox missed message: %+v", msg)
	}
	if _, ok := box.Last("a@b.co", KindPasswordReset); ok {
		t.Fatal("unexpected reset message")
	}
}
