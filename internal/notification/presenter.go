package notification

import (
	"context"
	"errors"

	"github.com/estate-link/estate_link/internal/session"
)

// Presenter turns session results into user-facing notices.
type Presenter struct {
	notifier    Notifier
	destination string
}

// NewPresenter sends notices for destination through n.
func NewPresenter(n Notifier, destination string) *Presenter {
	return &Presenter{notifier: n, destination: destination}
}

// Notice maps a result to a message. Startup restoration and superseded
// responses are silent.
func Notice(res session.Result) (Message, bool) {
	if res.Op == session.OpRestore || errors.Is(res.Err, session.ErrSuperseded) {
		return Message{}, false
	}
	if res.Message == "" {
		return Message{}, false
	}
	kind := KindSuccess
	if !res.Success {
		kind = KindError
	}
	return Message{Kind: kind, Subject: string(res.Op), Body: res.Message}, true
}

// Present sends the notice for res, if any.
func (p *Presenter) Present(ctx context.Context, res session.Result) error {
	msg, ok := Notice(res)
	if !ok {
		return nil
	}
	msg.Destination = p.destination
	return p.notifier.Send(ctx, msg)
}
