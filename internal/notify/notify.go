package notify

import (
	"context"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

// Dispatcher delivers one notification, best effort.
type Dispatcher interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Multi fans a notification out to every dispatcher in order.
type Multi []Dispatcher

// Notify implements Dispatcher.
func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, d := range m {
		if d != nil {
			d.Notify(ctx, n)
		}
	}
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Dispatcher.
func (Discard) Notify(context.Context, domain.Notification) {}
