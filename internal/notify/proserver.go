package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// ProServer sends text messages over a fresh TCP connection per notification.
type ProServer struct {
	// address is host:port of the receiver.
	address string
	// tag identifies this system in every message.
	tag string
	// timeout bounds dial and write together.
	timeout time.Duration
	// dialer opens connections.
	dialer net.Dialer
}

// NewProServer creates a dispatcher for the receiver at address.
func NewProServer(address, tag string, timeout time.Duration) *ProServer {
	return &ProServer{
		address: address,
		tag:     tag,
		timeout: timeout,
	}
}

// Notify implements Dispatcher.
func (p *ProServer) Notify(ctx context.Context, n domain.Notification) {
	message := n.Wire(p.tag)

	if err := p.send(ctx, message); err != nil {
		logger.ErrorKV(ctx, "Failed to send notification to ProServer",
			"address", p.address,
			"message", message,
			"error", err,
		)

		return
	}

	logger.InfoKV(ctx, "Sent notification to ProServer",
		"building", n.Building,
		"point_id", n.PointID,
		"kind", string(n.Kind),
	)
}

func (p *ProServer) send(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	defer func() {
		_ = conn.Close()
	}()

	deadline, _ := ctx.Deadline()
	if err = conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	if _, err = conn.Write([]byte(message)); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
