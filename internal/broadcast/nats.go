package broadcast

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the session id to form the subject.
const DefaultSubjectPrefix = "md2pdf.progress"

// natsConn is the subset of *nats.Conn used for publishing.
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes progress envelopes to <prefix>.<sessionID>.
type NATSPublisher struct {
	conn   natsConn
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// Compile-time interface check.
var _ Publisher = (*NATSPublisher)(nil)

// ConnectNATS dials url and returns a publisher that reconnects forever.
func ConnectNATS(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("md2pdf-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	p := NewNATSPublisher(nc, prefix, logger)
	p.nc = nc
	return p, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn natsConn, prefix string, logger *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject events for sessionID are published on.
func (p *NATSPublisher) Subject(sessionID string) string {
	return p.prefix + "." + subjectToken(sessionID)
}

// Publish sends ev without waiting for subscribers. Errors are logged.
func (p *NATSPublisher) Publish(sessionID string, ev Event) {
	msg, err := encode(ev)
	if err != nil {
		p.logger.Error("encoding progress event", "job_id", ev.JobID, "error", err)
		return
	}
	if err := p.conn.Publish(p.Subject(sessionID), msg); err != nil {
		p.logger.Warn("nats publish failed", "session_id", sessionID, "job_id", ev.JobID, "error", err)
	}
}

// Close drains the connection when the publisher opened it.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// subjectToken maps a session id to a single subject token. Separators,
// wildcards, whitespace, control bytes and '%' itself are percent-encoded,
// so distinct ids always get distinct subjects.
func subjectToken(sessionID string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(sessionID))
	for i := 0; i < len(sessionID); i++ {
		c := sessionID[i]
		switch {
		case c == '.', c == '*', c == '>', c == '%', c <= ' ', c == 0x7f:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
