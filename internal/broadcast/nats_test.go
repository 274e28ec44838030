package broadcast

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

type recordingConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return c.err
}

type recordingPublisher struct {
	sessions []string
}

func (p *recordingPublisher) Publish(sessionID string, _ Event) {
	p.sessions = append(p.sessions, sessionID)
}

// ---------------------------------------------------------------------------
// TestNATSPublisher - Subjects and Payload
// ---------------------------------------------------------------------------

func TestNATSPublisher_Subject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prefix    string
		sessionID string
		want      string
	}{
		{name: "default prefix", prefix: "", sessionID: "abc", want: "md2pdf.progress.abc"},
		{name: "custom prefix", prefix: "app.events", sessionID: "abc", want: "app.events.abc"},
		{name: "trailing dot trimmed", prefix: "app.", sessionID: "abc", want: "app.abc"},
		{name: "dots escaped", prefix: "p", sessionID: "a.b", want: "p.a%2Eb"},
		{name: "wildcards escaped", prefix: "p", sessionID: "*>", want: "p.%2A%3E"},
		{name: "whitespace escaped", prefix: "p", sessionID: "a b\t", want: "p.a%20b%09"},
		{name: "percent escaped", prefix: "p", sessionID: "a%2Eb", want: "p.a%252Eb"},
		{name: "underscore kept", prefix: "p", sessionID: "a_b-1", want: "p.a_b-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewNATSPublisher(&recordingConn{}, tt.prefix, nil)
			if got := p.Subject(tt.sessionID); got != tt.want {
				t.Errorf("Subject(%q) = %q, want %q", tt.sessionID, got, tt.want)
			}
		})
	}
}

func TestNATSPublisher_Subject_DistinctSessions(t *testing.T) {
	t.Parallel()

	p := NewNATSPublisher(&recordingConn{}, "", nil)
	ids := []string{"team.alice", "team_alice", "team%2Ealice", "team alice", "team*alice", "team>alice", "team\x7falice"}

	seen := make(map[string]string)
	for _, id := range ids {
		subject := p.Subject(id)
		if other, ok := seen[subject]; ok {
			t.Errorf("sessions %q and %q share subject %q", other, id, subject)
		}
		seen[subject] = id
		if strings.Count(subject, ".") != strings.Count(DefaultSubjectPrefix, ".")+1 {
			t.Errorf("Subject(%q) = %q, want exactly one token after the prefix", id, subject)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	t.Parallel()

	conn := &recordingConn{}
	p := NewNATSPublisher(conn, "", nil)

	p.Publish("s1", Event{JobID: "j", Stage: "failed", Progress: 0, Message: "Error: boom"})

	if len(conn.subjects) != 1 || conn.subjects[0] != "md2pdf.progress.s1" {
		t.Fatalf("subjects = %v", conn.subjects)
	}
	var env Envelope
	if err := json.Unmarshal(conn.payloads[0], &env); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if env.Type != EventType || env.Data.Message != "Error: boom" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestNATSPublisher_PublishErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	p := NewNATSPublisher(&recordingConn{err: errors.New("nats: connection closed")}, "", nil)
	p.Publish("s", Event{JobID: "j"})
	p.Close()
}

// ---------------------------------------------------------------------------
// TestMulti - Fan-out
// ---------------------------------------------------------------------------

func TestMulti_Publish(t *testing.T) {
	t.Parallel()

	a, b := &recordingPublisher{}, &recordingPublisher{}
	Multi{a, nil, b}.Publish("s", Event{})

	if len(a.sessions) != 1 || len(b.sessions) != 1 {
		t.Errorf("a=%v b=%v, want one event each", a.sessions, b.sessions)
	}
}
