// Package broadcast pushes job progress to the session that submitted the job.
//
// Delivery is best effort. Publishers never block the rendering worker and
// never report errors to it: a client that misses an event recovers by
// polling the job status.
package broadcast

import "encoding/json"

// EventType names the progress envelope on every transport.
const EventType = "job-progress"

// Event is one progress notification for a job.
type Event struct {
	JobID    string `json:"jobId"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

// Envelope wraps an Event for the wire: {"type":"job-progress","data":{...}}.
type Envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// Publisher delivers events to the subscribers of a session.
// Publish must not block and must be safe for concurrent use.
type Publisher interface {
	Publish(sessionID string, ev Event)
}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

// Publish forwards ev to every publisher.
func (m Multi) Publish(sessionID string, ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(sessionID, ev)
		}
	}
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(Envelope{Type: EventType, Data: ev})
}
