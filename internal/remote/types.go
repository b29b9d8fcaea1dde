package remote

import "encoding/json"

// MonadStatus is the daemon's reported status.
type MonadStatus struct {
	Active  bool    `json:"active"`
	Version *string `json:"version"`
}

// Identity is one identity known to the daemon.
type Identity struct {
	Username string  `json:"username"`
	Path     *string `json:"path"`
}

// PublicInfo is the public part of a remote identity.
type PublicInfo struct {
	Username  string `json:"username"`
	PublicKey string `json:"publicKey"`
}

// Entry is one verb record returned by Get.
type Entry struct {
	Verb      string `json:"verb"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// StatusState is the client's view of the daemon.
type StatusState struct {
	Active  bool
	Error   bool
	Loading bool
	Data    *MonadStatus
}

// State is the locally cached view handed to subscribers.
type State struct {
	Status     StatusState
	ListUs     []Identity
	LastUpdate json.RawMessage
}

func (s State) clone() State {
	out := s
	if s.Status.Data != nil {
		d := *s.Status.Data
		out.Status.Data = &d
	}
	out.ListUs = append([]Identity(nil), s.ListUs...)
	out.LastUpdate = append(json.RawMessage(nil), s.LastUpdate...)
	return out
}

// Message is a push channel frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Push message types.
const (
	MessageStatus = "status"
	MessageListUs = "listUs"
	MessageUpdate = "update"
)

// MutateRequest holds the arguments shared by every verb mutation.
type MutateRequest struct {
	Username  string
	Password  string
	Key       string
	Value     string
	ContextID *string
}

// Verbs are the mutations the daemon accepts.
var Verbs = []string{"be", "have", "do", "at", "relate", "react", "communicate"}

// IsVerb reports whether v is one of Verbs.
func IsVerb(v string) bool {
	for _, verb := range Verbs {
		if v == verb {
			return true
		}
	}
	return false
}
