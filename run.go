package aguikit

import "fmt"

// ThreadKey identifies one conversation: a thread as seen by one agent.
type ThreadKey struct {
	AgentID  string
	ThreadID string
}

// String returns "agentID/threadID".
func (k ThreadKey) String() string {
	return fmt.Sprintf("%s/%s", k.AgentID, k.ThreadID)
}

// Run is one request/response cycle with an agent.
type Run struct {
	RunID    string `json:"runId"`
	ThreadID string `json:"threadId"`
	AgentID  string `json:"agentId,omitempty"`
	// MessageIDs lists the messages first created during this run, in order.
	MessageIDs []string `json:"messageIds,omitempty"`
	// State is the opaque payload of the last STATE_SNAPSHOT seen during the
	// run, with any later STATE_DELTA operations applied.
	State    any       `json:"state,omitempty"`
	Finished bool      `json:"finished"`
	Err      *RunError `json:"error,omitempty"`
}

// Clone returns a shallow copy of r with its own MessageIDs slice.
func (r *Run) Clone() *Run {
	c := *r
	if r.MessageIDs != nil {
		c.MessageIDs = make([]string, len(r.MessageIDs))
		copy(c.MessageIDs, r.MessageIDs)
	}
	return &c
}
