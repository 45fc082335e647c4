package reducer

import (
	"slices"

	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/jsonpartial"
)

// Reduce applies one event to s and returns the resulting snapshot.
//
// Text content follows one discipline for every text event: a "delta"
// field appends, a "content" field replaces. Content events for a message
// that already saw TEXT_MESSAGE_END are ignored, and END for an unknown
// message is a no-op.
//
// Events that reference an unknown tool call create it, so out-of-order
// delivery never loses data. Tool call status only moves forward.
//
// A nil s is treated as New(ai.ThreadKey{}).
func Reduce(s *Snapshot, e event.Event) *Snapshot {
	if s == nil {
		s = New(ai.ThreadKey{})
	}
	t := &txn{prev: s}

	switch e.Type {
	case event.RunStarted:
		t.runStarted(e)
	case event.RunFinished:
		t.runFinished(e)
	case event.RunError:
		t.runError(e)

	case event.TextMessageStart:
		t.textStart(e)
	case event.TextMessageContent, event.TextMessageChunk:
		t.textContent(e)
	case event.TextMessageEnd:
		t.textEnd(e)

	case event.ToolCallStart, event.ToolCallArgs, event.ToolCallChunk:
		t.toolArgs(e)
	case event.ToolCallEnd:
		t.toolEnd(e)
	case event.ToolCallExecuting:
		t.toolExecuting(e)
	case event.ToolCallResult:
		t.toolResult(e)

	case event.StateSnapshot:
		t.setState(e.Snapshot)
	case event.StateDelta:
		t.stateDelta(e)
	case event.MessagesSnapshot:
		t.messagesSnapshot(e)
	case event.ActivitySnapshot:
		t.activitySnapshot(e)
	case event.ActivityDelta:
		t.activityDelta(e)
	}

	if t.next == nil {
		return s
	}
	t.next.Version++
	return t.next
}

// txn accumulates copy-on-write changes to prev. Slices and index maps are
// copied at most once, on first write.
type txn struct {
	prev *Snapshot
	next *Snapshot

	msgsCopied  bool
	callsCopied bool
	runsCopied  bool
}

// cur returns the snapshot reads should see.
func (t *txn) cur() *Snapshot {
	if t.next != nil {
		return t.next
	}
	return t.prev
}

// w returns the writable next snapshot.
func (t *txn) w() *Snapshot {
	if t.next == nil {
		n := *t.prev
		t.next = &n
	}
	return t.next
}

func (t *txn) putMessage(m *ai.Message) {
	s := t.w()
	if !t.msgsCopied {
		s.Messages = slices.Clone(s.Messages)
		t.msgsCopied = true
	}
	if i, ok := s.msgIndex[m.ID]; ok {
		s.Messages[i] = m
		return
	}
	s.msgIndex = cloneIndex(s.msgIndex)
	s.msgIndex[m.ID] = len(s.Messages)
	s.Messages = append(s.Messages, m)
	t.recordRunMessage(m.ID)
}

func (t *txn) putCall(c *ai.ToolCall) {
	s := t.w()
	if !t.callsCopied {
		s.ToolCalls = slices.Clone(s.ToolCalls)
		t.callsCopied = true
	}
	if i, ok := s.callIndex[c.ID]; ok {
		s.ToolCalls[i] = c
		return
	}
	s.callIndex = cloneIndex(s.callIndex)
	s.callIndex[c.ID] = len(s.ToolCalls)
	s.ToolCalls = append(s.ToolCalls, c)
}

func (t *txn) putRun(r *ai.Run) {
	s := t.w()
	if !t.runsCopied {
		s.Runs = slices.Clone(s.Runs)
		t.runsCopied = true
	}
	if i, ok := s.runIndex[r.RunID]; ok {
		s.Runs[i] = r
		return
	}
	s.runIndex = cloneIndex(s.runIndex)
	s.runIndex[r.RunID] = len(s.Runs)
	s.Runs = append(s.Runs, r)
}

// recordRunMessage appends a newly created message id to the current run.
func (t *txn) recordRunMessage(id string) {
	run, ok := t.cur().CurrentRun()
	if !ok || run.Finished {
		return
	}
	r := run.Clone()
	r.MessageIDs = append(r.MessageIDs, id)
	t.putRun(r)
}

func cloneIndex(m map[string]int) map[string]int {
	c := make(map[string]int, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (t *txn) runStarted(e event.Event) {
	s := t.cur()
	if run, ok := s.Run(e.RunID); ok && s.CurrentRunID == e.RunID && s.Running && !run.Finished {
		return
	}
	threadID := e.ThreadID
	if threadID == "" {
		threadID = s.Key.ThreadID
	}
	if run, ok := s.Run(e.RunID); ok {
		r := run.Clone()
		r.Finished = false
		r.Err = nil
		t.putRun(r)
	} else {
		t.putRun(&ai.Run{RunID: e.RunID, ThreadID: threadID, AgentID: s.Key.AgentID})
	}
	n := t.w()
	n.CurrentRunID = e.RunID
	n.Running = true
	n.Err = nil
	n.StopFollowUp = false
	n.openMessageID = ""
	n.openToolCallID = ""
}

// closingRun returns the run a RUN_FINISHED/RUN_ERROR event refers to.
func (t *txn) closingRun(e event.Event) (*ai.Run, bool) {
	s := t.cur()
	if e.RunID != "" {
		if r, ok := s.Run(e.RunID); ok {
			return r, true
		}
	}
	return s.CurrentRun()
}

func (t *txn) runFinished(e event.Event) {
	run, ok := t.closingRun(e)
	if !t.cur().Running && (!ok || run.Finished) {
		return
	}
	if ok && !run.Finished {
		r := run.Clone()
		r.Finished = true
		t.putRun(r)
	}
	t.w().Running = false
}

func (t *txn) runError(e event.Event) {
	re := &ai.RunError{Message: e.Message, Code: e.Code}
	if run, ok := t.closingRun(e); ok {
		re.RunID = run.RunID
		r := run.Clone()
		r.Finished = true
		r.Err = re
		t.putRun(r)
	}
	n := t.w()
	n.Running = false
	n.Err = re
}

func (t *txn) textStart(e event.Event) {
	if e.MessageID == "" {
		return
	}
	if _, ok := t.cur().Message(e.MessageID); !ok {
		t.putMessage(&ai.Message{ID: e.MessageID, Role: ai.ParseRole(e.Role)})
	}
	if t.cur().openMessageID != e.MessageID {
		t.w().openMessageID = e.MessageID
	}
}

func (t *txn) textContent(e event.Event) {
	id := e.MessageID
	if id == "" {
		id = t.cur().openMessageID
	}
	if id == "" {
		return
	}

	m, ok := t.cur().Message(id)
	switch {
	case !ok:
		m = &ai.Message{ID: id, Role: ai.ParseRole(e.Role)}
	case m.Finished:
		return
	default:
		m = m.Clone()
	}

	switch {
	case e.Content != nil:
		m.Content = *e.Content
	case e.Delta != "":
		m.Content += e.Delta
	case ok:
		// Neither field: nothing to apply to an existing message.
		return
	}
	t.putMessage(m)
	if t.cur().openMessageID != id {
		t.w().openMessageID = id
	}
}

func (t *txn) textEnd(e event.Event) {
	id := e.MessageID
	if id == "" {
		id = t.cur().openMessageID
	}
	m, ok := t.cur().Message(id)
	if !ok || m.Finished {
		return
	}
	m = m.Clone()
	m.Finished = true
	t.putMessage(m)
	if t.cur().openMessageID == id {
		t.w().openMessageID = ""
	}
}

// ensureCall returns a writable copy of the call, creating it on first
// reference. created reports whether the call is new.
func (t *txn) ensureCall(id string, e event.Event) (c *ai.ToolCall, created bool) {
	if existing, ok := t.cur().ToolCall(id); ok {
		return existing.Clone(), false
	}
	return &ai.ToolCall{
		ID:              id,
		Name:            e.ToolCallName,
		ParentMessageID: e.ParentMessageID,
		RunID:           t.cur().CurrentRunID,
		Status:          ai.StatusInProgress,
	}, true
}

func (t *txn) toolArgs(e event.Event) {
	id := e.ToolCallID
	if id == "" {
		id = t.cur().openToolCallID
	}
	if id == "" {
		return
	}

	c, created := t.ensureCall(id, e)
	if !created && (c.Status == ai.StatusComplete || c.ArgsDone) {
		return
	}

	changed := created
	if c.Name == "" && e.ToolCallName != "" {
		c.Name = e.ToolCallName
		changed = true
	}
	if c.ParentMessageID == "" && e.ParentMessageID != "" {
		c.ParentMessageID = e.ParentMessageID
		changed = true
	}
	if e.Delta != "" {
		c.ArgsRaw += e.Delta
		reparse(c)
		changed = true
	}
	if !changed {
		return
	}

	t.attachToParent(c)
	t.putCall(c)
	if t.cur().openToolCallID != id {
		t.w().openToolCallID = id
	}
}

// reparse recomputes Args from the full buffer, refusing a parse that would
// be less complete than the one already published.
func reparse(c *ai.ToolCall) {
	parsed := jsonpartial.Parse(c.ArgsRaw)
	if jsonpartial.Weight(parsed) >= jsonpartial.Weight(c.Args) {
		c.Args = parsed
	}
}

// attachToParent records c on its parent assistant message. A call with no
// parent id is attached to the open assistant message, or to a new assistant
// message keyed by the call id.
func (t *txn) attachToParent(c *ai.ToolCall) {
	if c.ParentMessageID == "" {
		s := t.cur()
		if m, ok := s.Message(s.openMessageID); ok && m.Role == ai.RoleAssistant {
			c.ParentMessageID = m.ID
		} else {
			c.ParentMessageID = c.ID
		}
	}

	parent, ok := t.cur().Message(c.ParentMessageID)
	if !ok {
		parent = &ai.Message{ID: c.ParentMessageID, Role: ai.RoleAssistant}
	} else {
		for i, ref := range parent.ToolCalls {
			if ref.ID != c.ID {
				continue
			}
			if ref.Name == c.Name {
				return
			}
			parent = parent.Clone()
			parent.ToolCalls[i].Name = c.Name
			t.putMessage(parent)
			return
		}
		parent = parent.Clone()
	}
	parent.ToolCalls = append(parent.ToolCalls, ai.ToolCallRef{ID: c.ID, Name: c.Name})
	t.putMessage(parent)
}

func (t *txn) toolEnd(e event.Event) {
	id := e.ToolCallID
	if id == "" {
		id = t.cur().openToolCallID
	}
	if id == "" {
		return
	}
	c, created := t.ensureCall(id, e)
	if !created && (c.ArgsDone || c.Status == ai.StatusComplete) {
		return
	}
	c.ArgsDone = true
	reparse(c)
	if created {
		t.attachToParent(c)
	}
	t.putCall(c)
	if t.cur().openToolCallID == id {
		t.w().openToolCallID = ""
	}
}

func (t *txn) toolExecuting(e event.Event) {
	existing, ok := t.cur().ToolCall(e.ToolCallID)
	if !ok || existing.Status >= ai.StatusExecuting {
		return
	}
	c := existing.Clone()
	c.Status = c.Status.Advance(ai.StatusExecuting)
	t.putCall(c)
}

func (t *txn) toolResult(e event.Event) {
	if e.ToolCallID == "" {
		return
	}
	c, created := t.ensureCall(e.ToolCallID, e)
	if !created && c.Status == ai.StatusComplete {
		return
	}

	content := ""
	if e.Content != nil {
		content = *e.Content
	}
	c.Status = c.Status.Advance(ai.StatusComplete)
	c.Result = content
	c.IsError = e.IsError
	if created {
		t.attachToParent(c)
	}
	t.putCall(c)

	msgID := e.MessageID
	if msgID == "" {
		msgID = "result-" + e.ToolCallID
	}
	var m *ai.Message
	if existing, ok := t.cur().Message(msgID); ok {
		m = existing.Clone()
	} else {
		m = &ai.Message{ID: msgID}
	}
	m.Role = ai.RoleTool
	m.ToolCallID = e.ToolCallID
	m.Content = content
	m.Finished = true
	t.putMessage(m)

	if e.FollowUp != nil && !*e.FollowUp {
		t.w().StopFollowUp = true
	}
}

func (t *txn) setState(state any) {
	n := t.w()
	n.State = state
	if run, ok := n.CurrentRun(); ok {
		r := run.Clone()
		r.State = state
		t.putRun(r)
	}
}

func (t *txn) stateDelta(e event.Event) {
	if len(e.Patches) == 0 {
		return
	}
	state, err := event.ApplyPatches(t.cur().State, e.Patches)
	if err != nil {
		// A delta that does not apply leaves state as it was; the next
		// STATE_SNAPSHOT resynchronizes.
		return
	}
	t.setState(state)
}

func (t *txn) activitySnapshot(e event.Event) {
	if e.MessageID == "" {
		return
	}
	var m *ai.Message
	if existing, ok := t.cur().Message(e.MessageID); ok {
		m = existing.Clone()
	} else {
		m = &ai.Message{ID: e.MessageID}
	}
	m.Role = ai.RoleActivity
	m.ActivityType = e.ActivityType
	m.Structured = e.Activity
	t.putMessage(m)
}

func (t *txn) activityDelta(e event.Event) {
	existing, ok := t.cur().Message(e.MessageID)
	if !ok || existing.Role != ai.RoleActivity || len(e.Patches) == 0 {
		return
	}
	content, err := event.ApplyPatches(existing.Structured, e.Patches)
	if err != nil {
		return
	}
	m := existing.Clone()
	m.Structured = content
	t.putMessage(m)
}

// messagesSnapshot replaces the transcript. Messages equal to the ones
// already held keep their pointers. Tool calls referenced by the snapshot
// are rebuilt as restored history and completed by their tool messages.
func (t *txn) messagesSnapshot(e event.Event) {
	s := t.cur()
	msgs := make([]*ai.Message, 0, len(e.Messages))
	index := make(map[string]int, len(e.Messages))
	changed := len(e.Messages) != len(s.Messages)

	for i, wm := range e.Messages {
		if wm.ID == "" {
			continue
		}
		m := fromWire(wm)
		if old, ok := s.Message(wm.ID); ok && sameMessage(old, m) {
			m = old
		}
		if i >= len(s.Messages) || s.Messages[i] != m {
			changed = true
		}
		if j, dup := index[m.ID]; dup {
			msgs[j] = m
			continue
		}
		index[m.ID] = len(msgs)
		msgs = append(msgs, m)
	}

	if changed {
		n := t.w()
		n.Messages = msgs
		n.msgIndex = index
		n.openMessageID = ""
		t.msgsCopied = true
	}

	for _, wm := range e.Messages {
		for _, tc := range wm.ToolCalls {
			t.restoreCall(wm.ID, tc)
		}
	}
	for _, wm := range e.Messages {
		if ai.ParseRole(wm.Role) == ai.RoleTool && wm.ToolCallID != "" {
			t.completeRestored(wm.ToolCallID, wm.Content)
		}
	}
}

func (t *txn) restoreCall(parentID string, tc event.ToolCall) {
	if tc.ID == "" {
		return
	}
	if _, ok := t.cur().ToolCall(tc.ID); ok {
		return
	}
	t.putCall(&ai.ToolCall{
		ID:              tc.ID,
		Name:            tc.Name,
		ParentMessageID: parentID,
		ArgsRaw:         tc.Arguments,
		Args:            jsonpartial.Parse(tc.Arguments),
		ArgsDone:        true,
		Status:          ai.StatusInProgress,
		Restored:        true,
	})
}

func (t *txn) completeRestored(callID, content string) {
	existing, ok := t.cur().ToolCall(callID)
	if !ok || existing.Status == ai.StatusComplete {
		return
	}
	c := existing.Clone()
	c.Status = ai.StatusComplete
	c.Result = content
	t.putCall(c)
}

func fromWire(wm event.Message) *ai.Message {
	m := &ai.Message{
		ID:         wm.ID,
		Role:       ai.ParseRole(wm.Role),
		Content:    wm.Content,
		Structured: wm.Structured,
		Name:       wm.Name,
		ToolCallID: wm.ToolCallID,
		Finished:   true,
	}
	for _, tc := range wm.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, ai.ToolCallRef{ID: tc.ID, Name: tc.Name})
	}
	return m
}

// sameMessage compares the fields a snapshot can carry. Structured payloads
// are not compared, so a message with structured content is always replaced.
func sameMessage(a, b *ai.Message) bool {
	return a.ID == b.ID &&
		a.Role == b.Role &&
		a.Content == b.Content &&
		a.Name == b.Name &&
		a.ToolCallID == b.ToolCallID &&
		a.Finished == b.Finished &&
		a.Structured == nil && b.Structured == nil &&
		slices.Equal(a.ToolCalls, b.ToolCalls)
}
