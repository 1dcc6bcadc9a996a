package conversation

import (
	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// PendingQueue holds locally created messages awaiting server confirmation,
// in creation order.
type PendingQueue struct {
	clock          Clock
	conversationID string
	entries        []types.Message
	newID          func() (string, error)
}

func NewPendingQueue(clock Clock) *PendingQueue {
	return &PendingQueue{clock: clock, newID: core.NewTempID}
}

// Reset empties the queue and binds it to a conversation.
func (q *PendingQueue) Reset(conversationID string) {
	q.conversationID = conversationID
	q.entries = nil
}

// Enqueue adds a sending entry stamped with the current time.
func (q *PendingQueue) Enqueue(text, senderID string) (string, error) {
	id, err := q.newID()
	if err != nil {
		return "", err
	}
	q.entries = append(q.entries, types.Message{
		ID:             id,
		ConversationID: q.conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      q.clock.Now(),
		Status:         types.StatusSending,
		Optimistic:     true,
		ClientID:       id,
	})
	return id, nil
}

// MarkStatus moves an entry to failed, or removes it when confirmed.
// Unknown ids are ignored since the entry may already be reconciled.
func (q *PendingQueue) MarkStatus(tempID string, status types.Status) bool {
	idx := q.indexOf(tempID)
	if idx < 0 {
		return false
	}
	if status == types.StatusConfirmed {
		q.removeAt(idx)
		return true
	}
	if q.entries[idx].Status == status {
		return false
	}
	q.entries[idx].Status = status
	return true
}

// Remove deletes an entry; unknown ids are ignored.
func (q *PendingQueue) Remove(tempID string) bool {
	idx := q.indexOf(tempID)
	if idx < 0 {
		return false
	}
	q.removeAt(idx)
	return true
}

func (q *PendingQueue) Get(tempID string) (types.Message, bool) {
	idx := q.indexOf(tempID)
	if idx < 0 {
		return types.Message{}, false
	}
	return q.entries[idx], true
}

// Entries returns a copy of the queue in creation order.
func (q *PendingQueue) Entries() []types.Message {
	out := make([]types.Message, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *PendingQueue) Len() int { return len(q.entries) }

// Last returns the most recently created entry.
func (q *PendingQueue) Last() (types.Message, bool) {
	if len(q.entries) == 0 {
		return types.Message{}, false
	}
	return q.entries[len(q.entries)-1], true
}

func (q *PendingQueue) indexOf(tempID string) int {
	for i, entry := range q.entries {
		if entry.ID == tempID {
			return i
		}
	}
	return -1
}

func (q *PendingQueue) removeAt(idx int) {
	q.entries = append(q.entries[:idx:idx], q.entries[idx+1:]...)
}
