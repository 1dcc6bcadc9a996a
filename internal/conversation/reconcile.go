package conversation

import (
	"time"

	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// DefaultMatchWindow bounds the clock skew tolerated between a pending
// entry and the confirmed message that retires it.
const DefaultMatchWindow = 5 * time.Minute

// Retirer is told about a pending entry just before it leaves the queue,
// so its failure timer can be cancelled while it still exists.
type Retirer interface {
	Retire(tempID string)
}

// Match pairs a retired pending entry with its confirmed message.
type Match struct {
	TempID      string
	ConfirmedID string
}

// Reconciler retires pending entries that have shown up in confirmed history.
// A confirmed message retires at most one entry, and the ids it consumed are
// remembered so repeated runs over the same history change nothing.
type Reconciler struct {
	window   time.Duration
	consumed map[string]struct{}
	log      *zap.Logger
}

func NewReconciler(window time.Duration, log *zap.Logger) *Reconciler {
	if window <= 0 {
		window = DefaultMatchWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		window:   window,
		consumed: make(map[string]struct{}),
		log:      log,
	}
}

// Reset forgets consumed ids, used on conversation switch.
func (r *Reconciler) Reset() {
	r.consumed = make(map[string]struct{})
}

// Reconcile matches every pending entry, sending or failed, against
// confirmed. An echoed client id wins over the sender/text/time heuristic.
func (r *Reconciler) Reconcile(confirmed []types.Message, queue *PendingQueue, retirer Retirer) []Match {
	r.prune(confirmed)

	pending := queue.Entries()
	if len(pending) == 0 {
		return nil
	}

	byClientID := make(map[string]int)
	for i, msg := range confirmed {
		if msg.ClientID == "" {
			continue
		}
		if _, used := r.consumed[msg.ID]; used {
			continue
		}
		byClientID[msg.ClientID] = i
	}

	var matches []Match
	retire := func(entry types.Message, msg types.Message, how string) {
		r.consumed[msg.ID] = struct{}{}
		if retirer != nil {
			retirer.Retire(entry.ID)
		}
		queue.Remove(entry.ID)
		matches = append(matches, Match{TempID: entry.ID, ConfirmedID: msg.ID})
		r.log.Debug("pending message confirmed",
			zap.String("temp_id", entry.ID),
			zap.String("message_id", msg.ID),
			zap.String("match", how),
			zap.String("status", string(entry.Status)))
	}

	var unmatched []types.Message
	for _, entry := range pending {
		if idx, ok := byClientID[entry.ID]; ok {
			retire(entry, confirmed[idx], "client_id")
			continue
		}
		unmatched = append(unmatched, entry)
	}

	for _, entry := range unmatched {
		want := core.NormalizeText(entry.Text)
		for _, msg := range confirmed {
			if msg.ClientID != "" {
				continue
			}
			if _, used := r.consumed[msg.ID]; used {
				continue
			}
			if !r.matches(entry, msg, want) {
				continue
			}
			retire(entry, msg, "heuristic")
			break
		}
	}
	return matches
}

func (r *Reconciler) matches(entry, msg types.Message, normalized string) bool {
	if msg.SenderID != entry.SenderID {
		return false
	}
	if core.NormalizeText(msg.Text) != normalized {
		return false
	}
	delta := msg.CreatedAt.Sub(entry.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < r.window
}

// prune drops consumed ids no longer present in history.
func (r *Reconciler) prune(confirmed []types.Message) {
	if len(r.consumed) == 0 {
		return
	}
	present := make(map[string]struct{}, len(confirmed))
	for _, msg := range confirmed {
		present[msg.ID] = struct{}{}
	}
	for id := range r.consumed {
		if _, ok := present[id]; !ok {
			delete(r.consumed, id)
		}
	}
}
