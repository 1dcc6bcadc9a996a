package conversation

import (
	"sort"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// DefaultClusterGap splits clusters from the same sender.
const DefaultClusterGap = 5 * time.Minute

// GroupOptions tune Group.
type GroupOptions struct {
	// Location decides calendar dates for separators. Defaults to time.Local.
	Location   *time.Location
	ClusterGap time.Duration
	// SelfID suppresses avatars on the local user's messages.
	SelfID string
}

// Merge combines confirmed and pending messages into one sequence ordered by
// CreatedAt. Ties keep confirmed before pending and original order within each.
func Merge(confirmed, pending []types.Message) []types.Message {
	merged := make([]types.Message, 0, len(confirmed)+len(pending))
	merged = append(merged, confirmed...)
	merged = append(merged, pending...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}

// Group builds the display rows for a conversation: a date separator before
// the first message of each local calendar day, and cluster flags on every
// message. It is a pure function of its inputs.
func Group(confirmed, pending []types.Message, opts GroupOptions) []types.Group {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	gap := opts.ClusterGap
	if gap <= 0 {
		gap = DefaultClusterGap
	}

	msgs := Merge(confirmed, pending)
	if len(msgs) == 0 {
		return nil
	}

	days := make([]time.Time, len(msgs))
	for i, msg := range msgs {
		days[i] = localDate(msg.CreatedAt, loc)
	}

	breakBetween := func(prev, next int) bool {
		if msgs[prev].SenderID != msgs[next].SenderID {
			return true
		}
		if !days[prev].Equal(days[next]) {
			return true
		}
		return msgs[next].CreatedAt.Sub(msgs[prev].CreatedAt) > gap
	}

	groups := make([]types.Group, 0, len(msgs)+4)
	for i, msg := range msgs {
		if i == 0 || !days[i].Equal(days[i-1]) {
			groups = append(groups, types.Group{Kind: types.GroupDateSeparator, Date: days[i]})
		}
		first := i == 0 || breakBetween(i-1, i)
		last := i == len(msgs)-1 || breakBetween(i, i+1)
		groups = append(groups, types.Group{
			Kind:           types.GroupMessage,
			Date:           days[i],
			Message:        msg,
			FirstInCluster: first,
			LastInCluster:  last,
			ShowAvatar:     first && msg.SenderID != opts.SelfID,
		})
	}
	return groups
}

func localDate(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
