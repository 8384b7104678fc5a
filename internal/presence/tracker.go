// Package presence tracks how many live connections each user holds and
// reports the online and offline transitions.
package presence

import "context"

// Tracker counts connections per user. Connect reports true only on the
// 0 -> 1 transition and Disconnect only on the 1 -> 0 transition, however
// many connections of the same user race each other.
type Tracker interface {
	Connect(ctx context.Context, userID int64) (bool, error)
	Disconnect(ctx context.Context, userID int64) (bool, error)
	OnlineUserIDs(ctx context.Context) ([]int64, error)
}
