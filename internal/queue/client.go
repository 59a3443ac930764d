package queue

import "context"

// Publisher hands stored-document messages to a queue backend. Delivery is
// at most once from the caller's side; there is no retry here.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
