package contracts

import "context"

// Registry manages physical client connections and their channel
// subscriptions. Access control happens before Subscribe is called; the
// registry itself never re-checks it.
type Registry interface {
	// Register adds a session to the local node.
	Register(c Client)
	// Unregister drops the session and every subscription it holds.
	Unregister(c Client)
	// Subscribe joins the session to a named channel.
	Subscribe(c Client, channel string) error
	// Unsubscribe removes one channel subscription.
	Unsubscribe(c Client, channel string)
}

// Client is the minimal surface the registry needs from a connection.
type Client interface {
	SessionID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
