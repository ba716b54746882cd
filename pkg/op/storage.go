package op

import (
	"context"
	"errors"
)

var ErrClientNotFound = errors.New("client not found")

// ClientStore persists accepted clients.
// Save assigns and returns the client id, unless client.ID is already set.
type ClientStore interface {
	Save(ctx context.Context, client *Client) (string, error)
}

// ClientReader is implemented by stores that can read clients back.
// GetClient returns an error wrapping [ErrClientNotFound] for unknown ids.
type ClientReader interface {
	GetClient(ctx context.Context, clientID string) (*Client, error)
}
