package dbclient

import (
	"context"

	"github.com/giantswarm/dbenv/internal/backend"
	"github.com/giantswarm/dbenv/internal/errdefs"
)

// ErrNotConnected is returned by Reset before a successful Connect.
const ErrNotConnected = errdefs.Error("client is not connected")

// Client connects to one database server at a time.
// Implementations are safe for concurrent use.
type Client interface {
	// Connect opens a connection to dsn and verifies it with a round trip.
	// An existing connection is closed first.
	Connect(ctx context.Context, dsn string) error
	// Disconnect closes the connection. It is a no-op when not connected.
	Disconnect(ctx context.Context) error
	// Reset drops every object in database and leaves it empty and usable.
	Reset(ctx context.Context, database string) error
}

// New returns the client for kind.
func New(kind backend.Kind) (Client, error) {
	switch kind {
	case backend.MongoDB:
		return &mongoClient{}, nil
	case backend.PostgreSQL:
		return newPostgresClient(), nil
	case backend.MySQL:
		return newMySQLClient(), nil
	default:
		return nil, errdefs.Configuration("unsupported backend kind %q", kind.String())
	}
}
