package dbenv

import "github.com/giantswarm/dbenv/internal/backend"

// Kind selects the database engine of an Environment.
//
// Kind is a type alias (not a named type) so that the underlying
// [backend.Kind] methods are part of the public API:
//
//   - IsValid reports whether the value is a supported kind.
//   - String returns the kind name (implements [fmt.Stringer]).
//   - DefaultPort returns the port the database listens on inside its
//     container.
//
// Audit: new methods added to backend.Kind automatically become part of the
// public API through this alias.
type Kind = backend.Kind

const (
	// MongoDB runs a document store. The user is created in the configured
	// database by an init script mounted into the container.
	MongoDB = backend.MongoDB

	// PostgreSQL runs a relational database. Connection strings disable TLS.
	PostgreSQL = backend.PostgreSQL

	// MySQL runs a relational database. The user must not be "root", which
	// the image creates on its own.
	MySQL = backend.MySQL
)

// Kinds returns every supported kind.
func Kinds() []Kind {
	return backend.Kinds()
}

// Credentials are the user, password and database a container is
// initialized with.
type Credentials = backend.Credentials
