package backend

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Kind identifies a database backend.
type Kind string

const (
	// MongoDB is the document-store backend.
	MongoDB Kind = "mongodb"
	// PostgreSQL is the first relational backend.
	PostgreSQL Kind = "postgresql"
	// MySQL is the second relational backend.
	MySQL Kind = "mysql"
)

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{MongoDB, PostgreSQL, MySQL}
}

// IsValid reports whether k is a supported kind.
func (k Kind) IsValid() bool {
	switch k {
	case MongoDB, PostgreSQL, MySQL:
		return true
	default:
		return false
	}
}

// String returns the kind tag.
func (k Kind) String() string { return string(k) }

// Service returns the compose service name used by the kind's descriptor.
// Compose names the container <project>-<service>-1.
func (k Kind) Service() string {
	switch k {
	case MongoDB:
		return "mongodb-dbenv"
	case PostgreSQL:
		return "postgres-dbenv"
	case MySQL:
		return "mysql-dbenv"
	default:
		return ""
	}
}

// ContainerSuffix returns the suffix compose appends to the project name
// when naming the kind's container.
func (k Kind) ContainerSuffix() string {
	if s := k.Service(); s != "" {
		return "-" + s + "-1"
	}
	return ""
}

// DefaultPort returns the port the database listens on inside its container.
func (k Kind) DefaultPort() int {
	switch k {
	case MongoDB:
		return 27017
	case PostgreSQL:
		return 5432
	case MySQL:
		return 3306
	default:
		return 0
	}
}

// DescriptorTemplate returns the file name of the kind's compose template.
func (k Kind) DescriptorTemplate() string {
	return "docker-compose." + string(k) + ".yml"
}

// InitScriptTemplate returns the file name of the kind's init script
// template, or "" when the kind has none.
func (k Kind) InitScriptTemplate() string {
	if k == MongoDB {
		return "init-mongo.js"
	}
	return ""
}

// scheme returns the URL scheme of the kind's connection string.
func (k Kind) scheme() string {
	switch k {
	case MongoDB:
		return "mongodb"
	case PostgreSQL:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return ""
	}
}

// Credentials are the user, password and database name configured in the
// container at startup.
type Credentials struct {
	User     string
	Password string
	Database string
}

// ConnectionString builds the URL clients use to reach the database on
// host:port. Credentials are escaped.
func (k Kind) ConnectionString(host string, port int, creds Credentials) (string, error) {
	if !k.IsValid() {
		return "", fmt.Errorf("unsupported backend kind %q", string(k))
	}
	u := url.URL{
		Scheme: k.scheme(),
		User:   url.UserPassword(creds.User, creds.Password),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + creds.Database,
	}
	if k == PostgreSQL {
		// The container listens without TLS.
		u.RawQuery = "sslmode=disable"
	}
	return u.String(), nil
}
