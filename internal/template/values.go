package template

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/giantswarm/dbenv/internal/backend"
)

// Placeholders recognized in templates.
const (
	PlaceholderUser     = "${DB_USER}"
	PlaceholderPassword = "${DB_PASSWORD}"
	PlaceholderDatabase = "${DB_NAME}"
	PlaceholderPort     = "${DB_PORT}"
	PlaceholderNetwork  = "${NETWORK_NAME}"
)

// Values are substituted into templates.
type Values struct {
	Credentials backend.Credentials
	Port        int
	NetworkName string
}

func (v Values) replacer() *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderUser, v.Credentials.User,
		PlaceholderPassword, v.Credentials.Password,
		PlaceholderDatabase, v.Credentials.Database,
		PlaceholderPort, strconv.Itoa(v.Port),
		PlaceholderNetwork, v.NetworkName,
	)
}

// Render substitutes every known placeholder in content.
func Render(content string, v Values) string {
	return v.replacer().Replace(content)
}

// NewNetworkName returns a fresh network name for kind, unique per call.
func NewNetworkName(kind backend.Kind) string {
	return "dbenv-" + kind.String() + "-" + uuid.NewString()
}
