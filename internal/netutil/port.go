package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// ErrPortInUse is returned by Reserve when another instance in this process
// already holds the port.
const ErrPortInUse = errdefs.Error("port already reserved by another instance")

// maxPortRetries bounds the number of kernel allocations tried before giving
// up on finding a port not already in the registry.
const maxPortRetries = 20

// PortRegistry tracks host ports held by running instances of this process.
// The kernel can hand out a port again as soon as the probing listener is
// closed, so the registry rejects ports it has already given out.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Reserve records a caller-chosen port. It fails with ErrPortInUse when the
// port is already held by another instance.
func (r *PortRegistry) Reserve(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("reserve port %d: out of range", port)
	}
	if !r.reserve(port) {
		return fmt.Errorf("reserve port %d: %w", port, ErrPortInUse)
	}
	return nil
}

// Release frees a port. Releasing a port that is not held is a no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Held reports whether port is currently reserved.
func (r *PortRegistry) Held(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[port]
	return ok
}

// Allocate asks the kernel for a free TCP port, skipping ports already in
// the registry, and reserves it. The caller must Release it once the
// container publishing it has been removed.
func (r *PortRegistry) Allocate() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		reserved := r.reserve(tcpAddr.Port)
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", tcpAddr.Port, "error", closeErr)
		}
		if reserved {
			return tcpAddr.Port, nil
		}
		r.log.Debug("port already in registry, retrying", "port", tcpAddr.Port)
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}
