package template

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// Descriptor is the subset of a compose file dbenv inspects.
type Descriptor struct {
	Services map[string]Service `yaml:"services"`
	Networks map[string]Network `yaml:"networks"`
}

// Service is one compose service.
type Service struct {
	Image         string   `yaml:"image"`
	ContainerName string   `yaml:"container_name"`
	Ports         []string `yaml:"ports"`
}

// Network is one top-level compose network.
type Network struct {
	Name string `yaml:"name"`
}

// ParseDescriptor decodes the compose file at path. It fails when the file
// is not valid YAML or declares no services.
func ParseDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is inside a scratch directory
	if err != nil {
		return nil, errdefs.IOError("read descriptor", path, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errdefs.Configuration("parse descriptor %s: %v", path, err)
	}
	if len(d.Services) == 0 {
		return nil, errdefs.Configuration("descriptor %s declares no services", path)
	}
	return &d, nil
}

// ServiceNames returns the declared services in sorted order.
func (d *Descriptor) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContainerName returns the name the runtime gives service's container when
// started under project: its container_name if set, otherwise
// <project>-<service>-1.
func (d *Descriptor) ContainerName(project, service string) (string, error) {
	svc, ok := d.Services[service]
	if !ok {
		return "", errdefs.Configuration("descriptor has no service %q", service)
	}
	if svc.ContainerName != "" {
		return svc.ContainerName, nil
	}
	return fmt.Sprintf("%s-%s-1", project, service), nil
}

// HasNetwork reports whether the descriptor declares a network with the
// given runtime name.
func (d *Descriptor) HasNetwork(name string) bool {
	for key, n := range d.Networks {
		if n.Name == name || (n.Name == "" && key == name) {
			return true
		}
	}
	return false
}
