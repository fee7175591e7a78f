package registry

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

type (
	// ServiceEndpoint describes one external service available to
	// service-call nodes: configuration data, not editor logic
	ServiceEndpoint struct {
		Name        string `json:"name"`
		BaseURL     string `json:"base_url"`
		Description string `json:"description,omitempty"`
		AuthKind    string `json:"auth_kind,omitempty"`
	}

	// ServiceCatalog is the read-only endpoint catalog queried when
	// inserting service-call nodes
	ServiceCatalog struct {
		services map[string]*ServiceEndpoint
		names    []string
	}
)

var ErrServiceNotFound = errors.New("service not found")

// NewDefaultServiceCatalog builds a catalog from the embedded default
// service list
func NewDefaultServiceCatalog() (*ServiceCatalog, error) {
	return NewServiceCatalog(defaultServices)
}

// NewServiceCatalog parses catalog JSON of the form
// {"services": [{"name": ..., "base_url": ...}]}
func NewServiceCatalog(catalog string) (*ServiceCatalog, error) {
	c := &ServiceCatalog{
		services: map[string]*ServiceEndpoint{},
	}

	var outer error
	gjson.Get(catalog, "services").ForEach(
		func(_, entry gjson.Result) bool {
			svc := &ServiceEndpoint{
				Name:        entry.Get("name").String(),
				BaseURL:     entry.Get("base_url").String(),
				Description: entry.Get("description").String(),
				AuthKind:    entry.Get("auth_kind").String(),
			}
			if svc.Name == "" || svc.BaseURL == "" {
				outer = fmt.Errorf(
					"service entry missing name or base_url: %s", entry.Raw,
				)
				return false
			}
			c.services[svc.Name] = svc
			c.names = append(c.names, svc.Name)
			return true
		},
	)
	if outer != nil {
		return nil, outer
	}
	return c, nil
}

// Service returns the endpoint registered under the given name
func (c *ServiceCatalog) Service(name string) (*ServiceEndpoint, error) {
	svc, ok := c.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// Services returns all endpoints in registration order
func (c *ServiceCatalog) Services() []*ServiceEndpoint {
	res := make([]*ServiceEndpoint, 0, len(c.names))
	for _, name := range c.names {
		res = append(res, c.services[name])
	}
	return res
}
