// Package sourceregistry resolves a request's named source into its
// configuration, alias resolver, and lazily-connected ClickHouse client.
// The HTTP layer calls Lookup once per request, in place of the
// axum-extractor pattern the original server used to pull a source's
// config out of the path; Go has no framework-level extractor equivalent,
// so an explicit registry call is the idiomatic substitute.
package sourceregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/chqlbuilder/chqlbuilder/pkg/aliasresolver"
	"github.com/chqlbuilder/chqlbuilder/pkg/chclient"
	"github.com/chqlbuilder/chqlbuilder/pkg/config"
)

// ErrSourceNotFound is returned by Lookup for an unconfigured source name.
type ErrSourceNotFound struct{ Name string }

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("source %q is not configured", e.Name)
}

// Source is one configured ClickHouse source: its raw config, its alias
// resolver, and its lazily-connected client.
type Source struct {
	Name     string
	Config   config.SourceConfig
	Resolver *aliasresolver.Resolver

	mu     sync.Mutex
	client *chclient.Client
}

// Client returns the source's connected chclient.Client, connecting on
// first use and reusing the same connection for every later call.
func (s *Source) Client(ctx context.Context) (*chclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	client, err := chclient.Connect(ctx, chclient.Config{
		Name:          s.Name,
		DSN:           s.Config.DSN,
		EnableLogging: true,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s.client, nil
}

// Registry looks up configured sources by name.
type Registry struct {
	sources map[string]*Source
}

// New builds a Registry from the application configuration's Sources map.
func New(cfg *config.Config) *Registry {
	sources := make(map[string]*Source, len(cfg.Sources))
	for name, sc := range cfg.Sources {
		sources[name] = &Source{
			Name:     name,
			Config:   sc,
			Resolver: aliasresolver.New(sc),
		}
	}
	return &Registry{sources: sources}
}

// Lookup returns the named source, or ErrSourceNotFound if it is not
// configured.
func (r *Registry) Lookup(name string) (*Source, error) {
	source, ok := r.sources[name]
	if !ok {
		return nil, &ErrSourceNotFound{Name: name}
	}
	return source, nil
}

// Names returns every configured source name, for health/diagnostic
// listing.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// Close closes every source's connected client, ignoring sources that were
// never connected.
func (r *Registry) Close() error {
	var firstErr error
	for _, source := range r.sources {
		source.mu.Lock()
		client := source.client
		source.mu.Unlock()
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
