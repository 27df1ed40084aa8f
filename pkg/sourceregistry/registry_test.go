package sourceregistry

import (
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Sources: map[string]config.SourceConfig{
			"analytics": {
				DSN:          "clickhouse://localhost:9000/analytics",
				Database:     "analytics",
				TableAliases: map[string]string{"public.users": "db.users"},
			},
		},
	}
}

func TestLookupReturnsConfiguredSource(t *testing.T) {
	registry := New(testConfig())

	source, err := registry.Lookup("analytics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Name != "analytics" {
		t.Fatalf("expected name analytics, got %s", source.Name)
	}
	if source.Resolver == nil {
		t.Fatal("expected a resolver to be built for the source")
	}
}

func TestLookupUnknownSourceFails(t *testing.T) {
	registry := New(testConfig())

	_, err := registry.Lookup("missing")
	if err == nil {
		t.Fatal("expected an error for an unconfigured source")
	}
	if _, ok := err.(*ErrSourceNotFound); !ok {
		t.Fatalf("expected ErrSourceNotFound, got %T: %v", err, err)
	}
}

func TestNamesListsAllConfiguredSources(t *testing.T) {
	registry := New(testConfig())

	names := registry.Names()
	if len(names) != 1 || names[0] != "analytics" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestCloseWithNoConnectedClientsSucceeds(t *testing.T) {
	registry := New(testConfig())

	if err := registry.Close(); err != nil {
		t.Fatalf("unexpected error closing an unconnected registry: %v", err)
	}
}
