package observe

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitProviderExportsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, shutdown, err := InitProvider(context.Background(), ProviderConfig{
		ServiceVersion: "test",
		Registerer:     reg,
	})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordDroppedFrames(context.Background(), 64)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("registry exported no metric families")
	}
}
