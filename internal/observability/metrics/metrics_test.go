package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("record_type", "CNAME"),
		attribute.String("domain", "track.example.com"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "domain" {
			t.Fatalf("expected domain label to be dropped")
		}
	}
}

func TestInstrumentsRecordAgainstNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "linkrail"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordDNSLookup(ctx, "CNAME", "success", true)
	m.RecordDNSCacheEvent(ctx, "hit")
	m.RecordVerification(ctx, "cname", "verified")
	m.RecordCertIssuance(ctx, "acme", "issued", 3*time.Second)
	m.RecordLinkPropagation(ctx)
}
