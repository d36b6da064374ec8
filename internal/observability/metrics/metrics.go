package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	dnsLookups       metric.Int64Counter
	dnsCacheEvents   metric.Int64Counter
	verifications    metric.Int64Counter
	certIssuance     metric.Int64Counter
	certIssuanceTime metric.Float64Histogram
	linkPropagations metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "linkrail"
	}
	meter := provider.Meter(name)

	dnsLookups, err := meter.Int64Counter("linkrail_dns_lookups_total")
	if err != nil {
		return nil, err
	}
	dnsCacheEvents, err := meter.Int64Counter("linkrail_dns_cache_events_total")
	if err != nil {
		return nil, err
	}
	verifications, err := meter.Int64Counter("linkrail_domain_verifications_total")
	if err != nil {
		return nil, err
	}
	certIssuance, err := meter.Int64Counter("linkrail_cert_issuance_total")
	if err != nil {
		return nil, err
	}
	certIssuanceTime, err := meter.Float64Histogram("linkrail_cert_issuance_duration_seconds")
	if err != nil {
		return nil, err
	}
	linkPropagations, err := meter.Int64Counter("linkrail_link_propagations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		dnsLookups:       dnsLookups,
		dnsCacheEvents:   dnsCacheEvents,
		verifications:    verifications,
		certIssuance:     certIssuance,
		certIssuanceTime: certIssuanceTime,
		linkPropagations: linkPropagations,
	}, nil
}

// RecordDNSLookup counts a resolver lookup by record type and outcome.
func (m *Metrics) RecordDNSLookup(ctx context.Context, recordType, outcome string, fromCache bool) {
	if m == nil {
		return
	}
	source := "upstream"
	if fromCache {
		source = "cache"
	}
	attrs := FilterAttributes(
		attribute.String("record_type", strings.TrimSpace(recordType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("source", source),
	)
	m.dnsLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDNSCacheEvent counts cache hits, misses, puts, and evictions.
func (m *Metrics) RecordDNSCacheEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(event)))
	m.dnsCacheEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordVerification counts a domain verification attempt by result.
func (m *Metrics) RecordVerification(ctx context.Context, method, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.TrimSpace(method)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.verifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCertIssuance counts an issuance attempt and observes its duration.
func (m *Metrics) RecordCertIssuance(ctx context.Context, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.certIssuance.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.certIssuanceTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLinkPropagation counts a batched tracking-link update.
func (m *Metrics) RecordLinkPropagation(ctx context.Context) {
	if m == nil {
		return
	}
	m.linkPropagations.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"record_type": {},
	"outcome":     {},
	"source":      {},
	"event_type":  {},
	"method":      {},
	"result":      {},
	"provider":    {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Domain names and tenant identifiers never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
