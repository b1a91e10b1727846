package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mooky-live/wishes-backend/internal/config"
)

func preserveGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestSetupOTel_Disabled(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}

func TestSetupOTel_EnabledSetsProvider(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "wishes-backend-test",
		SampleRatio: 1.0,
	}, "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatal("expected *sdktrace.TracerProvider global")
	}

	_, span := otel.Tracer("smoke").Start(context.Background(), "create-wish")
	span.End()
}

func TestSetupOTel_TLSBranch(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Insecure:    false,
		Endpoint:    "localhost:4317",
		ServiceName: "wishes-backend-tls",
		SampleRatio: 0.5,
	}, "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	_ = shutdown(context.Background())
}

func TestSetupOTel_ExporterErrorLeavesGlobals(t *testing.T) {
	preserveGlobals(t)

	orig := newOTLPExporterFn
	defer func() { newOTLPExporterFn = orig }()
	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter down")
	}

	prevTP := otel.GetTracerProvider()
	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled: true, Insecure: true, Endpoint: "localhost:4317",
		ServiceName: "svc", SampleRatio: 1.0,
	}, "v0")
	if err == nil {
		t.Fatal("expected error from exporter seam")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatal("tracer provider changed despite setup failure")
	}
}

func TestSetupOTel_ResourceErrorPropagates(t *testing.T) {
	preserveGlobals(t)

	orig := newServiceResourceFn
	defer func() { newServiceResourceFn = orig }()
	newServiceResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource boom")
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled: true, Insecure: true, Endpoint: "localhost:4317",
		ServiceName: "svc", SampleRatio: 1.0,
	}, "v0")
	if err == nil {
		t.Fatal("expected error from resource seam")
	}
}
