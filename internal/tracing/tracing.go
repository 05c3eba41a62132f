package tracing

import (
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const defaultJaegerEndpoint = "http://jaeger:14268/api/traces"

// инициализирует трейсинг для приложения. Эндпоинт коллектора и долю
// сэмплирования можно переопределить через JAEGER_ENDPOINT и
// JAEGER_SAMPLER_RATIO, по умолчанию пишем все спаны.
func InitTracer(serviceName string) (*tracesdk.TracerProvider, error) {
	endpoint := os.Getenv("JAEGER_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultJaegerEndpoint
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экспортера джагер: %v", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithSampler(samplerFromEnv()),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}

func samplerFromEnv() tracesdk.Sampler {
	raw := os.Getenv("JAEGER_SAMPLER_RATIO")
	if raw == "" {
		return tracesdk.AlwaysSample()
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		return tracesdk.AlwaysSample()
	}
	return tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
}

// возвращает трейсер для компонента
func GetTracer(componentName string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(componentName)
}
