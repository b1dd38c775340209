package mistral

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/composer"
)

const tracerName = "github.com/lastochkinroman/PersonalAssistantLite/internal/mistral"

// generateSpan wraps one Generate call.
type generateSpan struct {
	span trace.Span
}

func startSpan(ctx context.Context, tracer trace.Tracer, model string) (context.Context, *generateSpan) {
	ctx, span := tracer.Start(ctx, "mistral.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", providerName),
			attribute.String("gen_ai.request.model", model),
			attribute.Float64("gen_ai.request.temperature", temperature),
			attribute.Float64("gen_ai.request.top_p", topP),
			attribute.Int("gen_ai.request.max_tokens", maxTokens),
		),
	)
	return ctx, &generateSpan{span: span}
}

func (s *generateSpan) recordResponse(text string) {
	s.span.SetAttributes(attribute.Int("gen_ai.usage.output_tokens_estimate", composer.EstimateTokens(text)))
	s.span.SetStatus(codes.Ok, "")
}

func (s *generateSpan) recordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *generateSpan) end() {
	s.span.End()
}
