package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"pizzaagent/stream"
)

// InstrumentedCoordinator is an instrumented version of the Coordinator with
// comprehensive observability metrics.
type InstrumentedCoordinator struct {
	*Coordinator
	tracer trace.Tracer
	meter  metric.Meter

	eventsCounter        metric.Int64Counter
	phaseChangesCounter  metric.Int64Counter
	unknownPhasesCounter metric.Int64Counter
	resetsCounter        metric.Int64Counter
	phaseDurationHist    metric.Float64Histogram
}

// NewInstrumentedCoordinator initializes a new instrumented coordinator.
func NewInstrumentedCoordinator(base *Coordinator, tracer trace.Tracer, meter metric.Meter) *InstrumentedCoordinator {
	ic := &InstrumentedCoordinator{
		Coordinator: base,
		tracer:      tracer,
		meter:       meter,
	}
	ic.eventsCounter, _ = meter.Int64Counter("stream_events_total",
		metric.WithDescription("Total number of stream events received"))
	ic.phaseChangesCounter, _ = meter.Int64Counter("phase_changes_total",
		metric.WithDescription("Total number of phase changes dispatched"))
	ic.unknownPhasesCounter, _ = meter.Int64Counter("unknown_phases_total",
		metric.WithDescription("Total number of unknown phase names ignored"))
	ic.resetsCounter, _ = meter.Int64Counter("game_resets_total",
		metric.WithDescription("Total number of game resets handled"))
	ic.phaseDurationHist, _ = meter.Float64Histogram("phase_dispatch_duration_seconds",
		metric.WithDescription("Time spent dispatching a phase change, including single-flight cancellation wait"))
	return ic
}

// OnEvent counts and traces every event before delegating.
func (c *InstrumentedCoordinator) OnEvent(ctx context.Context, ev stream.Event) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.OnEvent", trace.WithAttributes(
		attribute.String("event_type", ev.Type),
	))
	defer span.End()

	c.eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", ev.Type)))

	if ev.Type == "game_reset" {
		c.resetsCounter.Add(ctx, 1)
	}
	if ev.Type == "game_phase_changed" {
		// The base OnEvent would call its own HandlePhase, bypassing the
		// instrumented one, so phase changes are decoded and routed here.
		var payload struct {
			Phase  string `json:"phase"`
			TurnID int    `json:"turn_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			span.SetStatus(codes.Error, "bad game_phase_changed payload")
			span.RecordError(err)
			return
		}
		c.HandlePhase(ctx, payload.Phase, payload.TurnID)
		return
	}
	c.Coordinator.OnEvent(ctx, ev)
}

// HandlePhase wraps the base dispatch with a span and duration metrics.
func (c *InstrumentedCoordinator) HandlePhase(ctx context.Context, name string, turnID int) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.HandlePhase", trace.WithAttributes(
		attribute.String("phase", name),
		attribute.Int("turn_id", turnID),
	))
	defer span.End()

	if _, ok := ParsePhase(name); !ok {
		c.unknownPhasesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", name)))
		span.SetStatus(codes.Error, "unknown phase")
	} else {
		c.phaseChangesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", name)))
	}

	start := time.Now()
	c.Coordinator.HandlePhase(ctx, name, turnID)
	c.phaseDurationHist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("phase", name),
	))
}
