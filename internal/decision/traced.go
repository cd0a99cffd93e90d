package decision

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

const tracerName = "github.com/aaronzipp/avalon-alone/internal/decision"

// Traced wraps a provider so every call is recorded as a span. A nil tracer
// uses the global provider.
func Traced(next Provider, tracer trace.Tracer) Provider {
	if next == nil {
		return nil
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &traced{next: next, tracer: tracer}
}

type traced struct {
	next   Provider
	tracer trace.Tracer
}

func (t *traced) ProposeTeam(ctx context.Context, req TeamRequest) ([]string, error) {
	ctx, span := t.start(ctx, "decision.propose_team", req.View)
	team, err := t.next.ProposeTeam(ctx, req)
	end(span, err)
	return team, err
}

func (t *traced) ProposeTeamVote(ctx context.Context, req VoteRequest) (models.TeamVote, error) {
	ctx, span := t.start(ctx, "decision.propose_team_vote", req.View)
	vote, err := t.next.ProposeTeamVote(ctx, req)
	end(span, err)
	return vote, err
}

func (t *traced) ProposeMissionVote(ctx context.Context, req VoteRequest) (models.MissionVote, error) {
	ctx, span := t.start(ctx, "decision.propose_mission_vote", req.View)
	vote, err := t.next.ProposeMissionVote(ctx, req)
	end(span, err)
	return vote, err
}

func (t *traced) ProposeAssassinationTarget(ctx context.Context, req AssassinationRequest) (string, error) {
	ctx, span := t.start(ctx, "decision.propose_assassination_target", req.View)
	target, err := t.next.ProposeAssassinationTarget(ctx, req)
	end(span, err)
	return target, err
}

func (t *traced) Speak(ctx context.Context, req SpeechRequest) (string, error) {
	speaker, ok := t.next.(Speaker)
	if !ok {
		return "", ErrUnavailable
	}
	ctx, span := t.start(ctx, "decision.speak", req.View)
	line, err := speaker.Speak(ctx, req)
	end(span, err)
	return line, err
}

func (t *traced) start(ctx context.Context, name string, view models.PlayerView) (context.Context, trace.Span) {
	// Roles stay out of span attributes.
	return t.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("avalon.seat", view.Self.Name),
		attribute.String("avalon.phase", string(view.Phase)),
		attribute.Int("avalon.mission", view.Mission),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
