package arming

import (
	"context"

	"google.golang.org/grpc/metadata"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

// Metadata keys carrying the calling actor.
const (
	ActorHostnameKey = "x-actor-hostname"
	ActorUsernameKey = "x-actor-username"
)

// WithActor attaches actor to the outgoing call metadata.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		ActorHostnameKey, actor.Hostname,
		ActorUsernameKey, actor.Username,
	)
}

// ActorFromContext reads the calling actor from incoming metadata, or nil.
func ActorFromContext(ctx context.Context) *domain.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	actor := &domain.Actor{
		Hostname: first(md.Get(ActorHostnameKey)),
		Username: first(md.Get(ActorUsernameKey)),
	}

	if actor.Hostname == "" && actor.Username == "" {
		return nil
	}

	return actor
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
