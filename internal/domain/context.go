package domain

import "context"

// Actor — кто выполняет запрос (из заголовков x-user-role / x-username).
type Actor struct {
	Username string
	Role     Role
}

type ctxKey int

const actorCtxKey ctxKey = 1

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, a)
}

func ActorFromCtx(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorCtxKey).(Actor)
	return a, ok
}
