package middleware

import (
	"context"

	"github.com/barbershop/internal/model"
)

type contextKey string

const (
	actorKey     contextKey = "actor"
	actorSlotKey contextKey = "actor_slot"
)

// actorSlot создаёт RequestLog на входе запроса; WithActor заполняет его ниже по цепочке,
// чтобы лог запроса видел участника из вложенного контекста.
type actorSlot struct {
	actor *model.Actor
}

func withActorSlot(ctx context.Context) (context.Context, *actorSlot) {
	s := &actorSlot{}
	return context.WithValue(ctx, actorSlotKey, s), s
}

// WithActor кладёт участника в контекст (AuthServiceValidate, тесты).
func WithActor(ctx context.Context, a *model.Actor) context.Context {
	if s, ok := ctx.Value(actorSlotKey).(*actorSlot); ok {
		s.actor = a
	}
	return context.WithValue(ctx, actorKey, a)
}

// GetActor возвращает участника из контекста или nil, если запрос не аутентифицирован.
func GetActor(ctx context.Context) *model.Actor {
	v, _ := ctx.Value(actorKey).(*model.Actor)
	return v
}
