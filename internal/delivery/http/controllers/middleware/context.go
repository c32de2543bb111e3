package middleware

const (
	ActorIDCtx = "actor_id"
)
