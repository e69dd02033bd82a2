package agent

import "context"

// Invocation identifies the conversation a run belongs to. Tools use it to
// scope memory lookups.
type Invocation struct {
	AppName   string
	UserID    string
	SessionID string
}

type invocationKey struct{}

func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

func InvocationFrom(ctx context.Context) Invocation {
	inv, _ := ctx.Value(invocationKey{}).(Invocation)
	return inv
}
