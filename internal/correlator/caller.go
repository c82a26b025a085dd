package correlator

import "context"

type callerKey struct{}

// WithCaller tags ctx with the identity of the bridge client making the
// call. Register records it on the handle so callbacks reach only that
// client.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller recorded by WithCaller, or "".
func CallerFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}
