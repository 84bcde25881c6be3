package docstore

import "context"

// PutOperation is the in-flight state of one put call, visible to
// interceptors. BeforePut may veto the write by returning an error, or
// mutate op.Doc before it is persisted.
type PutOperation struct {
	// Doc is the document being written. Mutations made in BeforePut
	// are what the store persists.
	Doc *Document
}

// Interceptor hooks into the put path.
//
// The store threads the opaque state value returned by BeforePut to
// the matching AfterPut call. That value is the only channel between
// the two phases of one operation: it is owned by that single put and
// never shared, so concurrent puts cannot observe each other's
// scratch state.
type Interceptor interface {
	// Name identifies the interceptor in error messages.
	Name() string

	// BeforePut runs before the document is persisted. Returning an
	// error vetoes the write; nothing is persisted and the error is
	// returned to the caller unchanged.
	BeforePut(ctx context.Context, op *PutOperation) (state any, err error)

	// AfterPut runs after the document has been durably persisted.
	// Errors are surfaced to the caller, not swallowed: a failed
	// after-hook means the operation finished in a detectably
	// inconsistent state.
	AfterPut(ctx context.Context, op *PutOperation, state any) error
}

// putConfig holds per-call options.
type putConfig struct {
	bypass     bool
	createOnly bool
}

// PutOption customizes a single Put call.
type PutOption func(*putConfig)

// WithoutInterceptors bypasses the interceptor chain for this call.
// Used exclusively for revision-internal writes (revision copies,
// compensation, history and configuration documents) so they are not
// recursively classified.
func WithoutInterceptors() PutOption {
	return func(c *putConfig) { c.bypass = true }
}

// WithCreateOnly makes the put fail with ErrConflict if the key
// already exists. Used for revision copies: temporal keys are
// immutable once persisted.
func WithCreateOnly() PutOption {
	return func(c *putConfig) { c.createOnly = true }
}
