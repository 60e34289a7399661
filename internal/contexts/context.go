package contexts

import (
	"context"
)

// ContextKey defines the context key type.
type ContextKey string

const (
	// containerContextKey is used to store the context container in the context.
	containerContextKey ContextKey = "context_container"
)

// Source identifies where a request entered the system.
type Source string

const (
	SourceAdminAPI Source = "admin_api"
	SourceDataAPI  Source = "data_api"
	SourceStartup  Source = "startup"
)

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	container := getContainer(ctx)
	container.TraceID = &traceID

	return withContainer(ctx, container)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.TraceID != nil {
		return *container.TraceID, true
	}

	return "", false
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	container := getContainer(ctx)
	container.RequestID = &requestID

	return withContainer(ctx, container)
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.RequestID != nil {
		return *container.RequestID, true
	}

	return "", false
}

// WithOperationName stores the operation name in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	container := getContainer(ctx)
	container.OperationName = &name

	return withContainer(ctx, container)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.OperationName != nil {
		return *container.OperationName, true
	}

	return "", false
}

// WithSource stores the request source in the context.
func WithSource(ctx context.Context, source Source) context.Context {
	container := getContainer(ctx)
	container.Source = &source

	return withContainer(ctx, container)
}

// GetSource retrieves the request source from the context.
func GetSource(ctx context.Context) (Source, bool) {
	container := getContainer(ctx)
	if container.Source != nil {
		return *container.Source, true
	}

	return "", false
}

// WithAdminAuthorized marks the context as having passed the administrative
// authorization gate. Only the gate middleware sets this.
func WithAdminAuthorized(ctx context.Context) context.Context {
	container := getContainer(ctx)
	container.AdminAuthorized = true

	return withContainer(ctx, container)
}

// IsAdminAuthorized reports whether the administrative authorization gate
// has passed for this context.
func IsAdminAuthorized(ctx context.Context) bool {
	return getContainer(ctx).AdminAuthorized
}

// AddError records an error on the context for access logging.
func AddError(ctx context.Context, err error) context.Context {
	container := getContainer(ctx)

	container.mu.Lock()
	container.Errors = append(container.Errors, err)
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// GetErrors retrieves the errors recorded on the context.
func GetErrors(ctx context.Context) []error {
	container := getContainer(ctx)

	container.mu.RLock()
	defer container.mu.RUnlock()

	errs := make([]error, len(container.Errors))
	copy(errs, container.Errors)

	return errs
}
