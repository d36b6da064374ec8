package tenantctx

import "context"

type keyType string

const (
	tenantIDKey keyType = "tenant_id"
)

// WithTenantID returns a context carrying the tenant identifier.
func WithTenantID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// TenantID returns the tenant identifier from the context, if set.
func TenantID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantIDKey).(int64)
	return id, ok
}
