package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	obscontext "github.com/linkrail/linkrail/internal/observability/context"
	"github.com/linkrail/linkrail/pkg/tenantctx"
)

const HeaderTenant = "X-Tenant-ID"

// TenantContext resolves the calling tenant from the request header and
// injects it into the request context. Requests without a tenant are rejected.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		tenantID, err := parseTenantID(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		ctx = obscontext.WithTenantID(ctx, strconv.FormatInt(tenantID, 10))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func parseTenantID(raw string) (int64, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}
