package constants

type ContextKey string

const (
	AppKey       ContextKey = "app"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	TenantIDKey  ContextKey = "tenantID"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
)
