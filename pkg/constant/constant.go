package constant

const (
	DefaultTokenType = "Bearer"

	MinPasswordLength = 8

	// MaxJSONBodyBytes caps request bodies on the JSON endpoints; uploads use their own limit.
	MaxJSONBodyBytes = 64 << 10

	HeaderRequestID = "X-Request-Id"
	CtxClaimsKey    = "claims"
)
