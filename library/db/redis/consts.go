package redis

const (
	keyPrefix = "xero-mcp/"

	// KeyPrefixShortCode is the key prefix for cached organisation short codes
	KeyPrefixShortCode = keyPrefix + "shortcode/"
)
