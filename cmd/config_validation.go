package cmd

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// envGetter retrieves environment variables by name.
type envGetter func(key string) string

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	}, os.Getenv)
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and an environment getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter, env envGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}
	if env == nil {
		env = func(string) string { return "" }
	}

	validationErrs := make([]string, 0)

	validateXeroConfig(get, env, &validationErrs)
	validateTransportConfig(get, &validationErrs)
	validateMCPToolsConfig(get, &validationErrs)
	validateDBConfig(get, &validationErrs)
	validateWebConfig(get, env, &validationErrs)
	validateOptionalBool(get, "settings.otel.enabled", &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateXeroConfig checks that one authentication mode is fully configured.
// Settings take precedence over the XERO_* environment variables.
func validateXeroConfig(get configGetter, env envGetter, errs *[]string) {
	lookup := func(key, envKey string) string {
		if raw := get(key); raw != nil {
			if value, err := parseStrictString(raw); err == nil && strings.TrimSpace(value) != "" {
				return value
			}
		}
		return strings.TrimSpace(env(envKey))
	}

	clientID := lookup("settings.xero.client_id", "XERO_CLIENT_ID")
	clientSecret := lookup("settings.xero.client_secret", "XERO_CLIENT_SECRET")
	bearerToken := lookup("settings.xero.bearer_token", "XERO_CLIENT_BEARER_TOKEN")

	switch {
	case bearerToken != "":
	case clientID != "" && clientSecret != "":
	case clientID != "" || clientSecret != "":
		appendValidationError(errs, "settings.xero.client_id and settings.xero.client_secret must be set together")
	default:
		appendValidationError(errs, "settings.xero.bearer_token or settings.xero.client_id with settings.xero.client_secret is required")
	}

	validateOptionalStringNonEmpty(get, "settings.xero.tenant_id", errs)
	validateOptionalURL(get, "settings.xero.api_base", errs)
	validateOptionalURL(get, "settings.xero.identity_base", errs)
	validateOptionalIntMin(get, "settings.xero.timeout_seconds", 1, errs)
	validateOptionalStringList(get, "settings.xero.scopes", errs)
}

// validateTransportConfig validates the serve command flags bound into the config.
func validateTransportConfig(get configGetter, errs *[]string) {
	raw := get("transport")
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "transport must be a string")
		return
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case transportStdio, transportHTTP:
	default:
		appendValidationError(errs, "transport must be one of [%s, %s]", transportStdio, transportHTTP)
	}
}

// validateMCPToolsConfig validates MCP tool toggles.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPToolsConfig(get configGetter, errs *[]string) {
	keys := []string{
		"settings.mcp.tools.list_branding_themes.enabled",
		"settings.mcp.tools.update_contact.enabled",
	}

	for _, key := range keys {
		validateOptionalBool(get, key, errs)
	}
}

// validateDBConfig validates the optional call log and short code cache backends.
func validateDBConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.db.postgres.dsn", errs)
	validateOptionalStringNonEmpty(get, "settings.db.redis.addr", errs)
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
}

// validateWebConfig validates the http transport settings.
// The http transport refuses to start without an api token.
func validateWebConfig(get configGetter, env envGetter, errs *[]string) {
	if transport, err := parseStrictString(get("transport")); err == nil &&
		strings.EqualFold(strings.TrimSpace(transport), transportHTTP) {
		token := ""
		if raw := get("settings.web.api_token"); raw != nil {
			if value, err := parseStrictString(raw); err == nil {
				token = strings.TrimSpace(value)
			}
		}
		if token == "" {
			token = strings.TrimSpace(env("XERO_MCP_API_TOKEN"))
		}
		if token == "" {
			appendValidationError(errs, "settings.web.api_token is required for the http transport")
		}
	}
	validateOptionalStringNonEmpty(get, "settings.web.api_token", errs)
	validateOptionalStringList(get, "settings.web.allowed_origins", errs)
	validateOptionalBool(get, "settings.web.metrics.enabled", errs)
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalStringList validates an optionally configured list of non-empty strings.
func validateOptionalStringList(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	var items []any
	switch v := raw.(type) {
	case []string:
		for _, item := range v {
			items = append(items, item)
		}
	case []any:
		items = v
	default:
		appendValidationError(errs, "%s must be a list of strings", key)
		return
	}

	for i, item := range items {
		value, err := parseStrictString(item)
		if err != nil || strings.TrimSpace(value) == "" {
			appendValidationError(errs, "%s[%d] must be a non-empty string", key, i)
		}
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
