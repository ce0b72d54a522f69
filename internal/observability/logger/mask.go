package logger

import (
	"net/http"
	"strings"
)

var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"cbu",
	"tax_id",
	"holder_name",
}

// MaskAuthorization hides a credential but keeps the Bearer scheme visible.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if scheme, cred, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return "Bearer " + maskKeepLast4(strings.TrimSpace(cred))
	}
	return maskKeepLast4(value)
}

// MaskBankAccount masks a CBU or account number, preserving the last 4
// digits. Bank account numbers never appear whole in logs.
func MaskBankAccount(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return maskKeepLast4(value)
}

// MaskTaxID masks a CUIT/CUIL identifier, preserving the last 4 digits.
func MaskTaxID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return maskKeepLast4(value)
}

// MaskCookie hides every cookie value but keeps the names, which are often
// the useful part when debugging.
func MaskCookie(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Split(value, ";")
	masked := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		if name, val, ok := strings.Cut(segment, "="); ok {
			segment = strings.TrimSpace(name) + "=" + maskKeepLast4(strings.TrimSpace(val))
		} else {
			segment = maskKeepLast4(segment)
		}
		masked = append(masked, segment)
	}
	return strings.Join(masked, "; ")
}

// MaskHeaders copies headers with credential-bearing ones masked.
func MaskHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "authorization":
			masked[key] = MaskAuthorization(joined)
		case "cookie":
			masked[key] = MaskCookie(joined)
		default:
			masked[key] = joined
		}
	}
	return masked
}

// MaskJSON deep-copies a decoded JSON map, masking values under sensitive
// keys at any depth. The input is never mutated.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if sensitiveLogKey(key) {
			out[key] = redactLeaf(value)
			continue
		}
		out[key] = walkJSON(value)
	}
	return out
}

// SafeFieldsFromRequest extracts request metadata that is safe to log.
func SafeFieldsFromRequest(req *http.Request) map[string]any {
	if req == nil {
		return map[string]any{}
	}
	return map[string]any{
		"method":         req.Method,
		"path":           req.URL.Path,
		"content_length": max(req.ContentLength, 0),
		"headers":        MaskHeaders(req.Header),
	}
}

// walkJSON recurses into containers under non-sensitive keys.
func walkJSON(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, walkJSON(entry))
		}
		return items
	default:
		return value
	}
}

// redactLeaf masks a value found under a sensitive key. Containers collapse
// to "****" outright; their shape may itself leak.
func redactLeaf(value any) any {
	switch typed := value.(type) {
	case string:
		return maskKeepLast4(typed)
	case []byte:
		return maskKeepLast4(string(typed))
	default:
		return "****"
	}
}

func sensitiveLogKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func maskKeepLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
