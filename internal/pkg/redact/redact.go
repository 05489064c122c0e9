// redact содержит хелперы для безопасного логирования чувствительных значений.
package redact

import "strings"

func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }

// SessionID сокращает идентификатор сессии до первых 8 символов.
func SessionID(sid string) string {
	if len(sid) <= 8 {
		return sid
	}

	return sid[:8] + "..."
}
