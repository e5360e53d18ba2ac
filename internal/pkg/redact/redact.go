// redact маскирует чувствительные данные перед записью в логи
// (логины, e-mail, refresh-токены).
package redact

import "strings"

// Email маскирует e-mail: первые два символа локальной части + "***",
// домен сохраняется. Строка без ровно одного '@' превращается в "***".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	return Login(s[:i]) + "@" + s[i+1:]
}

// Login оставляет первые два символа (по рунам) и маскирует остальное.
func Login(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

// Token оставляет короткий префикс токена, достаточный для сопоставления
// записей в логах, но бесполезный для повторного предъявления.
func Token(s string) string {
	const keep = 4
	if len(s) <= keep*2 {
		return "[REDACTED_TOKEN]"
	}

	return s[:keep] + "…[REDACTED]"
}
