package logger

import "strings"

// MaskEmail masks an email address for log output, keeping the first
// character of the local part and the TLD (e.g. "j***@*******.edu").
// Audit rows store the real address; the operational log stream does not.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local := email[:at]
	domain := email[at+1:]

	masked := string(local[0])
	if len(local) > 1 {
		masked += strings.Repeat("*", len(local)-1)
	}

	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return masked + "@" + strings.Join(domainParts, ".")
}

// sensitive query parameter names, matched as substrings
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"auth",
	"csrf",
}

// QueryHasSensitiveParams reports whether a raw query string mentions a
// credential-bearing parameter and should be redacted wholesale from
// request logs.
func QueryHasSensitiveParams(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
