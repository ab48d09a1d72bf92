package instrumentation

import "strings"

// unknownDomain labels identifiers that carry no domain, such as "primary".
const unknownDomain = "unknown"

// CalendarDomain reduces a calendar ID to its lower-cased domain. Metric
// labels, span attributes and audit records carry this instead of the ID.
func CalendarDomain(calendarID string) string {
	_, domain, ok := strings.Cut(calendarID, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return unknownDomain
	}
	return strings.ToLower(domain)
}
