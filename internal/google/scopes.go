package google

const (
	// CalendarReadonlyScope grants read access to calendars and events.
	CalendarReadonlyScope = "https://www.googleapis.com/auth/calendar.readonly"

	// DefaultTokenURL is Google's OAuth2 token endpoint. It doubles as the
	// audience of the signed assertion.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// JWTBearerGrantType is the RFC 7523 grant type for assertion exchanges.
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)
