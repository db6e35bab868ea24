package store

import "fmt"

// Path builders for the persisted layout. Keeping them here means a renamed
// collection is a one-line change.

func AccessTokenPath(key string) string {
	return fmt.Sprintf("/accessTokens/%s", key)
}

func TemporalKeyPath(kind, id string) string {
	return fmt.Sprintf("/temporalKeys/%s/keys/%s", kind, id)
}

func TenantPath(tenantID string) string {
	return fmt.Sprintf("/enterprises/%s", tenantID)
}

func TenantTokenPath(tenantID, provider string) string {
	return fmt.Sprintf("/enterprises/%s/accessTokens/%s", tenantID, provider)
}

func UserPath(tenantID, userID string) string {
	return fmt.Sprintf("/enterprises/%s/users/%s", tenantID, userID)
}

func ReservedMeetingsPrefix(tenantID, userID string) string {
	return fmt.Sprintf("/enterprises/%s/users/%s/reservedMeetings", tenantID, userID)
}

func ReservedMeetingPath(tenantID, userID, meetingID string) string {
	return fmt.Sprintf("/enterprises/%s/users/%s/reservedMeetings/%s", tenantID, userID, meetingID)
}

func DefaultAppConfigPath() string {
	return "/externalConfigs/defaultZoomApp"
}

func ZoomAppPath(appName string) string {
	return fmt.Sprintf("/externalConnections/zoom/apps/%s", appName)
}
