package tenants

// Tenant is an isolated customer organization. The authoritative record
// lives outside this service; handlers only read it.
type Tenant struct {
	ID            string
	Name          string
	AllowedDomain string
	AppName       string // meeting-provider app configured for the tenant
}
