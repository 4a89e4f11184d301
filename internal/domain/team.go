package domain

import "time"

// Team is an organizational routing target for queries. Teams are created on
// first reference by the resolver and never deleted by this service.
type Team struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Canonical team names known to the resolver.
const (
	TeamSupport     = "Support Team"
	TeamBilling     = "Billing Team"
	TeamTechnical   = "Technical Team"
	TeamOperations  = "Operations Team"
	TeamProduct     = "Product Team"
	TeamEscalations = "Escalations Team"
)

// CanonicalTeamDescriptions maps the known team names to their descriptions,
// used when the resolver creates a missing team.
var CanonicalTeamDescriptions = map[string]string{
	TeamSupport:     "General customer support team",
	TeamBilling:     "Billing and payment inquiries",
	TeamTechnical:   "Technical support and bug reports",
	TeamOperations:  "Operations and process management",
	TeamProduct:     "Product inquiries and feature requests",
	TeamEscalations: "Escalated issues and complex problems",
}
