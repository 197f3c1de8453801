package enums

// LeadStatus is the sales status of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
)

// OpportunityStatus is the sales status of an opportunity.
type OpportunityStatus string

const (
	OpportunityStatusOpen OpportunityStatus = "Open"
	OpportunityStatusLost OpportunityStatus = "Lost"
)

// OpportunityFrom is the kind of party an opportunity was raised for.
type OpportunityFrom string

const (
	OpportunityFromLead     OpportunityFrom = "Lead"
	OpportunityFromCustomer OpportunityFrom = "Customer"
)

// ReferenceType names the record a comment is attached to.
type ReferenceType string

const (
	ReferenceLead       ReferenceType = "lead"
	ReferenceOrder      ReferenceType = "order"
	ReferenceOnboarding ReferenceType = "onboarding"
)
