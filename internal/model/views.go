package model

// Read-surface shapes. Each lane only exposes what its viewer may see: a
// consumer sees their requests with every match and quote, a partner sees
// their own leads and only their own quote.

// PartnerSummary is the minimal display slice of a partner record embedded
// in consumer-facing match views.
type PartnerSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// RequestSummary is the public slice of a JobRequest embedded in
// partner-facing lead views. Guest contact details are not public.
type RequestSummary struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	PostalCode  string        `json:"postalCode"`
	Budget      *float64      `json:"budget,omitempty"`
	Status      RequestStatus `json:"status"`
}

// MatchView is one LeadMatch as seen by the requesting consumer.
type MatchView struct {
	LeadMatch
	Partner PartnerSummary `json:"partner"`
	Quote   *Quote         `json:"quote,omitempty"`
}

// ConsumerRequestView is one JobRequest with its full match list.
type ConsumerRequestView struct {
	JobRequest
	Matches []MatchView `json:"matches"`
}

// PartnerLeadView is one LeadMatch as seen by its owning partner.
type PartnerLeadView struct {
	LeadMatch
	Request RequestSummary `json:"request"`
	Quote   *Quote         `json:"quote,omitempty"`
}
