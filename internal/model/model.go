package model

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type RequestStatus string

const (
	RequestOpen   RequestStatus = "open"
	RequestClosed RequestStatus = "closed"
)

type QuoteStatus string

const (
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
)

// JobRequest is a consumer's submitted need for a service. It is immutable
// after creation apart from its status, which is closed externally.
type JobRequest struct {
	ID          string        `json:"id"`
	Requester   Requester     `json:"requester"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	PostalCode  string        `json:"postalCode"`
	Budget      *float64      `json:"budget,omitempty"`
	ImageKeys   []string      `json:"imageKeys,omitempty"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// LeadMatch assigns one JobRequest to one candidate partner. At most three
// exist per request, each owned by a distinct partner.
type LeadMatch struct {
	ID           string     `json:"id"`
	JobRequestID string     `json:"jobRequestId"`
	PartnerID    string     `json:"partnerId"`
	Status       LeadStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Quote is a priced response a partner attaches to a LeadMatch. A LeadMatch
// carries at most one Quote.
type Quote struct {
	ID        string      `json:"id"`
	MatchID   string      `json:"matchId"`
	PartnerID string      `json:"partnerId"`
	Price     float64     `json:"price"`
	Message   string      `json:"message"`
	Status    QuoteStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Partner is a candidate directory record: a service provider eligible to
// receive leads in one category. UserID links it to the external auth identity.
type Partner struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName"`
	Category        string `json:"category"`
	ServiceAreaCode string `json:"serviceAreaCode"`
}
