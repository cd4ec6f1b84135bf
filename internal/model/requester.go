package model

import "strings"

// GuestContact is the inline contact triple for a requester without an
// account.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Requester identifies who submitted a JobRequest: either a registered
// consumer or a guest contact, never both and never neither. Construct it
// with NewRegisteredRequester or NewGuestRequester; the zero value is
// invalid and rejected by the store.
type Requester struct {
	ConsumerID string        `json:"consumerId,omitempty"`
	Guest      *GuestContact `json:"guest,omitempty"`
}

// NewRegisteredRequester builds a Requester for an authenticated consumer.
func NewRegisteredRequester(consumerID string) (Requester, error) {
	if strings.TrimSpace(consumerID) == "" {
		return Requester{}, &ValidationError{Msg: "consumer id is required"}
	}
	return Requester{ConsumerID: consumerID}, nil
}

// NewGuestRequester builds a Requester from an inline guest contact triple.
// All three fields are required.
func NewGuestRequester(name, email, phone string) (Requester, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(phone) == "" {
		return Requester{}, &ValidationError{Msg: "guest name, email and phone are all required"}
	}
	return Requester{Guest: &GuestContact{Name: name, Email: email, Phone: phone}}, nil
}

// IsRegistered reports whether the requester is a registered consumer.
func (r Requester) IsRegistered() bool { return r.ConsumerID != "" }

// Valid reports whether the requester has exactly one of the two identities.
func (r Requester) Valid() bool {
	return (r.ConsumerID != "") != (r.Guest != nil)
}
