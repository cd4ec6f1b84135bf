// Package service contains the lead-matching and quoting business logic.
// It is transport-agnostic: used by the HTTP layer (httpapi package).
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/tradematch/internal/events"
	"github.com/example/tradematch/internal/match"
	"github.com/example/tradematch/internal/model"
	"github.com/example/tradematch/internal/store"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates intake, quote submission and the read surfaces.
// All dependencies are injected; nothing here holds global state.
type Service struct {
	store  *store.SQLite
	dir    match.Directory
	engine *match.Engine
	pub    events.Publisher
}

// New returns a configured Service. A nil publisher disables event emission.
func New(st *store.SQLite, dir match.Directory, engine *match.Engine, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{store: st, dir: dir, engine: engine, pub: pub}
}

// ─── Intake ──────────────────────────────────────────────────────────────────

// SubmitRequestInput is the raw intake payload. ConsumerID comes from the
// external auth layer; the guest triple comes from the request body.
type SubmitRequestInput struct {
	ConsumerID  string
	GuestName   string
	GuestEmail  string
	GuestPhone  string
	Title       string
	Description string
	Category    string
	PostalCode  string
	Budget      *float64
	ImageKeys   []string
}

// SubmitJobRequest persists a job request and fans it out to at most three
// candidate partners in a single atomic write. It returns the stored request
// and how many lead matches were created; zero candidates is not an error.
func (s *Service) SubmitJobRequest(ctx context.Context, in SubmitRequestInput) (model.JobRequest, int, error) {
	requester, err := requesterFromInput(in)
	if err != nil {
		return model.JobRequest{}, 0, err
	}
	if strings.TrimSpace(in.Category) == "" {
		return model.JobRequest{}, 0, &model.ValidationError{Msg: "category is required"}
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return model.JobRequest{}, 0, &model.ValidationError{Msg: "postalCode is required"}
	}

	candidates, err := s.dir.FindByCategory(ctx, in.Category)
	if err != nil {
		return model.JobRequest{}, 0, fmt.Errorf("candidate lookup: %w", err)
	}
	partnerIDs := s.engine.SelectPartners(in.Category, in.PostalCode, candidates)

	now := time.Now().UTC()
	req := model.JobRequest{
		ID:          uuid.NewString(),
		Requester:   requester,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		PostalCode:  in.PostalCode,
		Budget:      in.Budget,
		ImageKeys:   in.ImageKeys,
		Status:      model.RequestOpen,
		CreatedAt:   now,
	}
	matches := make([]model.LeadMatch, 0, len(partnerIDs))
	for _, pid := range partnerIDs {
		matches = append(matches, model.LeadMatch{
			ID:           uuid.NewString(),
			JobRequestID: req.ID,
			PartnerID:    pid,
			Status:       model.LeadPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := s.store.CreateJobRequestWithMatches(ctx, req, matches); err != nil {
		return model.JobRequest{}, 0, fmt.Errorf("persist job request: %w", err)
	}

	s.pub.Publish(ctx, events.ChannelLeadMatched, map[string]string{
		"jobRequestId": req.ID,
		"category":     req.Category,
		"matchCount":   strconv.Itoa(len(matches)),
	})

	return req, len(matches), nil
}

func requesterFromInput(in SubmitRequestInput) (model.Requester, error) {
	hasGuest := in.GuestName != "" || in.GuestEmail != "" || in.GuestPhone != ""
	switch {
	case in.ConsumerID != "" && hasGuest:
		return model.Requester{}, &model.ValidationError{
			Msg: "request cannot carry both an authenticated consumer and guest contact details",
		}
	case in.ConsumerID != "":
		return model.NewRegisteredRequester(in.ConsumerID)
	case hasGuest:
		return model.NewGuestRequester(in.GuestName, in.GuestEmail, in.GuestPhone)
	default:
		return model.Requester{}, &model.ValidationError{
			Msg: "either an authenticated consumer or guest contact details are required",
		}
	}
}

// ─── Quote submission ────────────────────────────────────────────────────────

// SubmitQuote records a priced response on a lead match and moves the match
// from pending to quoted. Returns ErrNotFound for an unknown match,
// ErrForbidden when the caller does not own it, and ErrConflict when the
// match already left pending (a second quote lost the race).
func (s *Service) SubmitQuote(ctx context.Context, matchID, partnerID string, price float64, message string) (model.Quote, error) {
	m, err := s.store.GetLeadMatch(ctx, matchID)
	if err != nil {
		return model.Quote{}, err
	}
	if m.PartnerID != partnerID {
		return model.Quote{}, model.ErrForbidden
	}
	if !(price > 0) {
		return model.Quote{}, &model.ValidationError{Msg: "price must be a positive number"}
	}

	now := time.Now().UTC()
	q := model.Quote{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		PartnerID: partnerID,
		Price:     price,
		Message:   message,
		Status:    model.QuoteSent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateQuote(ctx, q); err != nil {
		return model.Quote{}, err
	}

	s.pub.Publish(ctx, events.ChannelQuoteSubmitted, map[string]string{
		"quoteId":      q.ID,
		"matchId":      matchID,
		"jobRequestId": m.JobRequestID,
		"partnerId":    partnerID,
	})

	return q, nil
}

// ─── Read surfaces ───────────────────────────────────────────────────────────

// ListRequestsForConsumer returns the consumer's requests, newest first,
// each with its match list, partner display fields and any attached quote.
func (s *Service) ListRequestsForConsumer(ctx context.Context, consumerID string) ([]model.ConsumerRequestView, error) {
	return s.store.ListRequestsByConsumer(ctx, consumerID)
}

// ListLeadsForPartner returns the partner's own leads with the parent
// request's public fields and the partner's quote, if any. Other partners'
// quotes on the same request are never visible here.
func (s *Service) ListLeadsForPartner(ctx context.Context, partnerID string) ([]model.PartnerLeadView, error) {
	return s.store.ListLeadsByPartner(ctx, partnerID)
}

// ResolvePartner maps an authenticated user id to their partner profile.
func (s *Service) ResolvePartner(ctx context.Context, userID string) (model.Partner, error) {
	return s.store.GetPartnerByUser(ctx, userID)
}

// ─── Directory management ────────────────────────────────────────────────────

// RegisterPartner adds a candidate directory entry for the given user.
func (s *Service) RegisterPartner(ctx context.Context, userID, displayName, category, serviceAreaCode string) (model.Partner, error) {
	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(category) == "" || strings.TrimSpace(serviceAreaCode) == "" {
		return model.Partner{}, &model.ValidationError{
			Msg: "displayName, category and serviceAreaCode are all required",
		}
	}
	p := model.Partner{
		ID:              uuid.NewString(),
		UserID:          userID,
		DisplayName:     displayName,
		Category:        category,
		ServiceAreaCode: serviceAreaCode,
	}
	if err := s.store.CreatePartner(ctx, p); err != nil {
		return model.Partner{}, fmt.Errorf("create partner: %w", err)
	}
	return p, nil
}

// ─── Deletion ────────────────────────────────────────────────────────────────

// DeleteJobRequest removes a consumer's own request together with its
// matches and quotes. Guest-submitted requests have no owning account and
// cannot be deleted through this path.
func (s *Service) DeleteJobRequest(ctx context.Context, consumerID, requestID string) error {
	req, err := s.store.GetJobRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Requester.ConsumerID != consumerID {
		return model.ErrForbidden
	}
	return s.store.DeleteJobRequest(ctx, requestID)
}
