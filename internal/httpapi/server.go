// Package httpapi exposes the matching and quoting service over JSON/HTTP.
// It handles only transport concerns: decoding, identity extraction from the
// gateway-forwarded header, and mapping domain errors to status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/tradematch/internal/model"
	"github.com/example/tradematch/internal/service"
)

// identityHeader carries the authenticated user id, set by the external
// auth gateway. This service never validates credentials itself.
const identityHeader = "X-User-Id"

type Server struct {
	Svc *service.Service
}

func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/job-requests", func(r chi.Router) {
			r.Post("/", s.handleSubmitJobRequest)
			r.Get("/my-requests", s.handleMyRequests)
			r.Get("/leads", s.handleMyLeads)
			r.Post("/leads/{matchID}/quote", s.handleSubmitQuote)
			r.Delete("/{id}", s.handleDeleteRequest)
		})
		r.Post("/partners", s.handleRegisterPartner)
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+identityHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Intake ─────────────────────────────────────────────────────────────────

type submitRequestBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	PostalCode  string   `json:"postalCode"`
	Budget      *float64 `json:"budget,omitempty"`
	Images      []string `json:"images,omitempty"`
	GuestName   string   `json:"guestName,omitempty"`
	GuestEmail  string   `json:"guestEmail,omitempty"`
	GuestPhone  string   `json:"guestPhone,omitempty"`
}

func (s Server) handleSubmitJobRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	req, matchCount, err := s.Svc.SubmitJobRequest(r.Context(), service.SubmitRequestInput{
		ConsumerID:  identity(r),
		GuestName:   body.GuestName,
		GuestEmail:  body.GuestEmail,
		GuestPhone:  body.GuestPhone,
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		PostalCode:  body.PostalCode,
		Budget:      body.Budget,
		ImageKeys:   body.Images,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"jobRequest": req,
		"matchCount": matchCount,
	})
}

// ─── Read surfaces ──────────────────────────────────────────────────────────

func (s Server) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	consumerID := identity(r)
	if consumerID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return
	}

	requests, err := s.Svc.ListRequestsForConsumer(r.Context(), consumerID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s Server) handleMyLeads(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return
	}

	partner, err := s.Svc.ResolvePartner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("no partner profile for this account"))
			return
		}
		writeDomainErr(w, err)
		return
	}

	leads, err := s.Svc.ListLeadsForPartner(r.Context(), partner.ID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// ─── Quote submission ───────────────────────────────────────────────────────

type submitQuoteBody struct {
	Price   float64 `json:"price"`
	Message string  `json:"message"`
}

func (s Server) handleSubmitQuote(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return
	}

	partner, err := s.Svc.ResolvePartner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("no partner profile for this account"))
			return
		}
		writeDomainErr(w, err)
		return
	}

	var body submitQuoteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	quote, err := s.Svc.SubmitQuote(r.Context(), chi.URLParam(r, "matchID"), partner.ID, body.Price, body.Message)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quote": quote})
}

// ─── Deletion ───────────────────────────────────────────────────────────────

func (s Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	consumerID := identity(r)
	if consumerID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return
	}

	if err := s.Svc.DeleteJobRequest(r.Context(), consumerID, chi.URLParam(r, "id")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Directory ──────────────────────────────────────────────────────────────

type registerPartnerBody struct {
	DisplayName     string `json:"displayName"`
	Category        string `json:"category"`
	ServiceAreaCode string `json:"serviceAreaCode"`
}

func (s Server) handleRegisterPartner(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return
	}

	var body registerPartnerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	partner, err := s.Svc.RegisterPartner(r.Context(), userID, body.DisplayName, body.Category, body.ServiceAreaCode)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"partner": partner})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func identity(r *http.Request) string {
	return r.Header.Get(identityHeader)
}

// writeDomainErr maps domain errors to HTTP status codes.
func writeDomainErr(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeErr(w, http.StatusBadRequest, ve)
	case errors.Is(err, model.ErrForbidden):
		writeErr(w, http.StatusForbidden, err)
	case errors.Is(err, model.ErrNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, model.ErrConflict):
		writeErr(w, http.StatusConflict, err)
	default:
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("internal server error"))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
