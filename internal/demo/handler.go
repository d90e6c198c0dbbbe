package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ledgerlink/internal/auth"
	"github.com/noah-isme/ledgerlink/internal/observability"
	"github.com/noah-isme/ledgerlink/internal/platform/httpx"
	"github.com/noah-isme/ledgerlink/internal/view"
	"github.com/noah-isme/ledgerlink/internal/xero"
)

// Handler wires the accounting demo endpoints.
type Handler struct {
	logger    *slog.Logger
	api       API
	pipeline  *Pipeline
	templates *view.Engine
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, api API, pipeline *Pipeline, templates *view.Engine, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		api:       api,
		pipeline:  pipeline,
		templates: templates,
		metrics:   metrics,
	}
}

// MountRoutes registers demo routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/task-prompt", h.handleTaskPrompt)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireState(h.logger))
		r.Get("/organisation", h.handleOrganisation)
		r.Get("/invoice", h.handleInvoice)
		r.Get("/contact", h.handleContact)
		r.Get("/execute", h.handleExecute)
	})
}

func (h *Handler) handleOrganisation(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())

	// Expiry is observed and logged, not enforced; the upstream call decides.
	if state.TokenSet.Expired() {
		h.logger.Warn("access token expired", slog.Time("expired_at", state.TokenSet.ExpiresAt))
	} else {
		h.logger.Info("access token valid", slog.Time("expires_at", state.TokenSet.ExpiresAt))
	}

	resp, err := h.api.GetOrganisations(r.Context(), state.APIAuth())
	if err != nil {
		h.respondUpstream(w, err)
		return
	}
	if len(resp.Organisations) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: organisation", httpx.ErrNotFound))
		return
	}

	active, _ := state.ActiveTenant()
	data := view.TemplateData{
		Title: "Organisation",
		Data: map[string]any{
			"Organisation": resp.Organisations[0],
			"Tenant":       active,
		},
	}
	if err := h.templates.Render(w, "pages/organisation.html", data); err != nil {
		h.logger.Error("render organisation", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())
	apiAuth := state.APIAuth()

	contacts, err := h.api.GetContacts(r.Context(), apiAuth)
	if err != nil {
		h.respondUpstream(w, err)
		return
	}
	if len(contacts.Contacts) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: tenant has no contacts", httpx.ErrValidation))
		return
	}

	accounts, err := h.api.GetAccounts(r.Context(), apiAuth, `Status=="ACTIVE" AND Type=="SALES"`)
	if err != nil {
		h.respondUpstream(w, err)
		return
	}
	if len(accounts.Accounts) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: tenant has no active sales accounts", httpx.ErrValidation))
		return
	}

	invoice := xero.Invoice{
		Type:    xero.InvoiceTypeReceivable,
		Contact: xero.ContactRef{ContactID: contacts.Contacts[0].ContactID},
		Date:    h.pipeline.now().Format("2006-01-02"),
		DueDate: h.pipeline.now().AddDate(0, 0, 1).Format("2006-01-02"),
		LineItems: []xero.LineItem{{
			Description: "consulting",
			Quantity:    1.0,
			UnitAmount:  10.0,
			AccountCode: accounts.Accounts[0].Code,
		}},
	}
	resp, err := h.api.CreateInvoices(r.Context(), apiAuth, []xero.Invoice{invoice})
	if err != nil {
		h.respondUpstream(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp.Invoices)
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())

	contact := xero.Contact{
		Name:         "Bruce Banner",
		EmailAddress: "hulk@avengers.com",
		Phones: []xero.Phone{{
			PhoneType:   "MOBILE",
			PhoneNumber: "555-555-5555",
		}},
	}
	resp, err := h.api.CreateContacts(r.Context(), state.APIAuth(), []xero.Contact{contact})
	if err != nil {
		h.respondUpstream(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp.Contacts)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())

	results, err := h.pipeline.Execute(r.Context(), state.APIAuth())
	if err != nil {
		h.metrics.ObserveChainRun("error")
		h.respondUpstream(w, err)
		return
	}
	h.metrics.ObserveChainRun("success")
	httpx.JSON(w, http.StatusOK, results)
}

func (h *Handler) handleTaskPrompt(w http.ResponseWriter, r *http.Request) {
	data := view.TemplateData{
		Title: "Demo Scenario",
		Data: map[string]any{
			"SurfboardPrice":     surfboardSalesPrice.InexactFloat64(),
			"SkateboardPrice":    skateboardSalesPrice.InexactFloat64(),
			"SurfboardQuantity":  surfboardQuantity,
			"SkateboardQuantity": skateboardQuantity,
			"Subtotal": surfboardSalesPrice.Mul(decimalFromInt(surfboardQuantity)).
				Add(skateboardSalesPrice.Mul(decimalFromInt(skateboardQuantity))).InexactFloat64(),
		},
	}
	if err := h.templates.Render(w, "pages/taskprompt.html", data); err != nil {
		h.logger.Error("render task prompt", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) respondUpstream(w http.ResponseWriter, err error) {
	var apiErr *xero.APIError
	if errors.As(err, &apiErr) {
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", err.Error())
		return
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", err.Error())
		return
	}
	httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
}
