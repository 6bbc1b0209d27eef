package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marfateam/rcalendar/internal/calendar/application/queries"
	"github.com/marfateam/rcalendar/internal/directory/application/commands"
)

// DirectoryHandler handles organization, manager and resource requests.
type DirectoryHandler struct {
	registerOrganization *commands.RegisterOrganizationHandler
	registerManager      *commands.RegisterManagerHandler
	registerResource     *commands.RegisterResourceHandler
	addManagers          *commands.AddManagersHandler
	addResources         *commands.AddResourcesHandler
	deleteOrganization   *commands.DeleteOrganizationHandler
	deleteManager        *commands.DeleteManagerHandler
	deleteResource       *commands.DeleteResourceHandler
	organizationView     *queries.OrganizationViewHandler
	logger               *slog.Logger
}

// DirectoryHandlerConfig holds dependencies for the directory handler.
type DirectoryHandlerConfig struct {
	RegisterOrganization *commands.RegisterOrganizationHandler
	RegisterManager      *commands.RegisterManagerHandler
	RegisterResource     *commands.RegisterResourceHandler
	AddManagers          *commands.AddManagersHandler
	AddResources         *commands.AddResourcesHandler
	DeleteOrganization   *commands.DeleteOrganizationHandler
	DeleteManager        *commands.DeleteManagerHandler
	DeleteResource       *commands.DeleteResourceHandler
	OrganizationView     *queries.OrganizationViewHandler
	Logger               *slog.Logger
}

// NewDirectoryHandler creates a new directory handler.
func NewDirectoryHandler(cfg DirectoryHandlerConfig) *DirectoryHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DirectoryHandler{
		registerOrganization: cfg.RegisterOrganization,
		registerManager:      cfg.RegisterManager,
		registerResource:     cfg.RegisterResource,
		addManagers:          cfg.AddManagers,
		addResources:         cfg.AddResources,
		deleteOrganization:   cfg.DeleteOrganization,
		deleteManager:        cfg.DeleteManager,
		deleteResource:       cfg.DeleteResource,
		organizationView:     cfg.OrganizationView,
		logger:               cfg.Logger,
	}
}

// CreateOrganization handles POST /organization/
//
// Registration is idempotent: posting an id that already exists answers
// with the existing organization's view.
func (h *DirectoryHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID *int64 `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ID == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("id", msgFieldRequired))
		return
	}

	app := appFrom(r.Context())
	cmd := commands.RegisterOrganizationCommand{App: app, ID: *body.ID}
	if _, err := h.registerOrganization.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	view, err := h.organizationView.Handle(r.Context(), queries.OrganizationViewQuery{
		App:          app,
		Organization: *body.ID,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetOrganization handles GET /organization/{id}/
func (h *DirectoryHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.organizationView.Handle(r.Context(), queries.OrganizationViewQuery{
		App:          appFrom(r.Context()),
		Organization: id,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteOrganization handles DELETE /organization/{id}/
func (h *DirectoryHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cmd := commands.DeleteOrganizationCommand{App: appFrom(r.Context()), ID: id}
	if err := h.deleteOrganization.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// CreateManager handles POST /manager/
func (h *DirectoryHandler) CreateManager(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID *int64 `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ID == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("id", msgFieldRequired))
		return
	}

	cmd := commands.RegisterManagerCommand{App: appFrom(r.Context()), ID: *body.ID}
	if _, err := h.registerManager.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": *body.ID})
}

// AddManagers handles POST /manager/add_many/
//
// Attaches the listed managers to one organization, registering any
// that are new. The response counts managers newly attached.
func (h *DirectoryHandler) AddManagers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs          []int64 `json:"ids"`
		Organization *int64  `json:"organization"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.IDs) == 0 || body.Organization == nil {
		// Callers match on this exact string, typo included.
		writeJSON(w, http.StatusBadRequest, map[string]string{"ids": "This fields is required."})
		return
	}

	cmd := commands.AddManagersCommand{
		App:          appFrom(r.Context()),
		IDs:          body.IDs,
		Organization: *body.Organization,
	}
	result, err := h.addManagers.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"count": result.Count})
}

// DeleteManager handles DELETE /manager/{id}/
//
// With an organization query parameter the manager is only detached
// from that organization; without one the manager is removed entirely.
func (h *DirectoryHandler) DeleteManager(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cmd := commands.DeleteManagerCommand{App: appFrom(r.Context()), ID: id}
	if raw := r.URL.Query().Get("organization"); raw != "" {
		org, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, fieldError("organization", msgInvalidInteger))
			return
		}
		cmd.Organization = &org
	}
	if err := h.deleteManager.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if cmd.Organization != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// CreateResource handles POST /resource/
func (h *DirectoryHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID *int64 `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ID == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("id", msgFieldRequired))
		return
	}

	cmd := commands.RegisterResourceCommand{App: appFrom(r.Context()), ID: *body.ID}
	if _, err := h.registerResource.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": *body.ID})
}

// AddResources handles POST /resource/add_many/
//
// Registers the listed resources and, when an organization is named,
// joins each one to it. The response counts resources newly created.
func (h *DirectoryHandler) AddResources(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs          []int64 `json:"ids"`
		Organization *int64  `json:"organization"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.IDs) == 0 {
		// Callers match on this exact string, typo included.
		writeJSON(w, http.StatusBadRequest, map[string]string{"ids": "This fields is required."})
		return
	}

	cmd := commands.AddResourcesCommand{
		App:          appFrom(r.Context()),
		IDs:          body.IDs,
		Organization: body.Organization,
	}
	result, err := h.addResources.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": result.Created})
}

// DeleteResource handles DELETE /resource/{id}/
func (h *DirectoryHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cmd := commands.DeleteResourceCommand{App: appFrom(r.Context()), ID: id}
	if err := h.deleteResource.Handle(r.Context(), cmd); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Helper functions

// decodeBody decodes a JSON request body. An empty body reads as an
// empty object so required-field checks report the missing fields
// instead of a parse error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error - "+err.Error()))
		return false
	}
	return true
}

// pathID parses the {id} path segment. A non-numeric id cannot name an
// existing row, so it renders as not found.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, detail(msgNotFound))
		return 0, false
	}
	return id, true
}
