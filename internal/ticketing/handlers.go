package ticketing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/internal/server"
	"github.com/HerbHall/watchdesk/pkg/models"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// createTicketRequest is the JSON body for POST /tickets.
type createTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
	Requester   string `json:"requester"`
}

// updateTicketRequest is the JSON body for PUT /tickets/{id}.
type updateTicketRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	Category    string `json:"category,omitempty"`
}

// assignTicketRequest is the JSON body for POST /tickets/{id}/assign.
type assignTicketRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/tickets", Handler: m.handleListTickets},
		{Method: "POST", Path: "/tickets", Handler: m.handleCreateTicket},
		{Method: "GET", Path: "/tickets/{id}", Handler: m.handleGetTicket},
		{Method: "PUT", Path: "/tickets/{id}", Handler: m.handleUpdateTicket},
		{Method: "POST", Path: "/tickets/{id}/assign", Handler: m.handleAssignTicket},
	}
}

// handleListTickets returns a filtered, paginated ticket list.
//
//	@Summary		List tickets
//	@Description	Returns tickets with optional filters and pagination.
//	@Tags			ticketing
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status query string false "Filter by status"
//	@Param			priority query string false "Filter by priority"
//	@Param			type query string false "Filter by ticket type"
//	@Param			assigned_to query string false "Filter by assignee"
//	@Param			device_id query string false "Filter by originating device"
//	@Param			limit query int false "Maximum results" default(50)
//	@Param			offset query int false "Results to skip" default(0)
//	@Success		200 {object} ListResult
//	@Failure		500 {object} server.Problem
//	@Router			/ticketing/tickets [get]
func (m *Module) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := TicketFilter{
		Status:     r.URL.Query().Get("status"),
		Priority:   r.URL.Query().Get("priority"),
		Type:       r.URL.Query().Get("type"),
		AssignedTo: r.URL.Query().Get("assigned_to"),
		DeviceID:   r.URL.Query().Get("device_id"),
	}
	opts := ListOptions{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	result, err := m.repo.List(r.Context(), filter, opts)
	if err != nil {
		m.logger.Warn("failed to list tickets", zap.Error(err))
		server.InternalError(w, "failed to list tickets", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetTicket returns a single ticket.
//
//	@Summary		Get ticket
//	@Description	Returns a single ticket by ID.
//	@Tags			ticketing
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Ticket ID"
//	@Success		200 {object} models.Ticket
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/ticketing/tickets/{id} [get]
func (m *Module) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ticket, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "ticket not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get ticket", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get ticket", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleCreateTicket opens a new ticket.
//
//	@Summary		Create ticket
//	@Description	Opens a new ticket and announces it on the event bus.
//	@Tags			ticketing
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body body createTicketRequest true "Ticket definition"
//	@Success		201 {object} models.Ticket
//	@Failure		400 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/ticketing/tickets [post]
func (m *Module) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.Title == "" {
		server.BadRequest(w, "title is required", r.URL.Path)
		return
	}
	if req.Requester == "" {
		server.BadRequest(w, "requester is required", r.URL.Path)
		return
	}
	if req.Type != "" && !models.TicketType(req.Type).Valid() {
		server.BadRequest(w, "unknown ticket type", r.URL.Path)
		return
	}
	if req.Priority != "" && !models.TicketPriority(req.Priority).Valid() {
		server.BadRequest(w, "unknown priority", r.URL.Path)
		return
	}

	ticket := models.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Type:        models.TicketType(req.Type),
		Priority:    models.TicketPriority(req.Priority),
		Category:    req.Category,
		Requester:   req.Requester,
	}
	if err := m.CreateTicket(r.Context(), &ticket); err != nil {
		m.logger.Warn("failed to create ticket", zap.Error(err))
		server.InternalError(w, "failed to create ticket", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// handleUpdateTicket updates ticket fields.
//
//	@Summary		Update ticket
//	@Description	Updates mutable ticket fields and announces the change.
//	@Tags			ticketing
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Ticket ID"
//	@Param			body body updateTicketRequest true "Fields to update"
//	@Success		200 {object} models.Ticket
//	@Failure		400 {object} server.Problem
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/ticketing/tickets/{id} [put]
func (m *Module) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "ticket not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get ticket for update", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get ticket", r.URL.Path)
		return
	}

	var req updateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Category != "" {
		existing.Category = req.Category
	}
	if req.Priority != "" {
		if !models.TicketPriority(req.Priority).Valid() {
			server.BadRequest(w, "unknown priority", r.URL.Path)
			return
		}
		existing.Priority = models.TicketPriority(req.Priority)
	}
	if req.Status != "" {
		if !models.TicketStatus(req.Status).Valid() {
			server.BadRequest(w, "unknown status", r.URL.Path)
			return
		}
		existing.Status = models.TicketStatus(req.Status)
	}

	if err := m.repo.Update(r.Context(), existing); err != nil {
		m.logger.Warn("failed to update ticket", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to update ticket", r.URL.Path)
		return
	}
	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:   TopicTicketUpdated,
			Source:  "ticketing",
			Payload: *existing,
		})
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleAssignTicket assigns a ticket to an agent.
//
//	@Summary		Assign ticket
//	@Description	Assigns the ticket and moves it to the assigned state.
//	@Tags			ticketing
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Ticket ID"
//	@Param			body body assignTicketRequest true "Assignee"
//	@Success		200 {object} models.Ticket
//	@Failure		400 {object} server.Problem
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/ticketing/tickets/{id}/assign [post]
func (m *Module) handleAssignTicket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "ticket not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get ticket for assign", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get ticket", r.URL.Path)
		return
	}

	var req assignTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.AssignedTo == "" {
		server.BadRequest(w, "assigned_to is required", r.URL.Path)
		return
	}

	existing.AssignedTo = req.AssignedTo
	if existing.Status == models.TicketStatusNew {
		existing.Status = models.TicketStatusAssigned
	}
	if err := m.repo.Update(r.Context(), existing); err != nil {
		m.logger.Warn("failed to assign ticket", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to assign ticket", r.URL.Path)
		return
	}
	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:   TopicTicketAssigned,
			Source:  "ticketing",
			Payload: *existing,
		})
	}
	writeJSON(w, http.StatusOK, existing)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
