package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aflo-dev/aflo/internal/application/service"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/export"
)

// Handlers contains the ticket, definition and operational HTTP handlers
type Handlers struct {
	tickets     service.TicketService
	definitions service.DefinitionService
	exporter    *export.TicketExporter
	health      HealthFunc
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		tickets:     services.Tickets,
		definitions: services.Definitions,
		exporter:    services.Exporter,
		health:      health,
		logger:      logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// PageQuery holds the pagination query parameters
type PageQuery struct {
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
	SortKey string `form:"sort_key"`
	SortDir string `form:"sort_dir"`
}

func (q PageQuery) page() entity.Page {
	return entity.Page{Limit: q.Limit, Offset: q.Offset, SortKey: q.SortKey, SortDir: q.SortDir}
}

// ListTicketsQuery represents query parameters for listing tickets
type ListTicketsQuery struct {
	PageQuery
	TenantID         string `form:"tenant_id"`
	TicketTemplateID string `form:"ticket_template_id"`
	TicketType       string `form:"ticket_type"`
	StatusCode       string `form:"status_code"`
	TargetID         string `form:"target_id"`
	OwnerID          string `form:"owner_id"`
	IncludeDeleted   bool   `form:"include_deleted"`
}

func (q ListTicketsQuery) filter() entity.TicketFilter {
	return entity.TicketFilter{
		TenantID:         q.TenantID,
		TicketTemplateID: q.TicketTemplateID,
		TicketType:       q.TicketType,
		StatusCode:       q.StatusCode,
		TargetID:         q.TargetID,
		OwnerID:          q.OwnerID,
		IncludeDeleted:   q.IncludeDeleted,
		Page:             q.page(),
	}
}

// CreateTicketRequest is the body of POST /tickets
type CreateTicketRequest struct {
	Ticket struct {
		TicketTemplateID string          `json:"ticket_template_id"`
		StatusCode       string          `json:"status_code"`
		TargetID         string          `json:"target_id"`
		TicketDetail     entity.Document `json:"ticket_detail"`
	} `json:"ticket"`
}

// TransitionTicketRequest is the body of PUT /tickets/:id
type TransitionTicketRequest struct {
	Ticket struct {
		LastStatusCode string          `json:"last_status_code"`
		LastWorkflowID string          `json:"last_workflow_id"`
		NextStatusCode string          `json:"next_status_code"`
		NextWorkflowID string          `json:"next_workflow_id"`
		AdditionalData entity.Document `json:"additional_data"`
	} `json:"ticket"`
}

// TicketCreatedResponse acknowledges an accepted create
type TicketCreatedResponse struct {
	Ticket struct {
		ID string `json:"id"`
	} `json:"ticket"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if h.health != nil {
		ok, components := h.health(c.Request.Context())
		response.Components = components
		if !ok {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, response)
}

// ListTickets handles GET /api/v1/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	var query ListTicketsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	tickets, total, err := h.tickets.List(c.Request.Context(), callerOf(c), query.filter())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if tickets == nil {
		tickets = []*entity.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": total})
}

// GetTicket handles GET /api/v1/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	ticket, err := h.tickets.Get(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// CreateTicket handles POST /api/v1/tickets
func (h *Handlers) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.tickets.Create(c.Request.Context(), callerOf(c), workflow.CreateRequest{
		TicketTemplateID: req.Ticket.TicketTemplateID,
		StatusCode:       req.Ticket.StatusCode,
		TargetID:         req.Ticket.TargetID,
		TicketDetail:     req.Ticket.TicketDetail,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var resp TicketCreatedResponse
	resp.Ticket.ID = id
	c.JSON(http.StatusAccepted, resp)
}

// TransitionTicket handles PUT /api/v1/tickets/:id
func (h *Handlers) TransitionTicket(c *gin.Context) {
	var req TransitionTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	caller := callerOf(c)
	id := c.Param("id")
	err := h.tickets.Transition(ctx, caller, workflow.TransitionRequest{
		TicketID:       id,
		LastStatusCode: req.Ticket.LastStatusCode,
		LastWorkflowID: req.Ticket.LastWorkflowID,
		NextStatusCode: req.Ticket.NextStatusCode,
		NextWorkflowID: req.Ticket.NextWorkflowID,
		AdditionalData: req.Ticket.AdditionalData,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	ticket, err := h.tickets.Get(ctx, caller, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// DeleteTicket handles DELETE /api/v1/tickets/:id
func (h *Handlers) DeleteTicket(c *gin.Context) {
	if err := h.tickets.Delete(c.Request.Context(), callerOf(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPatterns handles GET /api/v1/workflowpatterns
func (h *Handlers) ListPatterns(c *gin.Context) {
	patterns, err := h.definitions.ListPatterns(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if patterns == nil {
		patterns = []*entity.WorkflowPattern{}
	}
	c.JSON(http.StatusOK, gin.H{"workflow_patterns": patterns})
}

// GetPattern handles GET /api/v1/workflowpatterns/:id
func (h *Handlers) GetPattern(c *gin.Context) {
	pattern, err := h.definitions.GetPattern(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow_pattern": pattern})
}

// CreatePattern handles POST /api/v1/workflowpatterns
func (h *Handlers) CreatePattern(c *gin.Context) {
	var body struct {
		Pattern *entity.WorkflowPattern `json:"workflow_pattern"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.Pattern == nil {
		badRequest(c, errors.New("workflow_pattern is required"))
		return
	}

	if err := h.definitions.CreatePattern(c.Request.Context(), callerOf(c), body.Pattern); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workflow_pattern": body.Pattern})
}

// DeletePattern handles DELETE /api/v1/workflowpatterns/:id
func (h *Handlers) DeletePattern(c *gin.Context) {
	if err := h.definitions.DeletePattern(c.Request.Context(), callerOf(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTemplates handles GET /api/v1/tickettemplates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.definitions.ListTemplates(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if templates == nil {
		templates = []*entity.TicketTemplate{}
	}
	c.JSON(http.StatusOK, gin.H{"ticket_templates": templates})
}

// GetTemplate handles GET /api/v1/tickettemplates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	template, err := h.definitions.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket_template": template})
}

// CreateTemplate handles POST /api/v1/tickettemplates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var body struct {
		Template *entity.TicketTemplate `json:"ticket_template"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.Template == nil {
		badRequest(c, errors.New("ticket_template is required"))
		return
	}

	if err := h.definitions.CreateTemplate(c.Request.Context(), callerOf(c), body.Template); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket_template": body.Template})
}

// DeleteTemplate handles DELETE /api/v1/tickettemplates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	if err := h.definitions.DeleteTemplate(c.Request.Context(), callerOf(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportTickets handles GET /api/v1/exports/tickets
func (h *Handlers) ExportTickets(c *gin.Context) {
	var query ListTicketsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	tickets, _, err := h.tickets.List(c.Request.Context(), callerOf(c), query.filter())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, tickets); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tickets.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
