package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/allocation"
)

// WorkflowHandler handles stock allocation workflows
type WorkflowHandler struct {
	BaseHandler
	workflows *allocation.Service
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(workflows *allocation.Service) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// LogsQuery are the query parameters of the run log listing
type LogsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// List lists all workflows.
// GET /workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	ws, err := h.workflows.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ws)
}

// Create creates a workflow; its first run is scheduled immediately.
// POST /workflows
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req allocation.WorkflowRequest
	if !h.BindJSON(c, &req) {
		return
	}
	w, err := h.workflows.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, w)
}

// Get returns one workflow.
// GET /workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	w, err := h.workflows.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, w)
}

// Update replaces a workflow definition.
// PUT /workflows/:id
func (h *WorkflowHandler) Update(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	var req allocation.WorkflowRequest
	if !h.BindJSON(c, &req) {
		return
	}
	w, err := h.workflows.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, w)
}

// Delete removes a workflow and its logs.
// DELETE /workflows/:id
func (h *WorkflowHandler) Delete(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	if err := h.workflows.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Toggle flips the active flag.
// POST /workflows/:id/toggle
func (h *WorkflowHandler) Toggle(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	w, err := h.workflows.Toggle(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, w)
}

// Run executes a workflow now and returns its run log.
// POST /workflows/:id/run
func (h *WorkflowHandler) Run(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	l, err := h.workflows.RunNow(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, l)
}

// Logs lists the newest run logs.
// GET /workflows/:id/logs
func (h *WorkflowHandler) Logs(c *gin.Context) {
	id, ok := h.workflowID(c)
	if !ok {
		return
	}
	var q LogsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	logs, err := h.workflows.Logs(c.Request.Context(), id, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, logs)
}

func (h *WorkflowHandler) workflowID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid workflow ID format")
		return uuid.Nil, false
	}
	return id, true
}
