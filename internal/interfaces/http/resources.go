package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/service"
)

var pageParams = map[string]bool{
	"limit":    true,
	"offset":   true,
	"sort_key": true,
	"sort_dir": true,
}

// resourceHandlers serves CRUD for one kind of business record. Records are
// wrapped in an object keyed by single, listings by plural.
type resourceHandlers[T any] struct {
	svc    service.ResourceService[T]
	single string
	plural string
	logger Logger
}

// registerResource mounts the CRUD routes of svc under path
func registerResource[T any](
	group *gin.RouterGroup,
	path, single, plural string,
	svc service.ResourceService[T],
	logger Logger,
) {
	if svc == nil {
		return
	}
	h := &resourceHandlers[T]{svc: svc, single: single, plural: plural, logger: logger}

	g := group.Group(path)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// list treats every query parameter other than paging as an exact-match
// column filter; the repository rejects columns it does not allow.
func (h *resourceHandlers[T]) list(c *gin.Context) {
	var page PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}

	equals := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if pageParams[key] || len(values) == 0 {
			continue
		}
		equals[key] = values[0]
	}

	records, total, err := h.svc.List(c.Request.Context(), port.ResourceFilter{Equals: equals, Page: page.page()})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if records == nil {
		records = []*T{}
	}
	c.JSON(http.StatusOK, gin.H{h.plural: records, "total": total})
}

func (h *resourceHandlers[T]) get(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{h.single: record})
}

func (h *resourceHandlers[T]) create(c *gin.Context) {
	record, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.Create(c.Request.Context(), callerOf(c), record); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{h.single: record})
}

func (h *resourceHandlers[T]) update(c *gin.Context) {
	record, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.Update(c.Request.Context(), callerOf(c), c.Param("id"), record); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{h.single: record})
}

func (h *resourceHandlers[T]) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), callerOf(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bind decodes {"<single>": {...}} and reports whether a record was present
func (h *resourceHandlers[T]) bind(c *gin.Context) (*T, bool) {
	body := make(map[string]*T)
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return nil, false
	}
	record := body[h.single]
	if record == nil {
		badRequest(c, errors.New(h.single+" is required"))
		return nil, false
	}
	return record, true
}
