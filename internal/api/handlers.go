package api

import (
	"github.com/aethra/qualis/internal/auth"
	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/suggest"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler bundles the services behind the HTTP surface
type Handler struct {
	Schema    *engine.SchemaService
	Records   *engine.RecordService
	Workflow  *engine.WorkflowEngine
	Links     *engine.LinkService
	Wizard    *engine.Wizard
	Notifier  *engine.Notifier
	Auth      *auth.Service
	Suggester suggest.Suggester
}

// respondError writes an error through the shared taxonomy
func respondError(c *gin.Context, err error) {
	status, body := errors.ToHTTPError(err)
	c.JSON(status, body)
}

// pathUUID parses a path parameter as a UUID, answering 400 itself on
// failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, errors.NewBadRequestError("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
