package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/toolbridge/internal/service/orchestrator"
	"github.com/mcpjungle/toolbridge/pkg/types"
)

// getRunHandler returns the current state of the invocations of a run in progress.
func (s *Server) getRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run")
		v, ok := s.runs.Load(runID)
		if !ok {
			abortWithError(c, http.StatusNotFound, fmt.Errorf("run %s not found", runID))
			return
		}
		c.JSON(http.StatusOK, v.(*orchestrator.Aggregate).Snapshot())
	}
}

func (s *Server) listConfirmationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.broker.Pending(c.Param("run")))
	}
}

func (s *Server) confirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ConfirmInvocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}

		if err := s.broker.Resolve(c.Param("run"), c.Param("id"), input.Confirmed); err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
