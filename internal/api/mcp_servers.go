package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/pkg/types"
)

func (s *Server) registerServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.RegisterServerInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}

		server, err := model.NewMcpServerFromInput(&input)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}

		if err := s.mcpService.RegisterMcpServer(c, server); err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}

		s.respondServer(c, http.StatusCreated, server)
	}
}

func (s *Server) deregisterServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.mcpService.DeregisterMcpServer(c.Param("name")); err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) activateServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		server, err := s.mcpService.ActivateMcpServer(c, c.Param("name"))
		if err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}
		s.respondServer(c, http.StatusOK, server)
	}
}

func (s *Server) setAutoApproveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.SetAutoApproveInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}

		server, err := s.mcpService.SetDisabledAutoApproveTools(c.Param("name"), input.DisabledAutoApproveTools)
		if err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}
		s.respondServer(c, http.StatusOK, server)
	}
}

func (s *Server) listServersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := s.mcpService.ListMcpServers()
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}

		servers := make([]*types.McpServer, 0, len(records))
		for i := range records {
			d, err := records[i].ToDescriptor()
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, err)
				return
			}
			servers = append(servers, d)
		}
		c.JSON(http.StatusOK, servers)
	}
}

// respondServer writes the public descriptor of a server, which never includes its secrets.
func (s *Server) respondServer(c *gin.Context, status int, server *model.McpServer) {
	d, err := server.ToDescriptor()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(status, d)
}
