package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/toolbridge/internal/provider"
	"github.com/mcpjungle/toolbridge/pkg/types"
)

// listToolsHandler returns the tool catalog.
// With ?provider=<family> the catalog is rendered in that provider's tool registration shape,
// otherwise the descriptors are returned as is. ?servers=a,b restricts the catalog to those servers.
func (s *Server) listToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tools, err := s.mcpService.ListTools()
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}

		if names := c.Query("servers"); names != "" {
			var servers []types.McpServer
			for _, name := range strings.Split(names, ",") {
				servers = append(servers, types.McpServer{Name: strings.TrimSpace(name)})
			}
			tools = provider.FilterToolsByServers(tools, servers)
		}

		family := c.Query("provider")
		if family == "" {
			c.JSON(http.StatusOK, tools)
			return
		}

		adapter, err := lookupAdapter(family)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, adapter.Tools(tools))
	}
}

func (s *Server) enableToolsHandler() gin.HandlerFunc {
	return s.setToolsEnabledHandler(true)
}

func (s *Server) disableToolsHandler() gin.HandlerFunc {
	return s.setToolsEnabledHandler(false)
}

// setToolsEnabledHandler (en|dis)ables the tool or server named by the ?entity= query parameter.
func (s *Server) setToolsEnabledHandler(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		entity := c.Query("entity")
		if entity == "" {
			abortWithError(c, http.StatusBadRequest, errors.New("missing 'entity' query parameter"))
			return
		}

		var (
			changed []string
			err     error
		)
		if enabled {
			changed, err = s.mcpService.EnableTools(entity)
		} else {
			changed, err = s.mcpService.DisableTools(entity)
		}
		if err != nil {
			abortWithError(c, errorStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, changed)
	}
}

func lookupAdapter(family string) (provider.Adapter, error) {
	f, err := provider.ParseFamily(family)
	if err != nil {
		return provider.Adapter{}, err
	}
	adapter, _ := provider.Lookup(f)
	return adapter, nil
}
