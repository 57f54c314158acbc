package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/judgecore/judge/internal/runtime"
)

type runtimeHandle struct {
	registry runtime.Registry
}

// NewRuntimeHandle creates the handler backing GET /runtimes.
func NewRuntimeHandle(registry runtime.Registry) Register {
	return &runtimeHandle{registry: registry}
}

func (h *runtimeHandle) Register(r *gin.Engine) {
	r.GET("/runtimes", h.handleList)
}

type runtimeView struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases,omitempty"`
	Compiled bool     `json:"compiled"`
}

func (h *runtimeHandle) handleList(c *gin.Context) {
	all := h.registry.All()
	views := make([]runtimeView, len(all))
	for i, rt := range all {
		views[i] = runtimeView{
			Language: rt.Language,
			Version:  rt.Version,
			Aliases:  rt.Aliases,
			Compiled: rt.Compiled,
		}
	}
	c.JSON(http.StatusOK, views)
}
