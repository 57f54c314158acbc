// Package restapi implements the job submission and runtime discovery
// endpoints of the judge server.
package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/judgecore/judge/cmd/judged/model"
	"github.com/judgecore/judge/internal/facade"
	"github.com/judgecore/judge/internal/runtime"
)

type jobHandle struct {
	facade   *facade.Facade
	registry runtime.Registry
	logger   *zap.Logger
}

// NewJobHandle creates the handler backing POST /jobs.
func NewJobHandle(f *facade.Facade, registry runtime.Registry, logger *zap.Logger) Register {
	return &jobHandle{facade: f, registry: registry, logger: logger}
}

func (h *jobHandle) Register(r *gin.Engine) {
	r.POST("/jobs", h.handleSubmit)
}

func (h *jobHandle) handleSubmit(c *gin.Context) {
	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := model.ConvertRequest(&req, h.registry)
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.facade.Submit(c.Request.Context(), spec)
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := model.ConvertOutcome(out)

	// encode json directly to avoid an extra allocation from c.JSON
	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(c.Writer).Encode(resp); err != nil {
		c.Error(err)
	}
}
