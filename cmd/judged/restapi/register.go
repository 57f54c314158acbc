package restapi

import "github.com/gin-gonic/gin"

// Register attaches a handler's routes to the engine.
type Register interface {
	Register(*gin.Engine)
}
