package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/pkg/telemetry"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/pkg/utils"
)

// TerminalIDKey is the context key holding the normalized terminal id.
const TerminalIDKey = "terminal_id"

// TerminalMiddleware validates the :terminal path parameter and adds it to
// the gin and request contexts so logs are tagged with it.
func TerminalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.NormalizeTerminalID(c.Param("terminal"))
		if err != nil {
			response.BadRequest(c, "Invalid terminal id")
			c.Abort()
			return
		}

		c.Set(TerminalIDKey, id)
		c.Request = c.Request.WithContext(telemetry.WithTerminalID(c.Request.Context(), id))

		c.Next()
	}
}

// GetTerminalID returns the terminal id set by TerminalMiddleware.
func GetTerminalID(c *gin.Context) string {
	id, _ := c.Get(TerminalIDKey)
	s, _ := id.(string)
	return s
}
