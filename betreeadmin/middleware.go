package betreeadmin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationIDHeader is the header a caller may supply to thread its own
// correlation id through the logs of a single request; one is generated
// when absent.
const CorrelationIDHeader = "X-Correlation-Id"

// correlationID stamps every request with an id, echoing an incoming one so
// a caller's own trace stitches together with this service's logs.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("correlation_id", id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}
