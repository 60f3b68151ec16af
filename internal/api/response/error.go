package response

import "github.com/gin-gonic/gin"

// AbortWithError writes an error envelope and stops the remaining handlers.
func AbortWithError(c *gin.Context, code int, message string) {
	ErrorResponse(c, code, message)
	c.Abort()
}
