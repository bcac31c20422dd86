// Package httpx renders JSON responses for the persistence REST surface.
// Error bodies always carry a string "error" so callers can surface it as is.
package httpx

import (
	"net/http"

	"github.com/ageniuscoder/mmchat/gateway/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func OK(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

func Err(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// Invalid answers 400 with the first failure as "error" and every failure
// listed under "details".
func Invalid(c *gin.Context, errs validator.ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   utils.Summary(errs),
		"details": utils.ValidationErr(errs),
	})
}
