package handlers

import (
	"net/http"

	"livrel_back_end/internal/apperr"

	"github.com/gin-gonic/gin"
)

// respondError mappe les kinds d'erreurs métier vers les statuts HTTP.
// Les échecs non typés restent des 500 génériques côté client.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Erreur interne"

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case apperr.KindPrecondition:
		status, message = http.StatusBadRequest, err.Error()
	case apperr.KindExpired:
		status, message = http.StatusGone, err.Error()
	case apperr.KindLimitReached:
		status, message = http.StatusForbidden, err.Error()
	case apperr.KindNotConfigured:
		status, message = http.StatusServiceUnavailable, err.Error()
	case apperr.KindMalformed:
		status, message = http.StatusBadRequest, err.Error()
	}

	c.JSON(status, gin.H{"status": "error", "message": message})
}
