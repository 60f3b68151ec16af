package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/repository"

	"github.com/gin-gonic/gin"
)

// ContextSessionID is the gin context key holding the authenticated session.
const ContextSessionID = "session_id"

// SessionController handles session-related HTTP requests.
type SessionController struct {
	sessionService service.SessionService
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessionService service.SessionService) *SessionController {
	return &SessionController{
		sessionService: sessionService,
	}
}

// Create handles the new-session endpoint.
func (sc *SessionController) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := sc.sessionService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			response.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, resp)
}

// Get returns the latest snapshot of the authenticated session. It must run
// behind RequireSessionToken.
func (sc *SessionController) Get(c *gin.Context) {
	snap, err := sc.sessionService.Get(c.Request.Context(), c.GetString(ContextSessionID))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.ErrorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, snap)
}

// History lists the finished games of the authenticated session.
func (sc *SessionController) History(c *gin.Context) {
	var query models.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	records, err := sc.sessionService.History(c.Request.Context(), c.GetString(ContextSessionID), query.Limit)
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	list := make([]any, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	response.SuccessResponseList(c, list)
}

// RequireSessionToken authenticates the bearer token and checks that it
// belongs to the session named in the path.
func (sc *SessionController) RequireSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sessionID, err := sc.sessionService.ParseToken(token)
		if err != nil {
			response.AbortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		if id := c.Param("id"); id != "" && id != sessionID {
			response.AbortWithError(c, http.StatusForbidden, "token does not belong to this session")
			return
		}

		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}
