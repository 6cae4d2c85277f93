package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/session"
)

const installationKey = "installation"

type handlers struct {
	manager *assistant.Manager
	log     zerolog.Logger
}

type askRequest struct {
	Message        string `json:"message" binding:"required"`
	IncludeContext *bool  `json:"include_context"`
}

type analyzeRequest struct {
	FocusArea string `json:"focus_area"`
}

type executeRequest struct {
	SuggestionID string `json:"suggestion_id" binding:"required"`
	Confirmed    bool   `json:"confirmed"`
}

type suggestionRequest struct {
	ID      string         `json:"id"`
	Type    string         `json:"type" binding:"required,oneof=automation script configuration"`
	Payload map[string]any `json:"payload"`
}

type entryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

func (h *handlers) listEntries(c *gin.Context) {
	installs := h.manager.List()
	out := make([]entryResponse, 0, len(installs))
	for _, inst := range installs {
		e := inst.Entry()
		out = append(out, entryResponse{ID: e.ID, Name: e.Name, Provider: e.Provider, Model: e.Model})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (h *handlers) loadEntry(c *gin.Context) {
	inst, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody("entry_not_found", "no entry with id "+c.Param("id")))
		return
	}
	c.Set(installationKey, inst)
	c.Next()
}

func installation(c *gin.Context) *assistant.Installation {
	return c.MustGet(installationKey).(*assistant.Installation)
}

func (h *handlers) status(c *gin.Context) {
	inst := installation(c)
	snap, ok := inst.Coordinator().Data()
	resp := gin.H{
		"sensors":             inst.Sensors(),
		"last_update_success": inst.Coordinator().LastUpdateSuccess(),
		"refreshing":          inst.Coordinator().Refreshing(),
		"history_limit":       inst.Store().Limit(),
	}
	if ok {
		resp["updated_at"] = session.FormatTime(snap.UpdatedAt)
	}
	if last, ok := inst.Store().LastTurn(); ok {
		resp["last_turn"] = last
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) conversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversations": installation(c).Store().Turns()})
}

func (h *handlers) suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": installation(c).Store().Suggestions()})
}

func (h *handlers) addSuggestion(c *gin.Context) {
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}

	sg, err := installation(c).Service().AddSuggestion(session.Suggestion{
		ID:      req.ID,
		Type:    session.SuggestionType(req.Type),
		Payload: req.Payload,
	})
	switch {
	case errors.Is(err, session.ErrDuplicateID):
		c.JSON(http.StatusConflict, errorBody("duplicate_id", err.Error()))
	case err != nil:
		c.JSON(http.StatusBadRequest, errorBody("invalid_suggestion", err.Error()))
	default:
		c.JSON(http.StatusCreated, sg)
	}
}

func (h *handlers) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	includeContext := true
	if req.IncludeContext != nil {
		includeContext = *req.IncludeContext
	}

	// Failures are delivered as error events, not as a status code.
	_ = installation(c).Service().Ask(c.Request.Context(), req.Message, includeContext)
	c.JSON(http.StatusOK, gin.H{"status": "handled"})
}

func (h *handlers) analyze(c *gin.Context) {
	var req analyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
			return
		}
	}

	_ = installation(c).Service().Analyze(c.Request.Context(), req.FocusArea)
	c.JSON(http.StatusOK, gin.H{"status": "handled"})
}

func (h *handlers) executeSuggestion(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}

	err := installation(c).Service().Execute(c.Request.Context(), req.SuggestionID, req.Confirmed)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "executed"})
	case errors.Is(err, assistant.ErrUnconfirmed):
		c.JSON(http.StatusBadRequest, errorBody("unconfirmed", err.Error()))
	case errors.Is(err, assistant.ErrSuggestionNotFound):
		c.JSON(http.StatusNotFound, errorBody("suggestion_not_found", err.Error()))
	case errors.Is(err, assistant.ErrUnknownSuggestionType), errors.Is(err, assistant.ErrServiceNotAllowed):
		c.JSON(http.StatusUnprocessableEntity, errorBody("not_executable", err.Error()))
	default:
		h.log.Error().Err(err).Str("suggestion_id", req.SuggestionID).Msg("execute suggestion failed")
		c.JSON(http.StatusBadGateway, errorBody("execution_failed", err.Error()))
	}
}
