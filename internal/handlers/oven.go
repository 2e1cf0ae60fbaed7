package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiln_controller/internal/oven"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
	"kiln_controller/internal/service"
)

const (
	statusOK      = "ok"
	statusRunning = "running"
	statusAborted = "aborted"

	errGetState        = "failed to load state"
	errInternal        = "internal error"
	errInvalidBodyPref = "invalid body: "

	errProfileNameRequired = "profile name is required"
)

// writeServiceError maps service errors to HTTP codes. Unknown errors are
// logged and hidden behind a 500.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, profile.ErrInvalidFormat),
		errors.Is(err, oven.ErrInvalidStart),
		service.IsValidationError(err):
		code = http.StatusBadRequest
	case errors.Is(err, repository.ErrProfileNotFound):
		code = http.StatusNotFound
	case errors.Is(err, oven.ErrAlreadyRunning),
		errors.Is(err, service.ErrNotRunning):
		code = http.StatusConflict
	}

	if code == http.StatusInternalServerError {
		if h.log != nil {
			h.log.Errorw(logKey, append([]interface{}{"err", err}, kv...)...)
		}
		c.JSON(code, gin.H{"error": errInternal})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// respondWithStatusAndState answers with a status and, best effort, the
// current state.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// RunRequest starts a stored profile.
type RunRequest struct {
	// Name of a stored profile
	Profile string `json:"profile" binding:"required" example:"cone6-glaze"`
	// Skip the first minutes of the schedule
	StartAtMinutes float64 `json:"start_at_minutes,omitempty" example:"0"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Live oven state
// @Tags         oven
// @Produce      json
// @Success      200  {object}  models.OvenState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("oven_get_state_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errGetState})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Last persisted oven state
// @Description  Written by the recorder every record_interval. Survives restarts.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  models.OvenState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/recorded [get]
// @Security     BearerAuth
func (h *Handler) getRecordedState(c *gin.Context) {
	st, err := h.services.Monitoring.LastRecorded(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("oven_get_recorded_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errGetState})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Run a profile
// @Tags         oven
// @Accept       json
// @Produce      json
// @Param        body  body      RunRequest  true  "Profile to fire"
// @Success      200   {object}  map[string]interface{}  "status, profile, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/oven/run [post]
// @Security     BearerAuth
func (h *Handler) runProfile(c *gin.Context) {
	var req RunRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Kiln.RunProfile(c.Request.Context(), req.Profile, req.StartAtMinutes); err != nil {
		h.writeServiceError(c, "oven_run_failed", err, "profile", req.Profile)
		return
	}
	if h.log != nil {
		h.log.Infow("oven_run_requested", "profile", req.Profile, "user_id", c.GetInt(userIDKey))
	}
	h.respondWithStatusAndState(c, statusRunning, gin.H{"profile": req.Profile})
}

// @Summary      Abort the running profile
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/oven/abort [post]
// @Security     BearerAuth
func (h *Handler) abortFiring(c *gin.Context) {
	if err := h.services.Kiln.Abort(c.Request.Context()); err != nil {
		h.writeServiceError(c, "oven_abort_failed", err)
		return
	}
	if h.log != nil {
		h.log.Infow("oven_abort_requested", "user_id", c.GetInt(userIDKey))
	}
	h.respondWithStatusAndState(c, statusAborted, gin.H{})
}
