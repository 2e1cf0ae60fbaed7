package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiln_controller/internal/models"
	"kiln_controller/internal/profile"
)

// @Summary      List stored profiles
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, profiles"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/profiles [get]
// @Security     BearerAuth
func (h *Handler) listProfiles(c *gin.Context) {
	ps, err := h.services.ListProfiles(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, "profiles_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ps), "profiles": ps})
}

// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Param        name  path      string  true  "Profile name"
// @Success      200   {object}  models.Profile
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/profiles/{name} [get]
// @Security     BearerAuth
func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.services.GetProfile(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeServiceError(c, "profile_get_failed", err, "name", c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Create or replace a profile
// @Description  data is a list of [seconds, temperature] pairs, at least two.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        body  body      models.Profile  true  "Profile"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/profiles [post]
// @Security     BearerAuth
func (h *Handler) saveProfile(c *gin.Context) {
	var p models.Profile
	if ok := h.bindJSONOrBadRequest(c, &p); !ok {
		return
	}
	if err := h.services.SaveProfile(c.Request.Context(), p); err != nil {
		h.writeServiceError(c, "profile_save_failed", err, "name", p.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "name": p.Name})
}

// @Summary      Import a profile file
// @Description  Raw schedule document as stored under profiles/: {"name": "...", "data": [[t, T], ...]}.
// @Description  Points are sorted by time before storing.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Success      200   {object}  map[string]interface{}  "status, name, points"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/profiles/import [post]
// @Security     BearerAuth
func (h *Handler) importProfile(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	p, err := profile.Parse(body)
	if err != nil {
		h.writeServiceError(c, "profile_import_failed", err)
		return
	}
	if p.Name() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errProfileNameRequired})
		return
	}
	if _, err := h.services.Import(c.Request.Context(), []*profile.Profile{p}); err != nil {
		h.writeServiceError(c, "profile_import_failed", err, "name", p.Name())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "name": p.Name(), "points": len(p.Points())})
}

// @Summary      Delete a profile
// @Tags         profiles
// @Produce      json
// @Param        name  path      string  true  "Profile name"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/profiles/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteProfile(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.DeleteProfile(c.Request.Context(), name); err != nil {
		h.writeServiceError(c, "profile_delete_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "name": name})
}
