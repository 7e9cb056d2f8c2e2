package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// respondError maps err onto its status code; 5xx causes are logged, not returned
func respondError(c *gin.Context, err error) {
	appErr := models.AsAppError(err)
	if appErr.StatusCode >= 500 {
		logger.WithRequestID(c.Request.Context()).
			With("path", c.FullPath()).
			With("error", err.Error()).
			Error("request failed")
	}
	c.JSON(appErr.StatusCode, appErr.ToHTTPError())
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := GetUserID(c)
	if !ok || userID == "" {
		abortUnauthorized(c, "unauthorized")
		return "", false
	}
	return userID, true
}

// healthCheck reports process and store liveness
func (s *Server) healthCheck(c *gin.Context) {
	status := models.HealthStatus{Status: "ok", Store: "ok", Time: time.Now()}
	code := http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Store = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, status)
}

// getUserStats returns the stored cross-platform view; it never fetches
func (s *Server) getUserStats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := s.statsSvc.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", view)
}

// refreshStats fetches every configured platform synchronously
func (s *Server) refreshStats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := s.platformSvc.RefreshConfigured(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Stats refreshed", result)
}

// updatePlatforms saves usernames and schedules a background refresh
func (s *Server) updatePlatforms(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.UpdatePlatformsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	resp, _, err := s.platformSvc.UpdatePlatforms(c.Request.Context(), userID, req.Platforms)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resp.Note, resp)
}

// getProfile returns the user and aggregated totals
func (s *Server) getProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	profile, err := s.platformSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", profile)
}

// getRecentActivity lists recent solves on one platform
func (s *Server) getRecentActivity(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	activity, err := s.platformSvc.RecentActivity(c.Request.Context(), userID, c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", gin.H{"platform": c.Param("platform"), "activity": activity})
}

// deleteAccount deactivates the account; stats are kept but hidden
func (s *Server) deleteAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	if err := s.platformSvc.DeactivateAccount(c.Request.Context(), userID, req.ConfirmDelete); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Account deactivated", nil)
}
