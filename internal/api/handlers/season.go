package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/internal/api/middleware"
	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/service"
)

type SeasonHandler struct {
	seasons *service.SeasonService
}

func NewSeasonHandler(seasons *service.SeasonService) *SeasonHandler {
	return &SeasonHandler{seasons: seasons}
}

// ResetSeason POST /seasons/reset
func (h *SeasonHandler) ResetSeason(c *gin.Context) {
	var req models.SeasonResetRequest
	if err := bindBody(c, &req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.seasons.Reset(c.Request.Context(), middleware.UserID(c), req.Mode, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
