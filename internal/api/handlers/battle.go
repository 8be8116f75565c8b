package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/internal/api/middleware"
	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/service"
)

type BattleHandler struct {
	battles *service.BattleService
}

func NewBattleHandler(battles *service.BattleService) *BattleHandler {
	return &BattleHandler{battles: battles}
}

// CreateBattle POST /battles
func (h *BattleHandler) CreateBattle(c *gin.Context) {
	var req models.CreateBattleRequest
	if err := bindBody(c, &req); err != nil {
		respondError(c, err)
		return
	}

	battle, err := h.battles.Create(c.Request.Context(), middleware.UserID(c), req.ChallengedID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, battle)
}

// GetBattle GET /battles/:id
func (h *BattleHandler) GetBattle(c *gin.Context) {
	battle, err := h.battles.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, battle)
}

// ListMyBattles GET /battles?limit=&offset=
func (h *BattleHandler) ListMyBattles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	battles, err := h.battles.ListForUser(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"battles": battles,
		"count":   len(battles),
		"limit":   limit,
		"offset":  offset,
	})
}

// PerformAction POST /battles/:id/actions/:action
func (h *BattleHandler) PerformAction(c *gin.Context) {
	kind := service.ActionKind(c.Param("action"))
	decode, ok := actionDecoders[kind]
	if !ok {
		respondError(c, &service.Error{Kind: service.KindNotFound, Message: "unknown action " + string(kind)})
		return
	}

	action, err := decode(c)
	if err != nil {
		respondError(c, err)
		return
	}

	battle, err := h.battles.Execute(c.Request.Context(), middleware.UserID(c), c.Param("id"), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, battle)
}

// RatingHistory GET /users/:id/ratings; "me" resolves to the caller.
func (h *BattleHandler) RatingHistory(c *gin.Context) {
	userID := c.Param("id")
	if userID == "me" {
		userID = middleware.UserID(c)
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.battles.RatingHistory(c.Request.Context(), middleware.UserID(c), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
