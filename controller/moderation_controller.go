package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

// ModerationController gates and dispatches moderation commands against a
// club. The actor and target ids arrive resolved by the command layer; the
// permission decision itself happens here, against authoritative records,
// never against the cache.
type ModerationController struct {
	ClubService       *service.ClubService
	ModerationService *service.ModerationService
	Platform          service.Platform
	ModRoleID         int64
}

func (c *ModerationController) Register(r *gin.Engine) {
	r.POST("/clubs/:id/mute", c.Mute)
	r.POST("/clubs/:id/unmute", c.Unmute)
	r.POST("/clubs/:id/ban", c.Ban)
	r.POST("/clubs/:id/unban", c.Unban)
	r.POST("/clubs/:id/messages/:message/pin", c.PinMessage)
	r.DELETE("/clubs/:id/messages/:message", c.DeleteMessage)
}

type muteRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
	UserID  int64 `json:"user_id" binding:"required"`
	Minutes int   `json:"minutes"`
}

func (c *ModerationController) Mute(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req muteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.FindOneByID(ctx.Request.Context(), clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	target, err := c.target(ctx, req.UserID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	decision := service.AuthorizeTarget(req.ActorID, club, entity.ModPermMute, target)
	if !decision.Allowed {
		ctx.JSON(http.StatusForbidden, decision)
		return
	}

	expiration, err := c.ModerationService.ApplyMute(ctx.Request.Context(), req.UserID, club, req.Minutes)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"expiration": expiration})
}

type liftRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
	UserID  int64 `json:"user_id" binding:"required"`
}

func (c *ModerationController) Unmute(ctx *gin.Context) {
	c.lift(ctx, entity.ModPermMute, c.ModerationService.LiftMute)
}

func (c *ModerationController) Unban(ctx *gin.Context) {
	c.lift(ctx, entity.ModPermBan, c.ModerationService.LiftBan)
}

type banRequest struct {
	ActorID   int64 `json:"actor_id" binding:"required"`
	UserID    int64 `json:"user_id" binding:"required"`
	Minutes   int   `json:"minutes"`
	Permanent bool  `json:"permanent"`
}

func (c *ModerationController) Ban(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req banRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.FindOneByID(ctx.Request.Context(), clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	target, err := c.target(ctx, req.UserID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	decision := service.AuthorizeTarget(req.ActorID, club, entity.ModPermBan, target)
	if !decision.Allowed {
		ctx.JSON(http.StatusForbidden, decision)
		return
	}

	expiration, err := c.ModerationService.ApplyBan(ctx.Request.Context(), req.UserID, club, req.Minutes, req.Permanent)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"expiration": expiration})
}

type messageRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
}

func (c *ModerationController) PinMessage(ctx *gin.Context) {
	club, messageID, ok := c.messageArgs(ctx, entity.ModPermPin)
	if !ok {
		return
	}

	outcome, err := c.ModerationService.PinMessage(ctx.Request.Context(), club, messageID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (c *ModerationController) DeleteMessage(ctx *gin.Context) {
	club, messageID, ok := c.messageArgs(ctx, entity.ModPermDelete)
	if !ok {
		return
	}

	err := c.ModerationService.DeleteMessage(ctx.Request.Context(), club, messageID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *ModerationController) lift(ctx *gin.Context, action entity.ModPerm, op func(ctx context.Context, userID int64, club *entity.Club) (bool, error)) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req liftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.FindOneByID(ctx.Request.Context(), clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	decision := service.Authorize(req.ActorID, club, action)
	if !decision.Allowed {
		ctx.JSON(http.StatusForbidden, decision)
		return
	}

	removed, err := op(ctx.Request.Context(), req.UserID, club)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}

// target builds the permission-gate view of the moderation target, including
// whether they hold the platform-wide moderator role.
func (c *ModerationController) target(ctx *gin.Context, userID int64) (service.Target, error) {
	roles, err := c.Platform.MemberRoles(ctx.Request.Context(), userID)
	if err != nil {
		return service.Target{}, err
	}

	return service.Target{
		ID:                userID,
		PlatformModerator: slices.Contains(roles, c.ModRoleID),
	}, nil
}

func (c *ModerationController) messageArgs(ctx *gin.Context, action entity.ModPerm) (*entity.Club, int64, bool) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return nil, 0, false
	}

	messageID, err := strconv.ParseInt(ctx.Param("message"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return nil, 0, false
	}

	var req messageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}

	club, err := c.ClubService.FindOneByID(ctx.Request.Context(), clubID)
	if err != nil {
		renderError(ctx, err)
		return nil, 0, false
	}

	decision := service.Authorize(req.ActorID, club, action)
	if !decision.Allowed {
		ctx.JSON(http.StatusForbidden, decision)
		return nil, 0, false
	}

	return club, messageID, true
}
