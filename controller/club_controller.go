package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/repository"
	"github.com/DillonB07/club-bot/service"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ClubController translates the command layer's HTTP calls into lifecycle
// operations and renders the typed outcomes. Arguments arrive pre-validated
// by the command layer; only shape is checked here.
type ClubController struct {
	ClubService   *service.ClubService
	BubbleService *service.BubbleService
	CacheService  *service.CacheService
}

func (c *ClubController) Register(r *gin.Engine) {
	r.POST("/clubs", c.Create)
	r.POST("/clubs/:id/verify", c.Verify)
	r.POST("/clubs/:id/join", c.Join)
	r.POST("/clubs/:id/leave", c.Leave)
	r.PATCH("/clubs/:id", c.Edit)
	r.POST("/clubs/:id/bubble", c.CreateBubble)

	r.GET("/clubs/unverified", c.Unverified)
	r.GET("/clubs/search", c.Search)
	r.GET("/users/:id/clubs/joinable", c.Joinable)
	r.GET("/users/:id/clubs/leavable", c.Leavable)
}

type createClubRequest struct {
	OwnerID int64  `json:"owner_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
	Reason  string `json:"reason"`
}

func (c *ClubController) Create(ctx *gin.Context) {
	var req createClubRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.CreateClub(ctx.Request.Context(), req.OwnerID, req.Name, req.Topic, req.Reason)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, club)
}

type verifyClubRequest struct {
	ReviewerID int64 `json:"reviewer_id" binding:"required"`
	Approve    *bool `json:"approve" binding:"required"`
}

func (c *ClubController) Verify(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req verifyClubRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.VerifyClub(ctx.Request.Context(), req.ReviewerID, clubID, *req.Approve)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, club)
}

type memberRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (c *ClubController) Join(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := c.ClubService.JoinClub(ctx.Request.Context(), req.UserID, clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (c *ClubController) Leave(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := c.ClubService.LeaveClub(ctx.Request.Context(), req.UserID, clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

type editClubRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
	entity.ClubPatch
}

func (c *ClubController) Edit(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req editClubRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ClubPatch.IsZero() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "empty patch"})
		return
	}

	club, err := c.ClubService.EditClub(ctx.Request.Context(), req.ActorID, clubID, req.ClubPatch)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, club)
}

func (c *ClubController) CreateBubble(ctx *gin.Context) {
	clubID, ok := clubIDParam(ctx)
	if !ok {
		return
	}

	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := c.ClubService.FindOneByID(ctx.Request.Context(), clubID)
	if err != nil {
		renderError(ctx, err)
		return
	}
	if !club.IsVerified() {
		renderError(ctx, service.ErrClubNotVerified)
		return
	}

	outcome, bubbleID, err := c.BubbleService.CreateBubble(ctx.Request.Context(), req.UserID, club)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"outcome": outcome, "bubble_id": bubbleID})
}

func (c *ClubController) Unverified(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.CacheService.UnverifiedClubs())
}

func (c *ClubController) Search(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.CacheService.SearchClubs(ctx.Query("q")))
}

func (c *ClubController) Joinable(ctx *gin.Context) {
	userID, ok := userIDParam(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, c.CacheService.JoinableClubs(userID))
}

func (c *ClubController) Leavable(ctx *gin.Context) {
	userID, ok := userIDParam(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, c.CacheService.LeavableClubs(userID))
}

func renderError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrNotReviewer),
		errors.Is(err, service.ErrNotClubOwner):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownModPerm):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyOwnsClub),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrDuplicateBan),
		errors.Is(err, service.ErrClubNotVerified),
		errors.Is(err, service.ErrBanned),
		errors.Is(err, service.ErrOwnerCannotLeave):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "temporary failure, try again"})
	}
}

func userIDParam(ctx *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}

func clubIDParam(ctx *gin.Context) (bson.ObjectID, bool) {
	clubID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid club id"})
		return bson.ObjectID{}, false
	}
	return clubID, true
}
