package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/apperrors"
	"github.com/storefront-labs/aegis/logging"
	"github.com/storefront-labs/aegis/model"
)

// Checker is the authorization surface the controller exposes over HTTP.
type Checker interface {
	CheckPermission(ctx context.Context, principal model.Principal, request model.PermissionRequest) (bool, error)
	CheckMultiplePermissions(ctx context.Context, principal model.Principal, requests []model.PermissionRequest) ([]bool, error)
	GetResourcePermissions(principal model.Principal, resource string) model.ResourcePermissions
	InvalidateCache(ctx context.Context)
	InvalidateUserCache(ctx context.Context, userID string)
	InvalidateResourceCache(ctx context.Context, resourceID string)
}

// AuthzController exposes the decision API. Authentication is out of
// scope: callers are trusted collaborators that already resolved the
// principal, and pass it in the request body.
type AuthzController struct {
	checker Checker
}

func NewAuthzController(checker Checker) *AuthzController {
	return &AuthzController{checker: checker}
}

func (ac *AuthzController) RegisterRoutes(r *gin.RouterGroup) {
	authz := r.Group("/authz")
	{
		authz.POST("/check", ac.Check)
		authz.POST("/check-batch", ac.CheckBatch)
		authz.POST("/resource-permissions", ac.ResourcePermissions)
		authz.POST("/invalidate", ac.Invalidate)
	}
}

type checkRequest struct {
	Principal model.Principal `json:"principal" binding:"required"`
	Resource  string          `json:"resource"`
	Action    string          `json:"action"`
	OwnerID   string          `json:"resourceOwnerId"`
}

// Check handles POST /authz/check
func (ac *AuthzController) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	allowed, err := ac.checker.CheckPermission(c, req.Principal, model.PermissionRequest{
		Resource:        req.Resource,
		Action:          req.Action,
		ResourceOwnerID: req.OwnerID,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Error("Permission check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Permission check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

type batchCheckRequest struct {
	Principal model.Principal           `json:"principal" binding:"required"`
	Checks    []model.PermissionRequest `json:"checks" binding:"required"`
}

// CheckBatch handles POST /authz/check-batch
func (ac *AuthzController) CheckBatch(c *gin.Context) {
	var req batchCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	results, err := ac.checker.CheckMultiplePermissions(c, req.Principal, req.Checks)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Error("Batch permission check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Permission check failed"})
		return
	}

	anyAllowed := false
	allAllowed := true
	for _, r := range results {
		anyAllowed = anyAllowed || r
		allAllowed = allAllowed && r
	}
	if len(results) == 0 {
		anyAllowed, allAllowed = false, true
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "any": anyAllowed, "all": allAllowed})
}

type resourcePermissionsRequest struct {
	Principal model.Principal `json:"principal" binding:"required"`
	Resource  string          `json:"resource" binding:"required"`
}

// ResourcePermissions handles POST /authz/resource-permissions
func (ac *AuthzController) ResourcePermissions(c *gin.Context) {
	var req resourcePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	c.JSON(http.StatusOK, ac.checker.GetResourcePermissions(req.Principal, req.Resource))
}

type invalidateRequest struct {
	Scope    string `json:"scope" binding:"required"`
	TargetID string `json:"targetId"`
}

// Invalidate handles POST /authz/invalidate
func (ac *AuthzController) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	switch req.Scope {
	case "all":
		ac.checker.InvalidateCache(c)
	case "user":
		if req.TargetID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "targetId is required for user scope"})
			return
		}
		ac.checker.InvalidateUserCache(c, req.TargetID)
	case "resource":
		if req.TargetID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "targetId is required for resource scope"})
			return
		}
		ac.checker.InvalidateResourceCache(c, req.TargetID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be one of all, user, resource"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "invalidation published"})
}
