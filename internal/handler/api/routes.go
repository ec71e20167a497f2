package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	authpkg "github.com/Neyfan/zama-dca-bot-batching/pkg/auth"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/xresponse"
)

// SetupRoutes configures all API routes. authService may be nil, in which
// case order intake is open.
func SetupRoutes(router *gin.Engine, orderHandler *OrderHandler, authService domain.AuthService) {
	intakeGuard := authMiddleware(authService)

	// Unversioned paths kept for existing clients.
	router.POST("/orders", intakeGuard, orderHandler.CreateOrder)
	router.GET("/orders", orderHandler.ListOrders)

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		orders.POST("", intakeGuard, orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/outcomes", orderHandler.ListOutcomes)
	}

	logger.Info("API routes configured successfully",
		logger.Bool("intake_auth", authService != nil),
	)
}

// authMiddleware validates the bearer token. A nil service disables the check.
func authMiddleware(authService domain.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			xresponse.Unauthorized(c, "Authorization header with Bearer token required")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			xresponse.Unauthorized(c, "Token is empty")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, authpkg.ErrExpiredToken):
				xresponse.Unauthorized(c, "Token expired")
			case errors.Is(err, authpkg.ErrInvalidToken):
				xresponse.Unauthorized(c, "Invalid token")
			default:
				xresponse.InternalServerError(c, "Failed to validate token")
			}
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)

		logger.Debug("Operator authenticated",
			logger.String("subject", claims.Subject),
			logger.String("token_ttl", time.Until(claims.ExpiresAt).Round(time.Second).String()),
		)

		c.Next()
	}
}

// RecoveryMiddleware logs panics and answers with the error envelope.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			logger.String("error", fmt.Sprintf("%v", recovered)),
			logger.String("path", c.Request.URL.Path),
			logger.String("method", c.Request.Method),
		)

		xresponse.InternalServerError(c, "Internal server error")
		c.Abort()
	})
}
