package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bookingpay/internal/middleware"
	"bookingpay/internal/modules/payment"
)

func newRouter(db *gorm.DB, svc *payment.Service, h *payment.Handler, corsOrigins []string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.CORS(corsOrigins))

	r.GET("/healthz", healthHandler(db, svc))

	v1 := r.Group("/api/v1")
	{
		h.RegisterRoutes(v1)
		h.RegisterWebhookRoutes(v1)
	}
	return r
}

func healthHandler(db *gorm.DB, svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":          status,
			"gateway_enabled": svc.GatewayEnabled(),
		})
	}
}
