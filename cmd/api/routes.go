package main

import (
	"github.com/gin-gonic/gin"

	"salesvoice/internal/httpapi"
	"salesvoice/internal/observability"
	"salesvoice/internal/telephony"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, voice *telephony.Handler, api httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	// Provider webhooks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	r.POST("/webhooks/telephony/voice", voice.Voice)

	v1 := r.Group("/v1")
	{
		v1.POST("/agents", api.CreateAgent)
		v1.GET("/agents", api.ListAgents)

		v1.POST("/campaigns", api.CreateCampaign)
		v1.POST("/campaigns/:id/start", api.StartCampaign)

		v1.GET("/sessions/:id", api.GetSession)
		v1.GET("/reports/outcomes", api.OutcomeSummary)

		v1.POST("/callbacks", api.ScheduleCallback)
		v1.POST("/followups", api.ApproveFollowUp)
		v1.GET("/decisions", api.RecentDecisions)
	}
}
