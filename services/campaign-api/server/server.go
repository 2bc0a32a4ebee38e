package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/walidhousni/glavito-sub011/pkg/metrics"
)

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery(), Observability())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/docs", h.Docs)
	r.GET("/docs/campaign-api/openapi.yaml", h.OpenAPI)

	// opened from customer inboxes, so no tenant header
	t := r.Group("/t")
	t.GET("/open/:delivery", h.TrackOpen)
	t.GET("/click/:delivery", h.TrackClick)
	t.GET("/unsubscribe/:delivery", h.Unsubscribe)

	api := r.Group("/", Tenant())
	api.GET("/campaigns", h.ListCampaigns)
	api.POST("/campaigns", h.CreateCampaign)
	api.GET("/campaigns/:id", h.GetCampaign)
	api.PATCH("/campaigns/:id", h.UpdateCampaign)
	api.POST("/campaigns/:id/schedule", h.ScheduleCampaign)
	api.POST("/campaigns/:id/launch", h.LaunchCampaign)
	api.GET("/campaigns/:id/variants", h.ListVariants)
	api.POST("/campaigns/:id/variants", h.CreateVariant)
	api.GET("/campaigns/:id/performance", h.Performance)
	api.GET("/campaigns/:id/conversions", h.ListConversions)
	api.POST("/campaigns/:id/conversions", h.RecordConversion)
	api.GET("/campaigns/:id/deliveries", h.ListDeliveries)
	api.POST("/deliveries/requeue", h.RequeueDeliveries)

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
