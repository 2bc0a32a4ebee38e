package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/walidhousni/glavito-sub011/docs"
	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/internal/launch"
	"github.com/walidhousni/glavito-sub011/internal/store"
	"github.com/walidhousni/glavito-sub011/internal/tracking"
	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

type storeAPI interface {
	CreateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error)
	GetCampaign(ctx context.Context, tenantID string, id int64) (campaign.Campaign, error)
	ListCampaigns(ctx context.Context, tenantID string, f store.CampaignFilter) ([]campaign.Campaign, []campaign.Stats, error)
	UpdateCampaign(ctx context.Context, tenantID string, id int64, p campaign.UpdateCampaignReq) (campaign.Campaign, error)
	ScheduleCampaign(ctx context.Context, tenantID string, id int64, startDate time.Time) (campaign.Campaign, error)
	CampaignStats(ctx context.Context, tenantID string, campaignID int64) (campaign.Stats, error)
	ListVariants(ctx context.Context, campaignID int64) ([]campaign.Variant, error)
	CreateVariant(ctx context.Context, v campaign.Variant) (campaign.Variant, error)
	ListDeliveries(ctx context.Context, tenantID string, campaignID int64, status string, limit, offset int) ([]campaign.Delivery, error)
	VariantPerformance(ctx context.Context, tenantID string, campaignID int64) ([]campaign.VariantPerformance, error)
	RecordConversion(ctx context.Context, cv campaign.Conversion) (campaign.Conversion, error)
	ListConversions(ctx context.Context, tenantID string, campaignID int64) ([]campaign.Conversion, error)
	RequeueFailed(ctx context.Context, f store.RequeueFilter) (int64, error)
	MarkOpened(ctx context.Context, deliveryID int64, at time.Time) error
	MarkClicked(ctx context.Context, deliveryID int64, at time.Time) error
	UnsubscribeByDelivery(ctx context.Context, deliveryID int64) error
}

type launcherAPI interface {
	Launch(ctx context.Context, tenantID string, campaignID int64, now time.Time) (launch.Result, error)
}

type Handlers struct {
	Store    storeAPI
	Launcher launcherAPI
	Events   events.Sink
	Now      func() time.Time
	// ClickSecret verifies click-tracking links; empty rejects every click.
	ClickSecret string
}

func NewHandlers(s *store.Store, sink events.Sink, clickSecret string) *Handlers {
	return &Handlers{Store: s, Launcher: launch.New(s, sink), Events: sink, Now: time.Now, ClickSecret: clickSecret}
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) Docs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", docs.CampaignSwaggerHTML)
}

func (h *Handlers) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", docs.CampaignOpenAPI)
}

// respondErr maps domain errors to status codes and hides everything else
// behind a 500.
func respondErr(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound), errors.Is(err, campaign.ErrDeliveryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrCampaignNotLaunchable), errors.Is(err, campaign.ErrCampaignNotEditable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logx.L().Errorw(op+"_error", "tenant_id", c.GetString(tenantKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " error"})
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *Handlers) CreateCampaign(c *gin.Context) {
	var req campaign.CreateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	created, err := h.Store.CreateCampaign(ctx, campaign.Campaign{
		TenantID:    tenantID(c),
		Name:        req.Name,
		Description: req.Description,
		Type:        strings.ToUpper(req.Type),
		SegmentID:   req.SegmentID,
		Subject:     req.Subject,
		Content:     req.Content,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondErr(c, "create_campaign", err)
		return
	}
	logx.L().Infow("campaign_created", "tenant_id", created.TenantID, "campaign_id", created.ID, "type", created.Type)
	c.JSON(http.StatusCreated, campaign.NewCampaignResp(created))
}

func (h *Handlers) ListCampaigns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, stats, err := h.Store.ListCampaigns(ctx, tenantID(c), store.CampaignFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondErr(c, "list_campaigns", err)
		return
	}

	out := make([]campaign.CampaignResp, 0, len(rows))
	for i, r := range rows {
		item := campaign.NewCampaignResp(r)
		st := stats[i]
		item.Stats = &st
		out = append(out, item)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Store.GetCampaign(ctx, tenantID(c), id)
	if err != nil {
		respondErr(c, "get_campaign", err)
		return
	}
	stats, err := h.Store.CampaignStats(ctx, tenantID(c), id)
	if err != nil {
		respondErr(c, "get_campaign_stats", err)
		return
	}

	resp := campaign.NewCampaignResp(camp)
	resp.Stats = &stats
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) UpdateCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req campaign.UpdateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Store.UpdateCampaign(ctx, tenantID(c), id, req)
	if err != nil {
		respondErr(c, "update_campaign", err)
		return
	}
	c.JSON(http.StatusOK, campaign.NewCampaignResp(updated))
}

func (h *Handlers) ScheduleCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req campaign.ScheduleCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Store.ScheduleCampaign(ctx, tenantID(c), id, req.StartDate)
	if err != nil {
		respondErr(c, "schedule_campaign", err)
		return
	}

	events.Record(ctx, h.Events, events.New(
		model.EventCampaignScheduled,
		strconv.FormatInt(camp.ID, 10),
		camp.TenantID,
		model.CampaignScheduled{CampaignID: camp.ID, StartDate: req.StartDate.UTC()},
		h.now(),
	))
	logx.L().Infow("campaign_scheduled", "tenant_id", camp.TenantID, "campaign_id", camp.ID, "start_date", req.StartDate)
	c.JSON(http.StatusOK, campaign.NewCampaignResp(camp))
}

func (h *Handlers) LaunchCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	// bulk insert of a large audience can take a while
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	res, err := h.Launcher.Launch(ctx, tenantID(c), id, h.now())
	if err != nil {
		respondErr(c, "launch_campaign", err)
		return
	}
	c.JSON(http.StatusOK, campaign.LaunchResp{CampaignID: res.CampaignID, Enqueued: res.Enqueued})
}

func (h *Handlers) ListVariants(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Store.GetCampaign(ctx, tenantID(c), id); err != nil {
		respondErr(c, "list_variants", err)
		return
	}
	vs, err := h.Store.ListVariants(ctx, id)
	if err != nil {
		respondErr(c, "list_variants", err)
		return
	}
	out := make([]campaign.VariantResp, 0, len(vs))
	for _, v := range vs {
		out = append(out, campaign.NewVariantResp(v))
	}
	c.JSON(http.StatusOK, out)
}

// CreateVariant adds a variant while the campaign can still be launched;
// deliveries already created keep their assignment.
func (h *Handlers) CreateVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req campaign.CreateVariantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Store.GetCampaign(ctx, tenantID(c), id)
	if err != nil {
		respondErr(c, "create_variant", err)
		return
	}
	if !camp.Status.Launchable() {
		respondErr(c, "create_variant", campaign.ErrCampaignNotEditable)
		return
	}

	v, err := h.Store.CreateVariant(ctx, campaign.Variant{
		CampaignID: id,
		Name:       req.Name,
		Weight:     req.Weight,
		Subject:    req.Subject,
		Content:    req.Content,
	})
	if err != nil {
		respondErr(c, "create_variant", err)
		return
	}
	c.JSON(http.StatusCreated, campaign.NewVariantResp(v))
}

func (h *Handlers) Performance(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tenant := tenantID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Store.GetCampaign(ctx, tenant, id); err != nil {
		respondErr(c, "performance", err)
		return
	}
	stats, err := h.Store.CampaignStats(ctx, tenant, id)
	if err != nil {
		respondErr(c, "performance", err)
		return
	}
	variants, err := h.Store.VariantPerformance(ctx, tenant, id)
	if err != nil {
		respondErr(c, "performance", err)
		return
	}
	convs, err := h.Store.ListConversions(ctx, tenant, id)
	if err != nil {
		respondErr(c, "performance", err)
		return
	}

	resp := campaign.PerformanceResp{CampaignID: id, Stats: stats, Variants: variants, Conversions: len(convs)}
	for _, cv := range convs {
		resp.Revenue += cv.Value
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) ListConversions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Store.GetCampaign(ctx, tenantID(c), id); err != nil {
		respondErr(c, "list_conversions", err)
		return
	}
	convs, err := h.Store.ListConversions(ctx, tenantID(c), id)
	if err != nil {
		respondErr(c, "list_conversions", err)
		return
	}

	resp := campaign.ConversionsResp{Total: len(convs), Conversions: make([]campaign.ConversionResp, 0, len(convs))}
	for _, cv := range convs {
		resp.TotalValue += cv.Value
		resp.Conversions = append(resp.Conversions, newConversionResp(cv))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) RecordConversion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req campaign.RecordConversionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Store.GetCampaign(ctx, tenantID(c), id); err != nil {
		respondErr(c, "record_conversion", err)
		return
	}
	cv, err := h.Store.RecordConversion(ctx, campaign.Conversion{
		TenantID:   tenantID(c),
		CampaignID: id,
		DeliveryID: req.DeliveryID,
		CustomerID: req.CustomerID,
		Value:      req.Value,
	})
	if err != nil {
		respondErr(c, "record_conversion", err)
		return
	}
	c.JSON(http.StatusCreated, newConversionResp(cv))
}

func newConversionResp(cv campaign.Conversion) campaign.ConversionResp {
	return campaign.ConversionResp{
		ID:         cv.ID,
		CustomerID: cv.CustomerID,
		DeliveryID: cv.DeliveryID,
		Value:      cv.Value,
		CreatedAt:  cv.CreatedAt,
	}
}

func (h *Handlers) ListDeliveries(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ds, err := h.Store.ListDeliveries(ctx, tenantID(c), id, c.Query("status"), limit, offset)
	if err != nil {
		respondErr(c, "list_deliveries", err)
		return
	}
	out := make([]campaign.DeliveryResp, 0, len(ds))
	for _, d := range ds {
		out = append(out, campaign.NewDeliveryResp(d))
	}
	c.JSON(http.StatusOK, out)
}

// RequeueDeliveries resets the tenant's failed deliveries to pending.
// Permanent failures are included unless includePermanent is false.
func (h *Handlers) RequeueDeliveries(c *gin.Context) {
	var req campaign.RequeueReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	includePermanent := req.IncludePermanent == nil || *req.IncludePermanent
	tenant := tenantID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	n, err := h.Store.RequeueFailed(ctx, store.RequeueFilter{
		TenantID:         tenant,
		Limit:            req.Limit,
		IncludePermanent: includePermanent,
	})
	if err != nil {
		respondErr(c, "requeue_deliveries", err)
		return
	}
	if n > 0 {
		events.Record(ctx, h.Events, events.New(
			model.EventDeliveriesRequeued,
			"campaign_deliveries",
			tenant,
			model.DeliveriesRequeued{Count: n, IncludePermanent: includePermanent},
			h.now(),
		))
	}
	logx.L().Infow("deliveries_requeued", "tenant_id", tenant, "count", n, "include_permanent", includePermanent)
	c.JSON(http.StatusOK, campaign.RequeueResp{Requeued: n})
}

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackOpen always serves the pixel; recording the open is best-effort.
func (h *Handlers) TrackOpen(c *gin.Context) {
	if id, err := strconv.ParseInt(c.Param("delivery"), 10, 64); err == nil && id > 0 {
		if err := h.Store.MarkOpened(c.Request.Context(), id, h.now()); err != nil {
			logx.L().Debugw("track_open_error", "delivery_id", id, "error", err)
		}
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/gif", pixelGIF)
}

// TrackClick redirects only to targets signed for this delivery, so the
// public route cannot be used as an open redirect.
func (h *Handlers) TrackClick(c *gin.Context) {
	raw := c.Query("url")
	id, err := strconv.ParseInt(c.Param("delivery"), 10, 64)
	if err != nil || id <= 0 || !tracking.Verify(h.ClickSecret, id, raw, c.Query("sig")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link"})
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link"})
		return
	}
	if err := h.Store.MarkClicked(c.Request.Context(), id, h.now()); err != nil {
		logx.L().Debugw("track_click_error", "delivery_id", id, "error", err)
	}
	c.Redirect(http.StatusFound, target.String())
}

// Unsubscribe always renders the confirmation; a bad or unknown delivery id
// is only logged.
func (h *Handlers) Unsubscribe(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("delivery"), 10, 64)
	if err == nil && id > 0 {
		if err := h.Store.UnsubscribeByDelivery(c.Request.Context(), id); err != nil {
			logx.L().Debugw("unsubscribe_error", "delivery_id", id, "error", err)
		} else {
			logx.L().Infow("customer_unsubscribed", "delivery_id", id)
		}
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<p>You have been unsubscribed.</p>"))
}
