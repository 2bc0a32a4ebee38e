package campaign

import "time"

type CreateCampaignReq struct {
	Name        string         `json:"name"        binding:"required"`
	Description string         `json:"description"`
	Type        string         `json:"type"        binding:"required,oneof=EMAIL WHATSAPP INSTAGRAM email whatsapp instagram"`
	SegmentID   *int64         `json:"segmentId"`
	Subject     string         `json:"subject"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
}

type UpdateCampaignReq struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	SegmentID   *int64         `json:"segmentId"`
	Subject     *string        `json:"subject"`
	Content     *string        `json:"content"`
	Metadata    map[string]any `json:"metadata"`
}

type ScheduleCampaignReq struct {
	StartDate time.Time `json:"startDate" binding:"required"`
}

type CreateVariantReq struct {
	Name    string  `json:"name"    binding:"required"`
	Weight  int     `json:"weight"  binding:"min=0"`
	Subject *string `json:"subject"`
	Content *string `json:"content"`
}

type RecordConversionReq struct {
	CustomerID int64   `json:"customerId" binding:"required"`
	DeliveryID *int64  `json:"deliveryId"`
	Value      float64 `json:"value"      binding:"min=0"`
}

type RequeueReq struct {
	Limit            int   `json:"limit"            binding:"min=0,max=1000"`
	IncludePermanent *bool `json:"includePermanent"`
}

type CampaignResp struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Status      Status         `json:"status"`
	SegmentID   *int64         `json:"segmentId"`
	Subject     string         `json:"subject"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	StartDate   *time.Time     `json:"startDate"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Stats       *Stats         `json:"stats,omitempty"`
}

func NewCampaignResp(c Campaign) CampaignResp {
	return CampaignResp{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Status:      c.Status,
		SegmentID:   c.SegmentID,
		Subject:     c.Subject,
		Content:     c.Content,
		Metadata:    c.Metadata,
		StartDate:   c.StartDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type VariantResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Weight    int       `json:"weight"`
	Subject   *string   `json:"subject"`
	Content   *string   `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewVariantResp(v Variant) VariantResp {
	return VariantResp{ID: v.ID, Name: v.Name, Weight: v.Weight, Subject: v.Subject, Content: v.Content, CreatedAt: v.CreatedAt}
}

type DeliveryResp struct {
	ID           int64          `json:"id"`
	CampaignID   int64          `json:"campaignId"`
	VariantID    *int64         `json:"variantId"`
	CustomerID   int64          `json:"customerId"`
	Channel      string         `json:"channel"`
	Status       DeliveryStatus `json:"status"`
	ScheduledAt  time.Time      `json:"scheduledAt"`
	SentAt       *time.Time     `json:"sentAt"`
	MessageID    string         `json:"messageId,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	FailureKind  FailureKind    `json:"failureKind,omitempty"`
	OpenedAt     *time.Time     `json:"openedAt"`
	ClickedAt    *time.Time     `json:"clickedAt"`
}

func NewDeliveryResp(d Delivery) DeliveryResp {
	return DeliveryResp{
		ID:           d.ID,
		CampaignID:   d.CampaignID,
		VariantID:    d.VariantID,
		CustomerID:   d.CustomerID,
		Channel:      d.Channel,
		Status:       d.Status,
		ScheduledAt:  d.ScheduledAt,
		SentAt:       d.SentAt,
		MessageID:    d.MessageID,
		ErrorMessage: d.ErrorMessage,
		FailureKind:  d.FailureKind,
		OpenedAt:     d.OpenedAt,
		ClickedAt:    d.ClickedAt,
	}
}

type LaunchResp struct {
	CampaignID int64 `json:"campaignId"`
	Enqueued   int   `json:"enqueued"`
}

type PerformanceResp struct {
	CampaignID  int64                `json:"campaignId"`
	Stats       Stats                `json:"stats"`
	Conversions int                  `json:"conversions"`
	Revenue     float64              `json:"revenue"`
	Variants    []VariantPerformance `json:"variants"`
}

type ConversionResp struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	DeliveryID *int64    `json:"deliveryId"`
	Value      float64   `json:"value"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ConversionsResp struct {
	Total       int              `json:"total"`
	TotalValue  float64          `json:"totalValue"`
	Conversions []ConversionResp `json:"conversions"`
}

type RequeueResp struct {
	Requeued int64 `json:"requeued"`
}
