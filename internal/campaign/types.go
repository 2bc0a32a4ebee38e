package campaign

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Launchable reports whether a campaign in this status may still be launched.
func (s Status) Launchable() bool {
	return s == StatusDraft || s == StatusScheduled
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// FailureKind separates failures that can never succeed on retry from
// transport outages worth requeueing.
type FailureKind string

const (
	FailurePermanent FailureKind = "permanent"
	FailureTransient FailureKind = "transient"
)

const DefaultChannel = "email"

var (
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrCampaignNotLaunchable = errors.New("campaign is not in a launchable state")
	ErrCampaignNotEditable   = errors.New("campaign can no longer be edited")
	ErrDeliveryNotFound      = errors.New("delivery not found")
)

type Campaign struct {
	ID          int64
	TenantID    string
	Name        string
	Description string
	Type        string
	Status      Status
	SegmentID   *int64
	Subject     string
	Content     string
	Metadata    map[string]any
	StartDate   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Channel is the delivery channel implied by the campaign type.
func (c Campaign) Channel() string {
	ch := strings.ToLower(strings.TrimSpace(c.Type))
	if ch == "" {
		return DefaultChannel
	}
	return ch
}

type Variant struct {
	ID         int64
	CampaignID int64
	Name       string
	Weight     int
	Subject    *string
	Content    *string
	CreatedAt  time.Time
}

type Delivery struct {
	ID           int64
	TenantID     string
	CampaignID   int64
	VariantID    *int64
	CustomerID   int64
	Channel      string
	Status       DeliveryStatus
	ScheduledAt  time.Time
	SentAt       *time.Time
	MessageID    string
	ErrorMessage string
	FailureKind  FailureKind
	OpenedAt     *time.Time
	ClickedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Customer struct {
	ID           int64
	TenantID     string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	CustomFields map[string]any
	Unsubscribed bool
}

// AudienceMember is one segment member; Channel overrides the campaign
// channel for that recipient when set.
type AudienceMember struct {
	CustomerID int64
	Channel    string
}

// PendingDelivery is a pending delivery joined with what dispatch needs.
type PendingDelivery struct {
	Delivery Delivery
	Campaign Campaign
	Customer Customer
	Variant  *Variant
}

type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Opened  int `json:"opened"`
	Clicked int `json:"clicked"`
}

type VariantPerformance struct {
	VariantID   *int64  `json:"variantId"`
	Name        string  `json:"name"`
	Weight      int     `json:"weight"`
	Sent        int     `json:"sent"`
	Failed      int     `json:"failed"`
	Opened      int     `json:"opened"`
	Clicked     int     `json:"clicked"`
	Conversions int     `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

type Conversion struct {
	ID         int64
	TenantID   string
	CampaignID int64
	DeliveryID *int64
	CustomerID int64
	Value      float64
	CreatedAt  time.Time
}
