// Package model holds the JSON payloads published to the events queue.
// Consumers outside this module decode these, so field names are stable.
package model

import (
	"encoding/json"
	"time"
)

const (
	EventCampaignLaunched   = "campaign.launched"
	EventCampaignScheduled  = "campaign.scheduled"
	EventDeliveriesRequeued = "deliveries.requeued"
)

type EventEnvelope struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	TenantID    string          `json:"tenantId"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"eventData"`
}

type CampaignLaunched struct {
	CampaignID int64     `json:"campaignId"`
	Enqueued   int       `json:"enqueued"`
	StartDate  time.Time `json:"startDate"`
}

type CampaignScheduled struct {
	CampaignID int64     `json:"campaignId"`
	StartDate  time.Time `json:"startDate"`
}

type DeliveriesRequeued struct {
	Count            int64 `json:"count"`
	IncludePermanent bool  `json:"includePermanent"`
}
