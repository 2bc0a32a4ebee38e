// Package launch turns a DRAFT or SCHEDULED campaign into ACTIVE and
// materializes one pending delivery per audience member.
package launch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

type Store interface {
	GetCampaign(ctx context.Context, tenantID string, id int64) (campaign.Campaign, error)
	SegmentAudience(ctx context.Context, tenantID string, segmentID int64) ([]campaign.AudienceMember, error)
	ListVariants(ctx context.Context, campaignID int64) ([]campaign.Variant, error)
	ActivateCampaign(ctx context.Context, tenantID string, id int64, now time.Time, deliveries []campaign.Delivery) (int, error)
}

type Launcher struct {
	store Store
	sink  events.Sink
}

func New(store Store, sink events.Sink) *Launcher {
	return &Launcher{store: store, sink: sink}
}

type Result struct {
	CampaignID int64
	Enqueued   int
}

// Launch activates the campaign at now. A campaign that is already ACTIVE or
// COMPLETED, or that another caller activated first, yields
// ErrCampaignNotLaunchable.
func (l *Launcher) Launch(ctx context.Context, tenantID string, campaignID int64, now time.Time) (Result, error) {
	c, err := l.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return Result{}, err
	}
	if !c.Status.Launchable() {
		return Result{}, campaign.ErrCampaignNotLaunchable
	}

	var audience []campaign.AudienceMember
	if c.SegmentID != nil {
		audience, err = l.store.SegmentAudience(ctx, tenantID, *c.SegmentID)
		if err != nil {
			return Result{}, fmt.Errorf("load audience: %w", err)
		}
	}

	var variants []campaign.Variant
	if len(audience) > 0 {
		variants, err = l.store.ListVariants(ctx, c.ID)
		if err != nil {
			return Result{}, fmt.Errorf("load variants: %w", err)
		}
	}

	deliveries := Plan(c, audience, variants, now)
	n, err := l.store.ActivateCampaign(ctx, tenantID, c.ID, now, deliveries)
	if err != nil {
		return Result{}, err
	}

	metrics.CampaignsLaunchedTotal.Inc()
	metrics.DeliveriesEnqueuedTotal.Add(float64(n))
	logx.L().Infow("campaign_launched",
		"tenant_id", tenantID, "campaign_id", c.ID, "enqueued", n, "variants", len(variants))

	events.Record(ctx, l.sink, events.New(
		model.EventCampaignLaunched,
		strconv.FormatInt(c.ID, 10),
		tenantID,
		model.CampaignLaunched{CampaignID: c.ID, Enqueued: n, StartDate: now.UTC()},
		now,
	))

	return Result{CampaignID: c.ID, Enqueued: n}, nil
}

// Plan builds one pending delivery per audience member. The variant for the
// i-th member comes from the weighted selector keyed by i.
func Plan(c campaign.Campaign, audience []campaign.AudienceMember, variants []campaign.Variant, now time.Time) []campaign.Delivery {
	if len(audience) == 0 {
		return nil
	}
	sel := campaign.NewSelector(variants)
	defaultChannel := c.Channel()

	out := make([]campaign.Delivery, len(audience))
	for i, m := range audience {
		ch := strings.ToLower(strings.TrimSpace(m.Channel))
		if ch == "" {
			ch = defaultChannel
		}
		d := campaign.Delivery{
			TenantID:    c.TenantID,
			CampaignID:  c.ID,
			CustomerID:  m.CustomerID,
			Channel:     ch,
			Status:      campaign.DeliveryPending,
			ScheduledAt: now,
		}
		if v := sel.Pick(i); v != nil {
			id := v.ID
			d.VariantID = &id
		}
		out[i] = d
	}
	return out
}
