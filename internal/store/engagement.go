package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

// MarkOpened records the first open of a delivery. Later opens are ignored.
func (s *Store) MarkOpened(ctx context.Context, deliveryID int64, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_deliveries
		   SET opened_at = COALESCE(opened_at, $2)
		 WHERE id = $1
	`, deliveryID, at)
	return expectOne(res, err, campaign.ErrDeliveryNotFound)
}

// MarkClicked records the first click; a click also counts as an open.
func (s *Store) MarkClicked(ctx context.Context, deliveryID int64, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_deliveries
		   SET clicked_at = COALESCE(clicked_at, $2),
		       opened_at  = COALESCE(opened_at, $2)
		 WHERE id = $1
	`, deliveryID, at)
	return expectOne(res, err, campaign.ErrDeliveryNotFound)
}

// UnsubscribeByDelivery flags the delivery's customer so future audiences
// skip them.
func (s *Store) UnsubscribeByDelivery(ctx context.Context, deliveryID int64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE customers cu
		   SET unsubscribed = TRUE
		  FROM campaign_deliveries d
		 WHERE d.id = $1 AND cu.id = d.customer_id
	`, deliveryID)
	return expectOne(res, err, campaign.ErrDeliveryNotFound)
}

func (s *Store) RecordConversion(ctx context.Context, cv campaign.Conversion) (campaign.Conversion, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO campaign_conversions (tenant_id, campaign_id, delivery_id, customer_id, value)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, cv.TenantID, cv.CampaignID, cv.DeliveryID, cv.CustomerID, cv.Value).Scan(&cv.ID, &cv.CreatedAt)
	if err != nil {
		return campaign.Conversion{}, err
	}
	return cv, nil
}

func (s *Store) ListConversions(ctx context.Context, tenantID string, campaignID int64) ([]campaign.Conversion, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, tenant_id, campaign_id, delivery_id, customer_id, value, created_at
		FROM campaign_conversions
		WHERE tenant_id = $1 AND campaign_id = $2
		ORDER BY id
	`, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campaign.Conversion{}
	for rows.Next() {
		var cv campaign.Conversion
		var delivery sql.NullInt64
		if err := rows.Scan(&cv.ID, &cv.TenantID, &cv.CampaignID, &delivery, &cv.CustomerID, &cv.Value, &cv.CreatedAt); err != nil {
			return nil, err
		}
		cv.DeliveryID = int64Ptr(delivery)
		out = append(out, cv)
	}
	return out, rows.Err()
}

// VariantPerformance aggregates sends, engagement and attributed conversions
// per variant. Conversions attach to a variant through their delivery.
func (s *Store) VariantPerformance(ctx context.Context, tenantID string, campaignID int64) ([]campaign.VariantPerformance, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT v.id, v.name, v.weight,
		       COUNT(d.id) FILTER (WHERE d.status='sent')   AS sent,
		       COUNT(d.id) FILTER (WHERE d.status='failed') AS failed,
		       COUNT(d.opened_at)                           AS opened,
		       COUNT(d.clicked_at)                          AS clicked,
		       COALESCE(cv.n, 0)                            AS conversions,
		       COALESCE(cv.revenue, 0)                      AS revenue
		FROM campaign_variants v
		LEFT JOIN campaign_deliveries d ON d.variant_id = v.id AND d.tenant_id = $1
		LEFT JOIN (
		  SELECT d2.variant_id, COUNT(*) AS n, SUM(x.value) AS revenue
		  FROM campaign_conversions x
		  JOIN campaign_deliveries d2 ON d2.id = x.delivery_id
		  WHERE x.tenant_id = $1 AND x.campaign_id = $2
		  GROUP BY d2.variant_id
		) cv ON cv.variant_id = v.id
		WHERE v.campaign_id = $2
		GROUP BY v.id, v.name, v.weight, cv.n, cv.revenue
		ORDER BY v.id
	`, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campaign.VariantPerformance{}
	for rows.Next() {
		var vp campaign.VariantPerformance
		var id int64
		if err := rows.Scan(&id, &vp.Name, &vp.Weight, &vp.Sent, &vp.Failed, &vp.Opened, &vp.Clicked, &vp.Conversions, &vp.Revenue); err != nil {
			return nil, err
		}
		vp.VariantID = &id
		out = append(out, vp)
	}
	return out, rows.Err()
}

func (s *Store) SaveEvent(ctx context.Context, env model.EventEnvelope) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO domain_events (event_id, event_type, aggregate_id, tenant_id, event_data, created_at)
		VALUES ($1,$2,$3,$4,$5::jsonb,$6)
		ON CONFLICT (event_id) DO NOTHING
	`, env.EventID, env.EventType, env.AggregateID, env.TenantID, string(env.Data), env.Timestamp)
	return err
}
