package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
)

const campaignCols = `id, tenant_id, name, description, type, status, segment_id, subject, content, metadata, start_date, created_at, updated_at`

func scanCampaign(r rowScanner) (campaign.Campaign, error) {
	var (
		c       campaign.Campaign
		status  string
		segment sql.NullInt64
		meta    []byte
		start   sql.NullTime
	)
	err := r.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.Type, &status, &segment,
		&c.Subject, &c.Content, &meta, &start, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return campaign.Campaign{}, err
	}
	c.Status = campaign.Status(status)
	c.SegmentID = int64Ptr(segment)
	c.Metadata = unmarshalJSON(meta)
	c.StartDate = timePtr(start)
	return c, nil
}

func (s *Store) CreateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	meta, err := marshalJSON(c.Metadata)
	if err != nil {
		return campaign.Campaign{}, err
	}
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO campaigns (tenant_id, name, description, type, status, segment_id, subject, content, metadata)
		VALUES ($1,$2,$3,$4,'DRAFT',$5,$6,$7,$8::jsonb)
		RETURNING `+campaignCols,
		c.TenantID, c.Name, c.Description, strings.ToUpper(c.Type), c.SegmentID, c.Subject, c.Content, meta)
	return scanCampaign(row)
}

func (s *Store) GetCampaign(ctx context.Context, tenantID string, id int64) (campaign.Campaign, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+campaignCols+`
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Campaign{}, campaign.ErrCampaignNotFound
	}
	return c, err
}

type CampaignFilter struct {
	Status string
	Limit  int
	Offset int
}

// ListCampaigns returns a page of campaigns and, index-aligned, their
// delivery stats.
func (s *Store) ListCampaigns(ctx context.Context, tenantID string, f CampaignFilter) ([]campaign.Campaign, []campaign.Stats, error) {
	limit, offset := pageBounds(f.Limit, f.Offset)

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+campaignCols+`
		FROM campaigns
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4
	`, tenantID, strings.ToUpper(f.Status), limit, offset)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var campaigns []campaign.Campaign
	var ids []int64
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, nil, err
		}
		campaigns = append(campaigns, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(campaigns) == 0 {
		return []campaign.Campaign{}, []campaign.Stats{}, nil
	}

	statRows, err := s.DB.QueryContext(ctx, `
		SELECT campaign_id,`+statsCols+`
		FROM campaign_deliveries
		WHERE campaign_id = ANY($1)
		GROUP BY campaign_id
	`, pq.Int64Array(ids))
	if err != nil {
		return nil, nil, err
	}
	defer statRows.Close()

	statsByID := make(map[int64]campaign.Stats, len(ids))
	for statRows.Next() {
		var id int64
		var st campaign.Stats
		if err := statRows.Scan(&id, &st.Total, &st.Pending, &st.Sent, &st.Failed, &st.Opened, &st.Clicked); err != nil {
			return nil, nil, err
		}
		statsByID[id] = st
	}
	if err := statRows.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]campaign.Stats, len(campaigns))
	for i, c := range campaigns {
		out[i] = statsByID[c.ID]
	}
	return campaigns, out, nil
}

// UpdateCampaign applies the non-nil fields of p while the campaign is still
// DRAFT or SCHEDULED.
func (s *Store) UpdateCampaign(ctx context.Context, tenantID string, id int64, p campaign.UpdateCampaignReq) (campaign.Campaign, error) {
	var meta any
	if p.Metadata != nil {
		m, err := marshalJSON(p.Metadata)
		if err != nil {
			return campaign.Campaign{}, err
		}
		meta = m
	}
	row := s.DB.QueryRowContext(ctx, `
		UPDATE campaigns SET
		  name        = COALESCE($3, name),
		  description = COALESCE($4, description),
		  segment_id  = COALESCE($5, segment_id),
		  subject     = COALESCE($6, subject),
		  content     = COALESCE($7, content),
		  metadata    = COALESCE($8::jsonb, metadata),
		  updated_at  = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status IN ('DRAFT','SCHEDULED')
		RETURNING `+campaignCols,
		id, tenantID, p.Name, p.Description, p.SegmentID, p.Subject, p.Content, meta)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Campaign{}, s.notEditable(ctx, tenantID, id)
	}
	return c, err
}

// ScheduleCampaign sets the start date and moves the campaign to SCHEDULED.
// Rescheduling a SCHEDULED campaign is allowed.
func (s *Store) ScheduleCampaign(ctx context.Context, tenantID string, id int64, startDate time.Time) (campaign.Campaign, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE campaigns
		   SET status = 'SCHEDULED', start_date = $3, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND status IN ('DRAFT','SCHEDULED')
		RETURNING `+campaignCols,
		id, tenantID, startDate.UTC())
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Campaign{}, s.notEditable(ctx, tenantID, id)
	}
	return c, err
}

// notEditable tells a missing campaign apart from one past the editable states.
func (s *Store) notEditable(ctx context.Context, tenantID string, id int64) error {
	if _, err := s.GetCampaign(ctx, tenantID, id); err != nil {
		return err
	}
	return campaign.ErrCampaignNotEditable
}

// DueCampaigns lists SCHEDULED campaigns of every tenant whose start date has
// passed, earliest first.
func (s *Store) DueCampaigns(ctx context.Context, now time.Time, limit int) ([]campaign.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+campaignCols+`
		FROM campaigns
		WHERE status = 'SCHEDULED' AND start_date <= $1
		ORDER BY start_date, id
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActivateCampaign claims the campaign (DRAFT or SCHEDULED to ACTIVE) and
// inserts its deliveries in one transaction. When the claim is lost nothing
// is written and ErrCampaignNotLaunchable is returned.
func (s *Store) ActivateCampaign(ctx context.Context, tenantID string, id int64, now time.Time, deliveries []campaign.Delivery) (int, error) {
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE campaigns
			   SET status = 'ACTIVE', start_date = $3, updated_at = $3
			 WHERE id = $1 AND tenant_id = $2 AND status IN ('DRAFT','SCHEDULED')
		`, id, tenantID, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return campaign.ErrCampaignNotLaunchable
		}
		return insertDeliveries(ctx, tx, deliveries)
	})
	if err != nil {
		return 0, err
	}
	return len(deliveries), nil
}

func (s *Store) ListVariants(ctx context.Context, campaignID int64) ([]campaign.Variant, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, campaign_id, name, weight, subject, content, created_at
		FROM campaign_variants
		WHERE campaign_id = $1
		ORDER BY id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Variant
	for rows.Next() {
		var v campaign.Variant
		var subject, content sql.NullString
		if err := rows.Scan(&v.ID, &v.CampaignID, &v.Name, &v.Weight, &subject, &content, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Subject = stringPtr(subject)
		v.Content = stringPtr(content)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CreateVariant(ctx context.Context, v campaign.Variant) (campaign.Variant, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO campaign_variants (campaign_id, name, weight, subject, content)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, v.CampaignID, v.Name, v.Weight, v.Subject, v.Content).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return campaign.Variant{}, err
	}
	return v, nil
}

// SegmentAudience lists the subscribed members of a segment in a stable
// order so variant assignment is reproducible.
func (s *Store) SegmentAudience(ctx context.Context, tenantID string, segmentID int64) ([]campaign.AudienceMember, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT sm.customer_id, COALESCE(sm.channel, '')
		FROM segment_members sm
		JOIN customers cu ON cu.id = sm.customer_id
		WHERE sm.segment_id = $1 AND cu.tenant_id = $2 AND NOT cu.unsubscribed
		ORDER BY sm.customer_id
	`, segmentID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.AudienceMember
	for rows.Next() {
		var m campaign.AudienceMember
		if err := rows.Scan(&m.CustomerID, &m.Channel); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
