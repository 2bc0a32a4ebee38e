package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
)

const statsCols = `
		  COUNT(*)                                   AS total,
		  COUNT(*) FILTER (WHERE status='pending')   AS pending,
		  COUNT(*) FILTER (WHERE status='sent')      AS sent,
		  COUNT(*) FILTER (WHERE status='failed')    AS failed,
		  COUNT(opened_at)                           AS opened,
		  COUNT(clicked_at)                          AS clicked`

const deliveryCols = `id, tenant_id, campaign_id, variant_id, customer_id, channel, status, scheduled_at, sent_at, message_id, error_message, failure_kind, opened_at, clicked_at, created_at, updated_at`

// rows per INSERT; 6 params each stays well under the postgres bind limit
const insertChunk = 1000

func insertDeliveries(ctx context.Context, tx *sql.Tx, deliveries []campaign.Delivery) error {
	for start := 0; start < len(deliveries); start += insertChunk {
		end := min(start+insertChunk, len(deliveries))
		chunk := deliveries[start:end]

		var b strings.Builder
		b.WriteString(`INSERT INTO campaign_deliveries (tenant_id, campaign_id, variant_id, customer_id, channel, status, scheduled_at) VALUES `)
		args := make([]any, 0, len(chunk)*6)
		for i, d := range chunk {
			if i > 0 {
				b.WriteByte(',')
			}
			n := i * 6
			fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,'pending',$%d)", n+1, n+2, n+3, n+4, n+5, n+6)
			args = append(args, d.TenantID, d.CampaignID, d.VariantID, d.CustomerID, d.Channel, d.ScheduledAt)
		}
		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

func scanDelivery(r rowScanner) (campaign.Delivery, error) {
	var (
		d       campaign.Delivery
		variant sql.NullInt64
		status  string
		sentAt  sql.NullTime
		kind    sql.NullString
		opened  sql.NullTime
		clicked sql.NullTime
	)
	err := r.Scan(&d.ID, &d.TenantID, &d.CampaignID, &variant, &d.CustomerID, &d.Channel, &status,
		&d.ScheduledAt, &sentAt, &d.MessageID, &d.ErrorMessage, &kind, &opened, &clicked, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return campaign.Delivery{}, err
	}
	d.VariantID = int64Ptr(variant)
	d.Status = campaign.DeliveryStatus(status)
	d.SentAt = timePtr(sentAt)
	d.FailureKind = campaign.FailureKind(kind.String)
	d.OpenedAt = timePtr(opened)
	d.ClickedAt = timePtr(clicked)
	return d, nil
}

// PendingDeliveries returns up to limit pending deliveries due at now,
// oldest first, joined with their campaign, customer and variant.
func (s *Store) PendingDeliveries(ctx context.Context, now time.Time, limit int) ([]campaign.PendingDelivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT d.id, d.tenant_id, d.campaign_id, d.variant_id, d.customer_id, d.channel, d.scheduled_at,
		       c.id, c.tenant_id, c.name, c.description, c.type, c.status, c.segment_id, c.subject, c.content,
		       c.metadata, c.start_date, c.created_at, c.updated_at,
		       cu.email, cu.phone, cu.first_name, cu.last_name, cu.custom_fields,
		       v.name, v.weight, v.subject, v.content
		FROM campaign_deliveries d
		JOIN campaigns c ON c.id = d.campaign_id
		JOIN customers cu ON cu.id = d.customer_id
		LEFT JOIN campaign_variants v ON v.id = d.variant_id
		WHERE d.status = 'pending' AND d.scheduled_at <= $1
		ORDER BY d.scheduled_at, d.id
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.PendingDelivery
	for rows.Next() {
		var (
			pd                 campaign.PendingDelivery
			variantID, segment sql.NullInt64
			cStatus            string
			meta, fields       []byte
			start              sql.NullTime
			vName              sql.NullString
			vWeight            sql.NullInt64
			vSubject, vContent sql.NullString
		)
		d, c, cu := &pd.Delivery, &pd.Campaign, &pd.Customer
		err := rows.Scan(&d.ID, &d.TenantID, &d.CampaignID, &variantID, &d.CustomerID, &d.Channel, &d.ScheduledAt,
			&c.ID, &c.TenantID, &c.Name, &c.Description, &c.Type, &cStatus, &segment, &c.Subject, &c.Content,
			&meta, &start, &c.CreatedAt, &c.UpdatedAt,
			&cu.Email, &cu.Phone, &cu.FirstName, &cu.LastName, &fields,
			&vName, &vWeight, &vSubject, &vContent)
		if err != nil {
			return nil, err
		}
		d.Status = campaign.DeliveryPending
		d.VariantID = int64Ptr(variantID)
		c.Status = campaign.Status(cStatus)
		c.SegmentID = int64Ptr(segment)
		c.Metadata = unmarshalJSON(meta)
		c.StartDate = timePtr(start)
		cu.ID = d.CustomerID
		cu.TenantID = d.TenantID
		cu.CustomFields = unmarshalJSON(fields)
		if variantID.Valid && vName.Valid {
			pd.Variant = &campaign.Variant{
				ID:         variantID.Int64,
				CampaignID: d.CampaignID,
				Name:       vName.String,
				Weight:     int(vWeight.Int64),
				Subject:    stringPtr(vSubject),
				Content:    stringPtr(vContent),
			}
		}
		out = append(out, pd)
	}
	return out, rows.Err()
}

// MarkDeliverySent is the terminal success update. Only a pending row moves.
func (s *Store) MarkDeliverySent(ctx context.Context, id int64, messageID string, sentAt time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_deliveries
		   SET status = 'sent', sent_at = $2, message_id = $3, error_message = '', failure_kind = NULL, updated_at = $2
		 WHERE id = $1 AND status = 'pending'
	`, id, sentAt, messageID)
	return expectOne(res, err, campaign.ErrDeliveryNotFound)
}

// MarkDeliveryFailed is the terminal failure update. Only a pending row moves.
func (s *Store) MarkDeliveryFailed(ctx context.Context, id int64, reason string, kind campaign.FailureKind, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_deliveries
		   SET status = 'failed', error_message = $2, failure_kind = $3, updated_at = $4
		 WHERE id = $1 AND status = 'pending'
	`, id, reason, string(kind), at)
	return expectOne(res, err, campaign.ErrDeliveryNotFound)
}

func expectOne(res sql.Result, err error, none error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

type RequeueFilter struct {
	// TenantID scopes the requeue; empty means every tenant.
	TenantID         string
	Limit            int
	IncludePermanent bool
	// FailedBefore, when set, only requeues rows that failed at or before it.
	FailedBefore time.Time
}

// RequeueFailed resets up to f.Limit failed deliveries to pending and returns
// how many moved.
func (s *Store) RequeueFailed(ctx context.Context, f RequeueFilter) (int64, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_deliveries
		   SET status = 'pending', error_message = '', failure_kind = NULL, updated_at = NOW()
		 WHERE id IN (
		   SELECT id FROM campaign_deliveries
		    WHERE status = 'failed'
		      AND ($1 = '' OR tenant_id = $1)
		      AND ($2 OR failure_kind IS DISTINCT FROM 'permanent')
		      AND ($3::timestamptz IS NULL OR updated_at <= $3)
		    ORDER BY updated_at, id
		    LIMIT $4
		    FOR UPDATE SKIP LOCKED
		 )
	`, f.TenantID, f.IncludePermanent, nullTime(f.FailedBefore), limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListDeliveries(ctx context.Context, tenantID string, campaignID int64, status string, limit, offset int) ([]campaign.Delivery, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+deliveryCols+`
		FROM campaign_deliveries
		WHERE tenant_id = $1 AND campaign_id = $2 AND ($3 = '' OR status = $3)
		ORDER BY id
		LIMIT $4 OFFSET $5
	`, tenantID, campaignID, strings.ToLower(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campaign.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CampaignStats(ctx context.Context, tenantID string, campaignID int64) (campaign.Stats, error) {
	var st campaign.Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT`+statsCols+`
		FROM campaign_deliveries
		WHERE tenant_id = $1 AND campaign_id = $2
	`, tenantID, campaignID).Scan(&st.Total, &st.Pending, &st.Sent, &st.Failed, &st.Opened, &st.Clicked)
	if err != nil {
		return campaign.Stats{}, err
	}
	return st, nil
}
