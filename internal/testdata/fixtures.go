// Package testdata builds randomized campaign fixtures for tests.
package testdata

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
)

// Seed makes the package generators reproducible.
func Seed(seed int64) { gofakeit.Seed(seed) }

// Customer returns a customer with a random name, email and phone.
func Customer(id int64, tenantID string) campaign.Customer {
	return campaign.Customer{
		ID:        id,
		TenantID:  tenantID,
		Email:     gofakeit.Email(),
		Phone:     gofakeit.Phone(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		CustomFields: map[string]any{
			"instagramId": gofakeit.DigitN(12),
		},
	}
}

// Audience returns n members with ids starting at 1. overrideChance is the
// probability that a member carries a channel override.
func Audience(n int, overrideChance float64) []campaign.AudienceMember {
	out := make([]campaign.AudienceMember, n)
	for i := range out {
		out[i] = campaign.AudienceMember{CustomerID: int64(i + 1)}
		if gofakeit.Float64Range(0, 1) < overrideChance {
			out[i].Channel = gofakeit.RandomString([]string{"whatsapp", "instagram", "EMAIL"})
		}
	}
	return out
}

// Campaign returns a campaign in status with a random name and copy.
func Campaign(id int64, tenantID string, status campaign.Status, segmentID *int64) campaign.Campaign {
	now := time.Now().UTC()
	return campaign.Campaign{
		ID:          id,
		TenantID:    tenantID,
		Name:        gofakeit.BuzzWord() + " " + gofakeit.Noun(),
		Description: gofakeit.Sentence(8),
		Type:        "EMAIL",
		Status:      status,
		SegmentID:   segmentID,
		Subject:     gofakeit.Sentence(4),
		Content:     "Hi {first_name}, " + gofakeit.Sentence(10),
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
