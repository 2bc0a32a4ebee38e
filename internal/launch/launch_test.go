package launch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/internal/testdata"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu            sync.Mutex
	campaigns     map[int64]*campaign.Campaign
	audience      []campaign.AudienceMember
	variants      []campaign.Variant
	deliveries    []campaign.Delivery
	variantCalls  int
	audienceErr   error
	activateCalls int
}

func (f *fakeStore) GetCampaign(ctx context.Context, tenantID string, id int64) (campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return campaign.Campaign{}, campaign.ErrCampaignNotFound
	}
	return *c, nil
}

func (f *fakeStore) SegmentAudience(ctx context.Context, tenantID string, segmentID int64) ([]campaign.AudienceMember, error) {
	return f.audience, f.audienceErr
}

func (f *fakeStore) ListVariants(ctx context.Context, campaignID int64) ([]campaign.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variantCalls++
	return f.variants, nil
}

func (f *fakeStore) ActivateCampaign(ctx context.Context, tenantID string, id int64, at time.Time, ds []campaign.Delivery) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	c := f.campaigns[id]
	if !c.Status.Launchable() {
		return 0, campaign.ErrCampaignNotLaunchable
	}
	c.Status = campaign.StatusActive
	c.StartDate = &at
	f.deliveries = append(f.deliveries, ds...)
	return len(ds), nil
}

type recordingSink struct {
	events []events.Event
	err    error
}

func (r *recordingSink) SaveEvent(ctx context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func newStore(c campaign.Campaign) *fakeStore {
	return &fakeStore{campaigns: map[int64]*campaign.Campaign{c.ID: &c}}
}

func seg(id int64) *int64 { return &id }

func TestLaunch_EmptyAudienceActivates(t *testing.T) {
	testdata.Seed(1)
	st := newStore(testdata.Campaign(1, "t1", campaign.StatusDraft, nil))
	sink := &recordingSink{}

	res, err := New(st, sink).Launch(context.Background(), "t1", 1, now)

	require.NoError(t, err)
	assert.Equal(t, Result{CampaignID: 1, Enqueued: 0}, res)
	assert.Equal(t, campaign.StatusActive, st.campaigns[1].Status)
	assert.Equal(t, now, *st.campaigns[1].StartDate)
	assert.Zero(t, st.variantCalls)
	require.Len(t, sink.events, 1)
	assert.Equal(t, model.EventCampaignLaunched, sink.events[0].EventType)
	assert.Equal(t, "1", sink.events[0].AggregateID)
}

func TestLaunch_WeightedSplit(t *testing.T) {
	testdata.Seed(2)
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusScheduled, seg(9)))
	st.audience = testdata.Audience(100, 0)
	st.variants = []campaign.Variant{{ID: 11, Name: "A", Weight: 70}, {ID: 12, Name: "B", Weight: 30}}

	res, err := New(st, nil).Launch(context.Background(), "t1", 5, now)

	require.NoError(t, err)
	assert.Equal(t, 100, res.Enqueued)
	counts := map[int64]int{}
	for _, d := range st.deliveries {
		require.NotNil(t, d.VariantID)
		counts[*d.VariantID]++
		assert.Equal(t, campaign.DeliveryPending, d.Status)
		assert.Equal(t, now, d.ScheduledAt)
		assert.Equal(t, "email", d.Channel)
	}
	assert.Equal(t, map[int64]int{11: 70, 12: 30}, counts)
}

func TestLaunch_ZeroVariantsLeavesVariantUnset(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusDraft, seg(9)))
	st.audience = testdata.Audience(10, 0)

	res, err := New(st, nil).Launch(context.Background(), "t1", 5, now)

	require.NoError(t, err)
	assert.Equal(t, 10, res.Enqueued)
	for _, d := range st.deliveries {
		assert.Nil(t, d.VariantID)
	}
}

func TestLaunch_SingleVariantAlwaysSelected(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusDraft, seg(9)))
	st.audience = testdata.Audience(25, 0)
	st.variants = []campaign.Variant{{ID: 3, Weight: 1}}

	_, err := New(st, nil).Launch(context.Background(), "t1", 5, now)

	require.NoError(t, err)
	for _, d := range st.deliveries {
		assert.Equal(t, int64(3), *d.VariantID)
	}
}

func TestPlan_ChannelOverrideLowercased(t *testing.T) {
	c := campaign.Campaign{ID: 5, TenantID: "t1", Type: "WHATSAPP"}
	audience := []campaign.AudienceMember{{CustomerID: 1}, {CustomerID: 2, Channel: "Instagram"}}

	ds := Plan(c, audience, nil, now)

	require.Len(t, ds, 2)
	assert.Equal(t, "whatsapp", ds[0].Channel)
	assert.Equal(t, "instagram", ds[1].Channel)
	assert.Equal(t, "t1", ds[1].TenantID)
	assert.Equal(t, int64(2), ds[1].CustomerID)
}

func TestLaunch_ActiveIsNotLaunchable(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusActive, seg(9)))

	_, err := New(st, nil).Launch(context.Background(), "t1", 5, now)

	assert.ErrorIs(t, err, campaign.ErrCampaignNotLaunchable)
	assert.Zero(t, st.activateCalls)
}

func TestLaunch_NotFoundAcrossTenants(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusDraft, nil))

	_, err := New(st, nil).Launch(context.Background(), "t2", 5, now)

	assert.ErrorIs(t, err, campaign.ErrCampaignNotFound)
}

func TestLaunch_ConcurrentLaunchesEnqueueOnce(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusScheduled, seg(9)))
	st.audience = testdata.Audience(20, 0.3)
	l := New(st, nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Launch(context.Background(), "t1", 5, now)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, campaign.ErrCampaignNotLaunchable)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, st.deliveries, 20)
}

func TestLaunch_AudienceErrorWrapped(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusDraft, seg(9)))
	st.audienceErr = errors.New("db down")

	_, err := New(st, nil).Launch(context.Background(), "t1", 5, now)

	require.ErrorContains(t, err, "load audience: db down")
	assert.Equal(t, campaign.StatusDraft, st.campaigns[5].Status)
}

func TestLaunch_SinkFailureDoesNotFailLaunch(t *testing.T) {
	st := newStore(testdata.Campaign(5, "t1", campaign.StatusDraft, nil))
	sink := &recordingSink{err: errors.New("queue down")}

	res, err := New(st, sink).Launch(context.Background(), "t1", 5, now)

	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)
	assert.Len(t, sink.events, 1)
}
