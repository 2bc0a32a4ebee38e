package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/internal/launch"
	"github.com/walidhousni/glavito-sub011/internal/store"
	"github.com/walidhousni/glavito-sub011/internal/tracking"
)

func init() { gin.SetMode(gin.TestMode) }

const (
	tenant      = "tenant-a"
	clickSecret = "s3cret"
)

var fixedNow = time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu          sync.Mutex
	campaigns   map[int64]campaign.Campaign
	variants    map[int64][]campaign.Variant
	conversions []campaign.Conversion
	deliveries  map[int64]bool

	created      campaign.Campaign
	requeue      store.RequeueFilter
	requeueN     int64
	opened       []int64
	clicked      []int64
	unsubscribed []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: map[int64]campaign.Campaign{
			1: {ID: 1, TenantID: tenant, Name: "Spring", Type: "EMAIL", Status: campaign.StatusDraft},
			2: {ID: 2, TenantID: tenant, Name: "Live", Type: "EMAIL", Status: campaign.StatusActive},
			3: {ID: 3, TenantID: "tenant-b", Name: "Other", Type: "EMAIL", Status: campaign.StatusDraft},
		},
		variants:   map[int64][]campaign.Variant{},
		deliveries: map[int64]bool{77: true},
	}
}

func (f *fakeStore) lookup(tenantID string, id int64) (campaign.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return campaign.Campaign{}, campaign.ErrCampaignNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = 42
	c.Status = campaign.StatusDraft
	f.created = c
	f.campaigns[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetCampaign(ctx context.Context, tenantID string, id int64) (campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookup(tenantID, id)
}

func (f *fakeStore) ListCampaigns(ctx context.Context, tenantID string, flt store.CampaignFilter) ([]campaign.Campaign, []campaign.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []campaign.Campaign
	var stats []campaign.Stats
	for _, id := range []int64{1, 2, 3} {
		c := f.campaigns[id]
		if c.TenantID != tenantID || (flt.Status != "" && string(c.Status) != flt.Status) {
			continue
		}
		rows = append(rows, c)
		stats = append(stats, campaign.Stats{Total: 3, Sent: int(id)})
	}
	return rows, stats, nil
}

func (f *fakeStore) UpdateCampaign(ctx context.Context, tenantID string, id int64, p campaign.UpdateCampaignReq) (campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.lookup(tenantID, id)
	if err != nil {
		return c, err
	}
	if !c.Status.Launchable() {
		return c, campaign.ErrCampaignNotEditable
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) ScheduleCampaign(ctx context.Context, tenantID string, id int64, startDate time.Time) (campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.lookup(tenantID, id)
	if err != nil {
		return c, err
	}
	if !c.Status.Launchable() {
		return c, campaign.ErrCampaignNotEditable
	}
	c.Status = campaign.StatusScheduled
	c.StartDate = &startDate
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) CampaignStats(ctx context.Context, tenantID string, campaignID int64) (campaign.Stats, error) {
	return campaign.Stats{Total: 10, Pending: 2, Sent: 6, Failed: 2, Opened: 3, Clicked: 1}, nil
}

func (f *fakeStore) ListVariants(ctx context.Context, campaignID int64) ([]campaign.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants[campaignID], nil
}

func (f *fakeStore) CreateVariant(ctx context.Context, v campaign.Variant) (campaign.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = int64(len(f.variants[v.CampaignID]) + 1)
	f.variants[v.CampaignID] = append(f.variants[v.CampaignID], v)
	return v, nil
}

func (f *fakeStore) ListDeliveries(ctx context.Context, tenantID string, campaignID int64, status string, limit, offset int) ([]campaign.Delivery, error) {
	return []campaign.Delivery{
		{ID: 1, CampaignID: campaignID, CustomerID: 5, Channel: "email", Status: campaign.DeliveryFailed, ErrorMessage: "No email", FailureKind: campaign.FailurePermanent},
	}, nil
}

func (f *fakeStore) VariantPerformance(ctx context.Context, tenantID string, campaignID int64) ([]campaign.VariantPerformance, error) {
	return []campaign.VariantPerformance{{Name: "A", Weight: 70, Sent: 4}, {Name: "B", Weight: 30, Sent: 2}}, nil
}

func (f *fakeStore) RecordConversion(ctx context.Context, cv campaign.Conversion) (campaign.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cv.ID = int64(len(f.conversions) + 1)
	f.conversions = append(f.conversions, cv)
	return cv, nil
}

func (f *fakeStore) ListConversions(ctx context.Context, tenantID string, campaignID int64) ([]campaign.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []campaign.Conversion
	for _, cv := range f.conversions {
		if cv.TenantID == tenantID && cv.CampaignID == campaignID {
			out = append(out, cv)
		}
	}
	return out, nil
}

func (f *fakeStore) RequeueFailed(ctx context.Context, flt store.RequeueFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeue = flt
	return f.requeueN, nil
}

func (f *fakeStore) MarkOpened(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, id)
	return nil
}

func (f *fakeStore) MarkClicked(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicked = append(f.clicked, id)
	return nil
}

func (f *fakeStore) UnsubscribeByDelivery(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.deliveries[id] {
		return campaign.ErrDeliveryNotFound
	}
	f.unsubscribed = append(f.unsubscribed, id)
	return nil
}

type fakeLauncher struct {
	calls int
	res   launch.Result
	err   error
}

func (l *fakeLauncher) Launch(ctx context.Context, tenantID string, campaignID int64, now time.Time) (launch.Result, error) {
	l.calls++
	if l.err != nil {
		return launch.Result{}, l.err
	}
	return l.res, nil
}

type captureSink struct {
	mu  sync.Mutex
	got []events.Event
}

func (s *captureSink) SaveEvent(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	return nil
}

func newTestServer(fs *fakeStore, fl *fakeLauncher, sink *captureSink) *http.Server {
	h := &Handlers{Store: fs, Launcher: fl, Events: sink, Now: func() time.Time { return fixedNow }, ClickSecret: clickSecret}
	return NewHTTPServer(":0", h)
}

func do(srv *http.Server, method, path, body string, withTenant bool) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withTenant {
		req.Header.Set(tenantHeader, tenant)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestTenantHeaderRequired(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/campaigns", "", false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rr.Code)
	}
}

func TestCreateCampaign_OK(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs, &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns", `{
		"name":"Smoke",
		"type":"email",
		"subject":"Hi {{firstName}}",
		"content":"Hello",
		"segmentId":9
	}`, true)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	var resp campaign.CampaignResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != 42 || resp.Status != campaign.StatusDraft {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if fs.created.TenantID != tenant || fs.created.Type != "EMAIL" {
		t.Fatalf("tenant/type not applied: %+v", fs.created)
	}
	if fs.created.SegmentID == nil || *fs.created.SegmentID != 9 {
		t.Fatalf("segment not passed: %+v", fs.created.SegmentID)
	}
}

func TestCreateCampaign_BadRequest(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns", `{"name":"x","type":"fax"}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
}

func TestListCampaigns_TenantScoped(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/campaigns?limit=10&offset=0", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var list []campaign.CampaignResp
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2, got %d", len(list))
	}
	if list[1].Stats == nil || list[1].Stats.Sent != 2 {
		t.Fatalf("stats not aligned: %+v", list[1].Stats)
	}
}

func TestGetCampaign_OtherTenantIsNotFound(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/campaigns/3", "", true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/campaigns/abc", "", true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for bad id, got %d", rr.Code)
	}
}

func TestGetCampaign_WithStats(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/campaigns/1", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got campaign.CampaignResp
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Stats == nil || got.Stats.Total != 10 {
		t.Fatalf("unexpected stats: %+v", got.Stats)
	}
}

func TestUpdateCampaign_ActiveConflict(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodPatch, "/campaigns/2", `{"name":"renamed"}`, true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rr.Code)
	}

	rr = do(srv, http.MethodPatch, "/campaigns/1", `{"name":"renamed"}`, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "renamed") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestScheduleCampaign_RecordsEvent(t *testing.T) {
	fs := newFakeStore()
	sink := &captureSink{}
	srv := newTestServer(fs, &fakeLauncher{}, sink)

	rr := do(srv, http.MethodPost, "/campaigns/1/schedule", `{"startDate":"2025-10-03T09:00:00Z"}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if fs.campaigns[1].Status != campaign.StatusScheduled {
		t.Fatalf("want SCHEDULED, got %s", fs.campaigns[1].Status)
	}
	if len(sink.got) != 1 || sink.got[0].EventType != "campaign.scheduled" {
		t.Fatalf("unexpected events: %+v", sink.got)
	}
	if sink.got[0].AggregateID != "1" || sink.got[0].TenantID != tenant {
		t.Fatalf("unexpected event: %+v", sink.got[0])
	}
}

func TestLaunchCampaign(t *testing.T) {
	fl := &fakeLauncher{res: launch.Result{CampaignID: 1, Enqueued: 250}}
	srv := newTestServer(newFakeStore(), fl, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns/1/launch", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp campaign.LaunchResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Enqueued != 250 || fl.calls != 1 {
		t.Fatalf("unexpected resp=%+v calls=%d", resp, fl.calls)
	}
}

func TestLaunchCampaign_NotLaunchable(t *testing.T) {
	fl := &fakeLauncher{err: campaign.ErrCampaignNotLaunchable}
	srv := newTestServer(newFakeStore(), fl, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns/2/launch", "", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rr.Code)
	}
}

func TestLaunchCampaign_InternalErrorHidden(t *testing.T) {
	fl := &fakeLauncher{err: errTest("pq: connection reset")}
	srv := newTestServer(newFakeStore(), fl, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns/1/launch", "", true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "pq:") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}
}

func TestVariants_CreateAndList(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodPost, "/campaigns/1/variants", `{"name":"A","weight":70,"subject":"Hey"}`, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/campaigns/1/variants", "", true)
	var vs []campaign.VariantResp
	if err := json.Unmarshal(rr.Body.Bytes(), &vs); err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0].Weight != 70 || vs[0].Subject == nil || *vs[0].Subject != "Hey" {
		t.Fatalf("unexpected variants: %+v", vs)
	}

	rr = do(srv, http.MethodPost, "/campaigns/2/variants", `{"name":"late","weight":10}`, true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("want 409 on active campaign, got %d", rr.Code)
	}
}

func TestConversionsAndPerformance(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	for _, body := range []string{`{"customerId":5,"value":19.5}`, `{"customerId":6,"deliveryId":1,"value":0.5}`} {
		rr := do(srv, http.MethodPost, "/campaigns/1/conversions", body, true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := do(srv, http.MethodGet, "/campaigns/1/conversions", "", true)
	var convs campaign.ConversionsResp
	if err := json.Unmarshal(rr.Body.Bytes(), &convs); err != nil {
		t.Fatal(err)
	}
	if convs.Total != 2 || convs.TotalValue != 20 {
		t.Fatalf("unexpected conversions: %+v", convs)
	}

	rr = do(srv, http.MethodGet, "/campaigns/1/performance", "", true)
	var perf campaign.PerformanceResp
	if err := json.Unmarshal(rr.Body.Bytes(), &perf); err != nil {
		t.Fatal(err)
	}
	if perf.Conversions != 2 || perf.Revenue != 20 || len(perf.Variants) != 2 || perf.Stats.Sent != 6 {
		t.Fatalf("unexpected performance: %+v", perf)
	}
}

func TestListDeliveries(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/campaigns/1/deliveries?status=failed", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var ds []campaign.DeliveryResp
	if err := json.Unmarshal(rr.Body.Bytes(), &ds); err != nil {
		t.Fatal(err)
	}
	if len(ds) != 1 || ds[0].FailureKind != campaign.FailurePermanent {
		t.Fatalf("unexpected deliveries: %+v", ds)
	}
}

func TestRequeue_DefaultsIncludePermanent(t *testing.T) {
	fs := newFakeStore()
	fs.requeueN = 3
	sink := &captureSink{}
	srv := newTestServer(fs, &fakeLauncher{}, sink)

	rr := do(srv, http.MethodPost, "/deliveries/requeue", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !fs.requeue.IncludePermanent || fs.requeue.TenantID != tenant {
		t.Fatalf("unexpected filter: %+v", fs.requeue)
	}
	var resp campaign.RequeueResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Requeued != 3 {
		t.Fatalf("want 3, got %d", resp.Requeued)
	}
	if len(sink.got) != 1 || sink.got[0].EventType != "deliveries.requeued" {
		t.Fatalf("unexpected events: %+v", sink.got)
	}
}

func TestRequeue_TransientOnly(t *testing.T) {
	fs := newFakeStore()
	sink := &captureSink{}
	srv := newTestServer(fs, &fakeLauncher{}, sink)

	rr := do(srv, http.MethodPost, "/deliveries/requeue", `{"limit":5,"includePermanent":false}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if fs.requeue.IncludePermanent || fs.requeue.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", fs.requeue)
	}
	if len(sink.got) != 0 {
		t.Fatalf("no event expected when nothing was requeued")
	}
}

func TestTracking(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs, &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/t/open/77", "", false)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/gif" {
		t.Fatalf("status=%d ct=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	rr = do(srv, http.MethodGet, "/t/open/garbage", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("pixel must always be served, got %d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/t/click/77?"+signedClick(77, "https://shop.example.com/sale"), "", false)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://shop.example.com/sale" {
		t.Fatalf("status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
	rr = do(srv, http.MethodGet, "/t/click/77?"+signedClick(77, "javascript:alert(1)"), "", false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for non-http url, got %d", rr.Code)
	}

	if len(fs.opened) != 1 || len(fs.clicked) != 1 {
		t.Fatalf("opened=%v clicked=%v", fs.opened, fs.clicked)
	}
}

func TestTrackClick_RejectsUnsignedTargets(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs, &fakeLauncher{}, &captureSink{})

	for _, q := range []string{
		"url=https%3A%2F%2Fevil.example.com",
		"url=https%3A%2F%2Fevil.example.com&sig=" + tracking.Sign(clickSecret, 77, "https://shop.example.com/sale"),
		signedClick(78, "https://shop.example.com/sale"),
		"url=https%3A%2F%2Fshop.example.com&sig=" + tracking.Sign("other", 77, "https://shop.example.com"),
	} {
		rr := do(srv, http.MethodGet, "/t/click/77?"+q, "", false)
		if rr.Code != http.StatusBadRequest || rr.Header().Get("Location") != "" {
			t.Fatalf("%s: status=%d location=%s", q, rr.Code, rr.Header().Get("Location"))
		}
	}
	if len(fs.clicked) != 0 {
		t.Fatalf("no click should be recorded, got %v", fs.clicked)
	}
}

func TestTrackClick_NoSecretRejectsEverything(t *testing.T) {
	h := &Handlers{Store: newFakeStore(), Launcher: &fakeLauncher{}, Events: &captureSink{}}
	srv := NewHTTPServer(":0", h)

	rr := do(srv, http.MethodGet, "/t/click/77?url=https%3A%2F%2Fshop.example.com&sig="+tracking.Sign("", 77, "https://shop.example.com"), "", false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
}

func TestUnsubscribe_AlwaysConfirms(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs, &fakeLauncher{}, &captureSink{})

	for _, path := range []string{"/t/unsubscribe/77", "/t/unsubscribe/78", "/t/unsubscribe/garbage"} {
		rr := do(srv, http.MethodGet, path, "", false)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "unsubscribed") {
			t.Fatalf("%s: status=%d", path, rr.Code)
		}
	}
	if len(fs.unsubscribed) != 1 || fs.unsubscribed[0] != 77 {
		t.Fatalf("unexpected: %v", fs.unsubscribed)
	}
}

func signedClick(deliveryID int64, target string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("sig", tracking.Sign(clickSecret, deliveryID, target))
	return q.Encode()
}

func TestDocsEndpoints(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeLauncher{}, &captureSink{})

	rr := do(srv, http.MethodGet, "/docs", "", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "SwaggerUIBundle") {
		t.Fatalf("docs: status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/docs/campaign-api/openapi.yaml", "", false)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "openapi: 3.0.3") {
		t.Fatalf("openapi: status=%d", rr.Code)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
