package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
)

const (
	ReasonUnsupported  = "Unsupported channel"
	ReasonNoEmail      = "No customer email"
	ReasonNoPhone      = "No customer phone"
	ReasonNoInstagram  = "No Instagram id"
	ReasonSendFallback = "Send failed"
	// ReasonNotConfigured is transient: the delivery succeeds once the
	// transport credentials are supplied and the row is requeued.
	ReasonNotConfigured = "Channel not configured"
)

// Handler sends a delivery over one channel. It is called at most once per
// dispatch and must not retry internally.
type Handler interface {
	Channel() string
	Deliver(ctx context.Context, pd campaign.PendingDelivery) (messageID string, err error)
}

// Failure is a classified delivery failure. Handlers return it for
// precondition problems; any other error is treated as a transport failure.
type Failure struct {
	Reason string
	Kind   campaign.FailureKind
}

func (f *Failure) Error() string { return f.Reason }

func permanent(reason string) error {
	return &Failure{Reason: reason, Kind: campaign.FailurePermanent}
}

func transient(reason string) error {
	return &Failure{Reason: reason, Kind: campaign.FailureTransient}
}

// Result is the per-delivery outcome of one dispatch.
type Result struct {
	DeliveryID int64
	Channel    string
	MessageID  string
	Err        error
	Kind       campaign.FailureKind
}

func (r Result) OK() bool { return r.Err == nil }

// Reason is the message persisted on a failed delivery.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	if msg := r.Err.Error(); msg != "" {
		return msg
	}
	return ReasonSendFallback
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher(handlers ...Handler) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

// Register adds or replaces the handler for h.Channel().
func (d *Dispatcher) Register(h Handler) {
	d.handlers[strings.ToLower(h.Channel())] = h
}

func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.handlers))
	for ch := range d.handlers {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Dispatch attempts exactly one send for pd. Errors and panics from the
// handler are folded into the Result so one recipient never aborts a batch.
func (d *Dispatcher) Dispatch(ctx context.Context, pd campaign.PendingDelivery) (res Result) {
	ch := strings.ToLower(strings.TrimSpace(pd.Delivery.Channel))
	res = Result{DeliveryID: pd.Delivery.ID, Channel: ch}

	h, ok := d.handlers[ch]
	if !ok {
		res.Err = permanent(ReasonUnsupported)
		res.Kind = campaign.FailurePermanent
		return res
	}

	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(ch).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			res.MessageID = ""
			res.Err = fmt.Errorf("%s: %v", ReasonSendFallback, r)
			res.Kind = campaign.FailureTransient
		}
	}()

	id, err := h.Deliver(ctx, pd)
	if err != nil {
		res.Err = err
		res.Kind = kindOf(err)
		return res
	}
	res.MessageID = id
	return res
}

func kindOf(err error) campaign.FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return campaign.FailureTransient
}
