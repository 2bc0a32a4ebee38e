package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/time/rate"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/tracking"
	"github.com/walidhousni/glavito-sub011/internal/transport/mail"
	"github.com/walidhousni/glavito-sub011/internal/transport/meta"
)

type EmailHandler struct {
	Mailer          mail.Mailer
	TrackingBaseURL string
	// ClickSecret enables signed click tracking on links in the HTML body.
	ClickSecret string
}

func (h *EmailHandler) Channel() string { return "email" }

func (h *EmailHandler) Deliver(ctx context.Context, pd campaign.PendingDelivery) (string, error) {
	to := strings.TrimSpace(pd.Customer.Email)
	if to == "" {
		return "", permanent(ReasonNoEmail)
	}
	subject := campaign.Render(campaign.Subject(pd.Campaign, pd.Variant), pd.Customer)
	body := campaign.Render(campaign.Body(pd.Campaign, pd.Variant), pd.Customer)

	htmlBody, textBody := emailBodies(body)
	if h.TrackingBaseURL != "" && h.ClickSecret != "" {
		htmlBody = tracking.RewriteLinks(htmlBody, h.TrackingBaseURL, h.ClickSecret, pd.Delivery.ID)
	}
	if h.TrackingBaseURL != "" {
		htmlBody += fmt.Sprintf(`<img src="%s/t/open/%d" width="1" height="1" alt="" style="display:none" />`,
			strings.TrimRight(h.TrackingBaseURL, "/"), pd.Delivery.ID)
	}
	return h.Mailer.SendEmail(ctx, to, subject, htmlBody, textBody)
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// emailBodies returns html and plain-text renditions of body, which may be
// either HTML or plain text.
func emailBodies(body string) (string, string) {
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		return body, strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(body, "")))
	}
	escaped := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
	return "<p>" + escaped + "</p>", body
}

// WhatsAppHandler sends text messages through the Cloud API. A nil Sender
// means the channel has no credentials yet.
type WhatsAppHandler struct {
	Sender        meta.Sender
	PhoneNumberID string
	DefaultRegion string
}

func (h *WhatsAppHandler) Channel() string { return "whatsapp" }

func (h *WhatsAppHandler) Deliver(ctx context.Context, pd campaign.PendingDelivery) (string, error) {
	phone := strings.TrimSpace(pd.Customer.Phone)
	if phone == "" {
		return "", permanent(ReasonNoPhone)
	}
	if h.Sender == nil {
		return "", transient(ReasonNotConfigured)
	}
	body := campaign.Render(campaign.Body(pd.Campaign, pd.Variant), pd.Customer)

	res, err := h.Sender.SendMessage(ctx, h.PhoneNumberID, meta.OutboundMessage{
		RecipientID: NormalizePhone(phone, h.DefaultRegion),
		Content:     body,
		MessageType: "text",
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// NormalizePhone formats phone as E.164 when it parses as a valid number for
// region, and returns it trimmed otherwise.
func NormalizePhone(phone, region string) string {
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return strings.TrimSpace(phone)
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

type InstagramHandler struct {
	Sender    meta.Sender
	AccountID string
}

func (h *InstagramHandler) Channel() string { return "instagram" }

func (h *InstagramHandler) Deliver(ctx context.Context, pd campaign.PendingDelivery) (string, error) {
	igID := instagramID(pd.Customer.CustomFields)
	if igID == "" {
		return "", permanent(ReasonNoInstagram)
	}
	if h.Sender == nil {
		return "", transient(ReasonNotConfigured)
	}
	body := campaign.Render(campaign.Body(pd.Campaign, pd.Variant), pd.Customer)

	res, err := h.Sender.SendMessage(ctx, h.AccountID, meta.OutboundMessage{
		RecipientID: igID,
		Content:     body,
		MessageType: "text",
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

func instagramID(fields map[string]any) string {
	switch v := fields["instagramId"].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

type throttled struct {
	Handler
	lim *rate.Limiter
}

// Throttle limits how often h is called. A nil limiter returns h unchanged.
func Throttle(h Handler, lim *rate.Limiter) Handler {
	if lim == nil {
		return h
	}
	return throttled{Handler: h, lim: lim}
}

func (t throttled) Deliver(ctx context.Context, pd campaign.PendingDelivery) (string, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return "", err
	}
	return t.Handler.Deliver(ctx, pd)
}
