// Package meta talks to the Meta Graph messaging endpoints used for the
// WhatsApp and Instagram channels.
package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OutboundMessage struct {
	RecipientID string
	Content     string
	MessageType string
}

type SendResult struct {
	MessageID string
}

// Sender delivers one message through an account identified by channelRef
// (a WhatsApp phone-number id or an Instagram account id).
type Sender interface {
	SendMessage(ctx context.Context, channelRef string, msg OutboundMessage) (SendResult, error)
}

type graphClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newGraphClient(baseURL, token string) graphClient {
	return graphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g graphClient) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph api %d: %s", resp.StatusCode, ge.Error.Message)
		}
		return fmt.Errorf("graph api http status: %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

type WhatsAppClient struct{ g graphClient }

func NewWhatsAppClient(baseURL, token string) *WhatsAppClient {
	return &WhatsAppClient{g: newGraphClient(baseURL, token)}
}

func (c *WhatsAppClient) SendMessage(ctx context.Context, phoneNumberID string, msg OutboundMessage) (SendResult, error) {
	msgType := msg.MessageType
	if msgType == "" {
		msgType = "text"
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                msg.RecipientID,
		"type":              msgType,
		"text":              map[string]any{"body": msg.Content, "preview_url": true},
	}
	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.g.post(ctx, "/"+phoneNumberID+"/messages", payload, &out); err != nil {
		return SendResult{}, err
	}
	if len(out.Messages) == 0 {
		return SendResult{}, nil
	}
	return SendResult{MessageID: out.Messages[0].ID}, nil
}

type InstagramClient struct{ g graphClient }

func NewInstagramClient(baseURL, token string) *InstagramClient {
	return &InstagramClient{g: newGraphClient(baseURL, token)}
}

func (c *InstagramClient) SendMessage(ctx context.Context, accountID string, msg OutboundMessage) (SendResult, error) {
	payload := map[string]any{
		"recipient": map[string]any{"id": msg.RecipientID},
		"message":   map[string]any{"text": msg.Content},
	}
	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := c.g.post(ctx, "/"+accountID+"/messages", payload, &out); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: out.MessageID}, nil
}
