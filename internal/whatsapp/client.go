package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outreach-desk/internal/config"

	"github.com/pkg/errors"
)

type Client struct {
	Config     *config.Config
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TemplateObj struct {
	Name     string      `json:"name"`
	Language LanguageObj `json:"language"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

// MessageResponse is the Cloud API answer to a send.
type MessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageTemplate is one entry of the business account's template list.
type MessageTemplate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

type templateList struct {
	Data   []MessageTemplate `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// --- Helper Functions ---

func (c *Client) endpoint(parts ...string) string {
	return strings.TrimRight(c.Config.GraphAPIURL, "/") + "/" + strings.Join(parts, "/")
}

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, errors.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	return respBody, nil
}

// --- Messaging Methods ---

func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) (*MessageResponse, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}

	resp, err := c.sendRequest(ctx, http.MethodPost, c.endpoint(c.Config.PhoneNumberID, "messages"), msg)
	if err != nil {
		return nil, errors.Wrapf(err, "whatsapp: send to %s", msg.To)
	}

	var out MessageResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, errors.Wrap(err, "whatsapp: decode send response")
	}
	return &out, nil
}

// SendTemplateMessage sends an approved template by name. The configured
// TEMPLATE_LANGUAGE is used when languageCode is empty.
func (c *Client) SendTemplateMessage(ctx context.Context, to, templateName, languageCode string) error {
	if languageCode == "" {
		languageCode = c.Config.TemplateLanguage
	}

	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &TemplateObj{
			Name: templateName,
			Language: LanguageObj{
				Code: languageCode,
			},
		},
	}
	_, err := c.SendRawMessage(ctx, msg)
	return err
}

// --- Template Methods ---

// GetTemplates pages through every message template of the business account.
func (c *Client) GetTemplates(ctx context.Context) ([]MessageTemplate, error) {
	if c.Config.WhatsAppBusinessAccountID == "" {
		return nil, errors.New("whatsapp: WABA_ID not configured")
	}

	next := c.endpoint(c.Config.WhatsAppBusinessAccountID, "message_templates") + "?" +
		url.Values{"fields": {"id,name,language,category,status"}, "limit": {"100"}}.Encode()

	var templates []MessageTemplate
	for next != "" {
		resp, err := c.sendRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, errors.Wrap(err, "whatsapp: list templates")
		}

		var page templateList
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, errors.Wrap(err, "whatsapp: decode templates")
		}
		templates = append(templates, page.Data...)
		next = page.Paging.Next
	}
	return templates, nil
}

// ApprovedTemplateNames returns the names usable as a template repository,
// one per template regardless of language, in the order Meta lists them.
func (c *Client) ApprovedTemplateNames(ctx context.Context) ([]string, error) {
	templates, err := c.GetTemplates(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]struct{})
	for _, t := range templates {
		if !strings.EqualFold(t.Status, "APPROVED") {
			continue
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		names = append(names, t.Name)
	}
	return names, nil
}
