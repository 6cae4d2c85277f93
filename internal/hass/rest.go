package hass

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RESTClient pushes state, events and service calls through the Home
// Assistant REST API.
type RESTClient struct {
	http *resty.Client
}

// NewRESTClient creates a Resty-backed client for the instance at baseURL.
func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetTimeout(15 * time.Second),
	}
}

type apiMessage struct {
	Message string `json:"message"`
}

// Ping checks that the API is reachable and the token is accepted.
func (c *RESTClient) Ping(ctx context.Context) error {
	var out apiMessage
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/")
	if err != nil {
		return fmt.Errorf("pinging home assistant: %w", err)
	}
	return checkResponse(resp, "ping")
}

// SetState creates or replaces the state of entityID.
func (c *RESTClient) SetState(ctx context.Context, entityID, state string, attributes map[string]any) error {
	body := map[string]any{
		"state":      state,
		"attributes": attributes,
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("entity_id", entityID).
		SetBody(body).
		Post("/api/states/{entity_id}")
	if err != nil {
		return fmt.Errorf("setting state of %s: %w", entityID, err)
	}
	return checkResponse(resp, "set state "+entityID)
}

// FireEvent fires eventType on the Home Assistant event bus.
func (c *RESTClient) FireEvent(ctx context.Context, eventType string, data any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("event_type", eventType).
		SetBody(data).
		Post("/api/events/{event_type}")
	if err != nil {
		return fmt.Errorf("firing %s: %w", eventType, err)
	}
	return checkResponse(resp, "fire "+eventType)
}

// CallService calls domain.service with the given service data.
func (c *RESTClient) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"domain": domain, "service": service}).
		SetBody(data).
		Post("/api/services/{domain}/{service}")
	if err != nil {
		return fmt.Errorf("calling %s.%s: %w", domain, service, err)
	}
	return checkResponse(resp, "call "+domain+"."+service)
}

func checkResponse(resp *resty.Response, op string) error {
	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return fmt.Errorf("%s: home assistant returned %d: %s", op, resp.StatusCode(), strings.TrimSpace(resp.String()))
}
