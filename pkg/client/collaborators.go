package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"healthmatch/pkg/model"
)

type DirectoryClient struct {
	httpClient *HttpClient
}

func NewDirectoryClient(baseURL string, timeout time.Duration, ts TokenSource) *DirectoryClient {
	return &DirectoryClient{httpClient: NewHttpClient(baseURL, timeout).WithTokenSource(ts)}
}

func (c *DirectoryClient) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/users/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var user model.UserProfile
	if err := resp.DecodeData(&user); err != nil {
		return nil, fmt.Errorf("could not decode user %s: %w", id, err)
	}
	return &user, nil
}

type CatalogClient struct {
	httpClient *HttpClient
}

func NewCatalogClient(baseURL string, timeout time.Duration, ts TokenSource) *CatalogClient {
	return &CatalogClient{httpClient: NewHttpClient(baseURL, timeout).WithTokenSource(ts)}
}

func (c *CatalogClient) GetService(ctx context.Context, id string) (*model.CatalogService, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/services/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var service model.CatalogService
	if err := resp.DecodeData(&service); err != nil {
		return nil, fmt.Errorf("could not decode service %s: %w", id, err)
	}
	return &service, nil
}

type NotificationClient struct {
	httpClient *HttpClient
}

func NewNotificationClient(baseURL string, timeout time.Duration, ts TokenSource) *NotificationClient {
	return &NotificationClient{httpClient: NewHttpClient(baseURL, timeout).WithTokenSource(ts)}
}

// Send posts the notification. The response body is not inspected.
func (c *NotificationClient) Send(ctx context.Context, req model.NotificationRequest) error {
	_, err := c.httpClient.POST(ctx, "/api/v1/notifications", req)
	return err
}

type PaymentClient struct {
	httpClient *HttpClient
}

func NewPaymentClient(baseURL string, timeout time.Duration, ts TokenSource) *PaymentClient {
	return &PaymentClient{httpClient: NewHttpClient(baseURL, timeout).WithTokenSource(ts)}
}

func (c *PaymentClient) CreateIntent(ctx context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/payment-intents", req)
	if err != nil {
		return nil, err
	}

	var intent model.PaymentIntent
	if err := resp.DecodeData(&intent); err != nil {
		return nil, fmt.Errorf("could not decode payment intent: %w", err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("payment intent response has no id")
	}
	return &intent, nil
}
