package cloudapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/muurk/recync/internal/urls"
)

// DefaultTimeout is the default HTTP request timeout
const DefaultTimeout = 10 * time.Second

// accessTokenHeader carries the cloud access token on every request
const accessTokenHeader = "Access-Token"

// Client is the discovery REST client for the cloud API. It makes
// exactly two kinds of calls: the user's device list, and the property
// record of a hub-class device.
type Client struct {
	// BaseURL is the API base (default urls.APIBase); overridable for tests
	BaseURL string

	// AccessToken is the cloud access token, sent on every request
	AccessToken string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a discovery client for the production API.
func NewClient(accessToken string) *Client {
	return &Client{
		BaseURL:     urls.APIBase,
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
	}
}

// ListDevices returns the devices subscribed to the given user.
func (c *Client) ListDevices(ctx context.Context, userID string) ([]Device, error) {
	url := c.BaseURL + fmt.Sprintf(urls.DeviceListPath, userID)

	var devices []Device
	if err := c.getJSON(ctx, url, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// DeviceProperties returns the property record of a hub-class device,
// including its bulb array.
func (c *Client) DeviceProperties(ctx context.Context, productID string, deviceID int64) (*DeviceProperties, error) {
	url := c.BaseURL + fmt.Sprintf(urls.DevicePropertiesPath, productID, fmt.Sprintf("%d", deviceID))

	var props DeviceProperties
	if err := c.getJSON(ctx, url, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

// getJSON performs a single GET and decodes the JSON response.
// A 403 is surfaced as an auth error, any other non-200 as a generic
// API error; neither is retried.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewNetworkError("failed to create request", err)
	}
	if c.AccessToken != "" {
		req.Header.Set(accessTokenHeader, c.AccessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		return NewAuthError("cloud API rejected credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return NewAPIError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}

	return nil
}
