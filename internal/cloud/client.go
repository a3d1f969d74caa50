package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/vuedl/internal/credential"
	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
	"github.com/nerrad567/vuedl/internal/usage"
)

// Cognito request constants.
const (
	cognitoContentType = "application/x-amz-json-1.1"
	cognitoTarget      = "AWSCognitoIdentityProviderService.InitiateAuth"
	cognitoAuthFlow    = "USER_PASSWORD_AUTH"
)

// defaultRequestTimeout applies when the config leaves request_timeout unset.
const defaultRequestTimeout = 30 * time.Second

// Client talks to the Vue cloud API.
//
// Thread Safety: methods are safe for concurrent use, though a run issues
// requests sequentially.
type Client struct {
	apiURL     string
	authURL    string
	clientID   string
	username   string
	password   string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a client from the cloud section and fetch timeout.
//
// Parameters:
//   - cfg: Cloud credentials and endpoints
//   - timeout: Per-request timeout (0 uses 30s)
//   - logger: Receives redacted request/response dumps at debug level
//
// Returns:
//   - *Client: Ready-to-use client
func New(cfg config.CloudConfig, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		authURL:  cfg.AuthURL,
		clientID: cfg.ClientID,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newDumpTransport(http.DefaultTransport, logger),
		},
		now: time.Now,
	}
}

type initiateAuthRequest struct {
	AuthParameters struct {
		Username string `json:"USERNAME"`
		Password string `json:"PASSWORD"`
	} `json:"AuthParameters"`
	AuthFlow string `json:"AuthFlow"`
	ClientID string `json:"ClientId"`
}

type initiateAuthResponse struct {
	AuthenticationResult struct {
		IDToken   string `json:"IdToken"`
		ExpiresIn int64  `json:"ExpiresIn"`
	} `json:"AuthenticationResult"`
}

// Authenticate exchanges the configured username and password for an id
// token. It implements credential.Exchanger.
func (c *Client) Authenticate(ctx context.Context) (credential.Credential, error) {
	var body initiateAuthRequest
	body.AuthParameters.Username = c.username
	body.AuthParameters.Password = c.password
	body.AuthFlow = cognitoAuthFlow
	body.ClientID = c.clientID

	payload, err := json.Marshal(body)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("encoding auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(payload))
	if err != nil {
		return credential.Credential{}, fmt.Errorf("building auth request: %w", err)
	}
	req.Header.Set("Content-Type", cognitoContentType)
	req.Header.Set("X-Amz-Target", cognitoTarget)

	var resp initiateAuthResponse
	if err := c.doJSON(req, &resp); err != nil {
		return credential.Credential{}, err
	}

	result := resp.AuthenticationResult
	if result.IDToken == "" || result.ExpiresIn <= 0 {
		return credential.Credential{}, fmt.Errorf("%w: missing IdToken or ExpiresIn", ErrUnexpectedResponse)
	}
	return credential.Credential{
		Token:     result.IDToken,
		ExpiresAt: c.now().UTC().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// CustomerID resolves the customer gid for the configured account email.
func (c *Client) CustomerID(ctx context.Context, token string) (int64, error) {
	q := url.Values{}
	q.Set("email", c.username)

	req, err := c.newAPIRequest(ctx, token, "/customers", q)
	if err != nil {
		return 0, err
	}

	var resp struct {
		CustomerGID json.Number `json:"customerGid"`
	}
	if err := c.doJSON(req, &resp); err != nil {
		return 0, err
	}

	gid, err := strconv.ParseInt(resp.CustomerGID.String(), 10, 64)
	if err != nil || gid == 0 {
		return 0, fmt.Errorf("%w: customerGid %q", ErrUnexpectedResponse, resp.CustomerGID)
	}
	return gid, nil
}

type channelJSON struct {
	DeviceGID  int64  `json:"deviceGid"`
	ChannelNum string `json:"channelNum"`
}

type deviceJSON struct {
	DeviceGID int64         `json:"deviceGid"`
	Channels  []channelJSON `json:"channels"`
	Devices   []deviceJSON  `json:"devices"`
}

// Devices lists every (device gid, channel) pair on the account, including
// channels of nested sub-devices, in the order the API returns them.
func (c *Client) Devices(ctx context.Context, token string) ([]usage.Device, error) {
	req, err := c.newAPIRequest(ctx, token, "/customers/devices", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Devices []deviceJSON `json:"devices"`
	}
	if err := c.doJSON(req, &resp); err != nil {
		return nil, err
	}

	var devices []usage.Device
	var walk func([]deviceJSON)
	walk = func(tree []deviceJSON) {
		for _, d := range tree {
			for _, ch := range d.Channels {
				devices = append(devices, usage.Device{GID: ch.DeviceGID, Channel: ch.ChannelNum})
			}
			walk(d.Devices)
		}
	}
	walk(resp.Devices)
	return devices, nil
}

// Usage fetches one device's chart usage for window at scale and returns the
// raw response body unparsed.
func (c *Client) Usage(ctx context.Context, token string, device usage.Device, w usage.Window, scale usage.Scale) ([]byte, error) {
	q := url.Values{}
	q.Set("apiMethod", "getChartUsage")
	q.Set("deviceGid", strconv.FormatInt(device.GID, 10))
	q.Set("channel", device.Channel)
	q.Set("start", w.Start.UTC().Format(time.RFC3339))
	q.Set("end", w.End.UTC().Format(time.RFC3339))
	q.Set("scale", string(scale))
	q.Set("energyUnit", "KilowattHours")

	req, err := c.newAPIRequest(ctx, token, "/AppAPI", q)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// newAPIRequest builds an authenticated GET against the API base URL.
func (c *Client) newAPIRequest(ctx context.Context, token, path string, q url.Values) (*http.Request, error) {
	target := c.apiURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("authtoken", token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(snippet),
		}
	}
	return body, nil
}

// doJSON executes req and decodes a 2xx response into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrUnexpectedResponse, req.URL.Path, err)
	}
	return nil
}
