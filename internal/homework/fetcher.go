package homework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "hwbot/pkg/logx"
)

// maxBody caps how much of a response we read.
const maxBody = 4 << 20

// ClientConfig locates the review API and authenticates against it.
type ClientConfig struct {
	Endpoint string
	Token    string
	// Timeout bounds one request. Zero means no per-request timeout.
	Timeout time.Duration
}

// Client fetches homework statuses from the review API.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  logx.Logger
	now  func() time.Time
}

// NewClient validates cfg. A nil httpClient gets a default client.
func NewClient(cfg ClientConfig, httpClient *http.Client, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("homework api endpoint is empty")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("homework api endpoint: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: httpClient, log: log, now: time.Now}, nil
}

// Fetch asks for statuses changed since ts (unix seconds; 0 means now).
// It performs exactly one request and never retries.
func (c *Client) Fetch(ctx context.Context, ts int64) (json.RawMessage, error) {
	if ts == 0 {
		ts = c.now().Unix()
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(ts, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request homework statuses: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read homework statuses: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		rerr := &RemoteStatusError{Code: resp.StatusCode, Message: diagnosticMessage(body)}
		c.log.Warn("homework api answered with an error",
			logx.Int("status", resp.StatusCode),
			logx.String("api_message", rerr.Message),
		)
		return nil, rerr
	}
	return json.RawMessage(body), nil
}

// diagnosticMessage returns the "message" field of a JSON object body, if any.
func diagnosticMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	switch v := m["message"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
