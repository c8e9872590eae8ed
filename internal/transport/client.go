package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/messenger"
)

// Client is a messenger.Messenger talking to a Server. It never retries:
// messages are delivered at most once.
type Client struct {
	base    string
	token   string
	timeout time.Duration
	http    *retryablehttp.Client
	log     *zap.Logger
}

var _ messenger.Messenger = (*Client)(nil)

// NewClient returns a Client for the server at endpoint. timeout bounds
// each call; zero means no bound beyond ctx.
func NewClient(endpoint, token string, timeout time.Duration, log *zap.Logger) *Client {
	log = logging.OrNop(log)

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{log.Sugar()}

	return &Client{
		base:    strings.TrimRight(endpoint, "/"),
		token:   token,
		timeout: timeout,
		http:    rc,
		log:     log,
	}
}

// Send implements messenger.Messenger.
func (c *Client) Send(ctx context.Context, target messenger.InstanceID, req messenger.Request) (messenger.Response, error) {
	fail := func(err error) (messenger.Response, error) {
		return messenger.Response{}, &messenger.DeliveryError{Target: target, Kind: req.Kind, Err: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}
	status, respBody, err := c.do(ctx, http.MethodPost, messagesPath(target), body)
	if err != nil {
		return fail(err)
	}

	switch status {
	case http.StatusOK:
		var resp messenger.Response
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fail(fmt.Errorf("decode response: %w", err))
		}
		return resp, nil
	case http.StatusNotFound:
		return fail(messenger.ErrNoListener)
	}
	return fail(remoteError(status, respBody))
}

// Resolve implements popup.Resolver by asking the server for its active
// instance. Any failure counts as no instance.
func (c *Client) Resolve(ctx context.Context) (messenger.InstanceID, bool) {
	status, body, err := c.do(ctx, http.MethodGet, pathActive, nil)
	if err != nil {
		c.log.Warn("resolve active instance", zap.Error(err))
		return "", false
	}
	switch status {
	case http.StatusOK:
		id := gjson.GetBytes(body, "instance").Str
		return messenger.InstanceID(id), id != ""
	case http.StatusNoContent:
		return "", false
	}
	c.log.Warn("resolve active instance", zap.Error(remoteError(status, body)))
	return "", false
}

// Instances lists every instance registered with the server.
func (c *Client) Instances(ctx context.Context) ([]messenger.InstanceID, error) {
	status, body, err := c.do(ctx, http.MethodGet, pathInstances, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, body)
	}
	var ib instancesBody
	if err := json.Unmarshal(body, &ib); err != nil {
		return nil, fmt.Errorf("decode instances: %w", err)
	}
	return ib.Instances, nil
}

// do performs one request. A transport failure is reported as
// messenger.ErrDisconnected.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var payload interface{}
	if body != nil {
		payload = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	setToken(req.Header, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", messenger.ErrDisconnected, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", messenger.ErrDisconnected, err)
	}
	return resp.StatusCode, respBody, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// remoteError turns a failure response into an error, keeping the server's
// error message when it sent one.
func remoteError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error").Str
	switch msg {
	case codeDisconnected:
		return messenger.ErrDisconnected
	case codeNoListener:
		return messenger.ErrNoListener
	case "":
		return fmt.Errorf("agent: unexpected status %d", status)
	}
	return &RemoteError{Status: status, Message: msg}
}

// RemoteError is a failure reported by the agent.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("agent: %s (status %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err was a rejected token.
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
