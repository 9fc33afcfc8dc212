package uplink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AuthHeader carries the static collector token.
const AuthHeader = "authorization-token"

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("uplink transport failure")

// Class is the coarse category of a collector response.
type Class string

const (
	ClassSuccess     Class = "success"
	ClassServerError Class = "server_error"
	ClassOther       Class = "other"
)

// Classify maps an HTTP status code onto a Class. 4xx is deliberately not
// separated from other unexpected codes.
func Classify(code int) Class {
	switch {
	case code >= 200 && code < 300:
		return ClassSuccess
	case code >= 500 && code < 600:
		return ClassServerError
	default:
		return ClassOther
	}
}

// Outcome describes the collector's answer to one upload.
type Outcome struct {
	Class      Class
	StatusCode int
	Status     string // e.g. "500 Internal Server Error"
	Body       []byte
}

// Line is the operator-facing report for the outcome. Only the bare status
// code is echoed.
func (o Outcome) Line() string {
	switch o.Class {
	case ClassSuccess:
		return "success!"
	case ClassServerError:
		return "server error! Status: " + strconv.Itoa(o.StatusCode)
	default:
		return "Something else happened. Status: " + strconv.Itoa(o.StatusCode)
	}
}

// Config bundles the fixed request parameters.
type Config struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration // 0 = no client-side timeout
}

// Client posts encoded readings to the collector. It never retries.
type Client struct {
	endpoint string
	http     *resty.Client
	logger   *zap.Logger
}

// NewClient creates a Client for cfg. Retries are disabled.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader(AuthHeader, cfg.AuthToken)

	return &Client{
		endpoint: cfg.Endpoint,
		http:     rc,
		logger:   logger,
	}
}

// Send posts payload and blocks until the collector answers or the transport
// fails. Any HTTP status is an Outcome, not an error.
func (c *Client) Send(ctx context.Context, payload []byte) (Outcome, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.endpoint)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: POST %s: %v", ErrTransport, c.endpoint, err)
	}

	code := resp.StatusCode()
	status := resp.Status()
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	out := Outcome{
		Class:      Classify(code),
		StatusCode: code,
		Status:     status,
		Body:       resp.Body(),
	}

	c.logger.Debug("uplink response",
		zap.String("endpoint", c.endpoint),
		zap.Int("status_code", code),
		zap.String("class", string(out.Class)),
		zap.Duration("elapsed", resp.Time()),
	)
	return out, nil
}
