package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/otel"
	"github.com/octabyte/bm-identity/utils/logger"
)

// TokenSource yields the bearer credential attached to outgoing requests. An
// empty string means no credential is stored and the request goes out
// unauthenticated.
type TokenSource interface {
	Token() string
}

// Config holds the configuration for the identity API connection.
type Config struct {
	BaseURL       string        `validate:"required,url"`
	Timeout       time.Duration // default: 30 seconds
	ServiceName   string        // span/tracer name (default: "bm-identity")
	EnableTracing bool
}

func (cfg *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
}

// Connection is the HTTP client for the identity API. Every request carries
// the stored bearer token; responses are decoded into the uniform envelope
// and discriminated into server-rejected versus transport failures.
type Connection struct {
	rest    *resty.Client
	cfg     Config
	baseURL string
}

// New creates a connection using the provided configuration and token source.
func New(cfg Config, tokens TokenSource) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bm-identity"
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	rest.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
		if tokens == nil {
			return nil
		}
		if token := tokens.Token(); token != "" {
			r.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	})

	return &Connection{rest: rest, cfg: cfg, baseURL: cfg.BaseURL}, nil
}

// Post sends a JSON body to the given path. A nil body sends an empty object.
func (c *Connection) Post(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	if body == nil {
		body = map[string]interface{}{}
	}
	return c.do(ctx, resty.MethodPost, path, body)
}

func (c *Connection) Get(ctx context.Context, path string) (*models.Envelope, error) {
	return c.do(ctx, resty.MethodGet, path, nil)
}

func (c *Connection) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return c.do(ctx, resty.MethodDelete, path, nil)
}

func (c *Connection) do(ctx context.Context, method, path string, body interface{}) (*models.Envelope, error) {
	var finish func(statusCode int, err error)
	if c.cfg.EnableTracing {
		ctx, finish = otel.StartHTTPSpan(ctx, c.cfg.ServiceName, path, method, c.baseURL, path)
	}

	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if finish != nil {
			finish(0, err)
		}
		logger.LogError("identity api request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &TransportError{Op: method + " " + path, Cause: err}
	}
	if finish != nil {
		finish(resp.StatusCode(), nil)
	}

	raw := resp.Body()
	var envelope models.Envelope
	if decodeErr := json.Unmarshal(raw, &envelope); decodeErr != nil {
		logger.LogError("identity api returned an undecodable body",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode()), zap.Error(decodeErr))
		return nil, &TransportError{Op: method + " " + path, Cause: decodeErr}
	}

	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			// Some error bodies carry the text under a different key.
			message = gjson.GetBytes(raw, "error").String()
		}
		if message == "" {
			message = fmt.Sprintf("request rejected with status %d", resp.StatusCode())
		}
		return &envelope, &ServerError{Message: message}
	}

	return &envelope, nil
}
