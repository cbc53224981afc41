// Package signing submits artifacts to the third-party signing service and
// returns the resulting signing job.
package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/prostore-ios/installer/internal/transport"
)

const (
	maxResponseSize = 1 << 20
	jobSchemaURL    = "signing-job.schema.json"
)

// jobSchema describes the minimal job descriptor the service must return.
const jobSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

var (
	// ErrEmptyURL is returned when asked to sign an empty artifact URL.
	ErrEmptyURL = errors.New("artifact url cannot be empty")

	// ErrEndpointRequired is returned by NewClient without an endpoint.
	ErrEndpointRequired = errors.New("signing endpoint is required")

	// ErrSigningService matches every *ServiceError via errors.Is.
	ErrSigningService = errors.New("signing service error")
)

// ServiceError reports a non-success status or an unusable job descriptor.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 && !transport.IsSuccess(e.StatusCode) {
		return fmt.Sprintf("signing service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("signing service: %s", e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrSigningService
}

// Job is the signing service's record of a signing request.
type Job struct {
	ID string `json:"id"`
}

// Config holds configuration for the signing client
type Config struct {
	Endpoint   string
	UserAgent  string
	HTTPClient transport.Doer
}

// Client talks to the signing service.
type Client struct {
	config Config
	schema *jsonschema.Schema
}

// NewClient creates a signing client, filling unset fields with defaults.
func NewClient(config Config) (*Client, error) {
	if strings.TrimSpace(config.Endpoint) == "" {
		return nil, ErrEndpointRequired
	}
	if config.UserAgent == "" {
		config.UserAgent = transport.DefaultUserAgent
	}
	if config.HTTPClient == nil {
		config.HTTPClient = transport.NewHTTPClient(0)
	}

	schema, err := compileJobSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile job schema: %w", err)
	}

	return &Client{config: config, schema: schema}, nil
}

func compileJobSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(jobSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(jobSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(jobSchemaURL)
}

// Submit posts the artifact URL and returns the job descriptor.
func (c *Client) Submit(ctx context.Context, artifactURL string) (Job, error) {
	if strings.TrimSpace(artifactURL) == "" {
		return Job{}, ErrEmptyURL
	}

	payload, err := json.Marshal(map[string]string{"url": artifactURL})
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Job{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return Job{}, &transport.Error{Op: "submit signing job", URL: c.config.Endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Job{}, &transport.Error{Op: "read signing response", URL: c.config.Endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if !transport.IsSuccess(resp.StatusCode) {
		return Job{}, &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    summarize(body, resp.Status),
		}
	}

	return c.decodeJob(resp.StatusCode, body)
}

func (c *Client) decodeJob(status int, body []byte) (Job, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return Job{}, &ServiceError{StatusCode: status, Message: fmt.Sprintf("invalid JSON response: %v", err)}
	}
	if err := c.schema.Validate(inst); err != nil {
		return Job{}, &ServiceError{StatusCode: status, Message: fmt.Sprintf("response missing job identifier: %v", err)}
	}

	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, &ServiceError{StatusCode: status, Message: fmt.Sprintf("failed to decode job: %v", err)}
	}
	job.ID = strings.TrimSpace(job.ID)
	return job, nil
}

func summarize(body []byte, fallback string) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fallback
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
