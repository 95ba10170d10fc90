// Package controlplane talks to the account-level R2 management API using a bearer token.
package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/transport"
	"github.com/andresuchdata/r2bridge/internal/validation"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultAPIEndpoint is used when the credential leaves APIEndpoint empty.
	DefaultAPIEndpoint = "https://api.cloudflare.com/client/v4"

	jurisdictionHeader = "cf-r2-jurisdiction"

	// codeNoCORSConfiguration is returned when a bucket has no CORS rules.
	codeNoCORSConfiguration = 10059
)

// Client issues bearer-authenticated JSON calls
type Client struct {
	doer transport.Doer
}

// New returns a Client that sends requests through doer.
func New(doer transport.Doer) *Client {
	return &Client{doer: doer}
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success  bool            `json:"success"`
	Errors   []apiMessage    `json:"errors"`
	Messages []apiMessage    `json:"messages"`
	Result   json.RawMessage `json:"result"`
}

type bucketList struct {
	Buckets []domain.Bucket `json:"buckets"`
}

type createBucketBody struct {
	Name         string `json:"name"`
	LocationHint string `json:"locationHint,omitempty"`
}

// ListBuckets returns the buckets of the account in provider order.
func (c *Client) ListBuckets(ctx context.Context, cred domain.Credential) ([]domain.Bucket, error) {
	var out bucketList
	if err := c.call(ctx, cred, http.MethodGet, bucketsPath(cred), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Buckets == nil {
		return []domain.Bucket{}, nil
	}
	return out.Buckets, nil
}

// CreateBucket creates name after checking the bucket naming rules.
func (c *Client) CreateBucket(ctx context.Context, cred domain.Credential, name string, opts domain.CreateBucketOptions) (*domain.Bucket, error) {
	if err := validation.CheckBucketName(name); err != nil {
		return nil, err
	}

	var header http.Header
	if opts.Jurisdiction != "" {
		header = http.Header{}
		header.Set(jurisdictionHeader, opts.Jurisdiction)
	}

	body := createBucketBody{Name: name, LocationHint: opts.LocationHint}
	var bucket domain.Bucket
	if err := c.call(ctx, cred, http.MethodPost, bucketsPath(cred), body, header, &bucket); err != nil {
		return nil, err
	}
	if bucket.Name == "" {
		bucket.Name = name
	}
	return &bucket, nil
}

// GetBucket fetches a single bucket.
func (c *Client) GetBucket(ctx context.Context, cred domain.Credential, name string) (*domain.Bucket, error) {
	if err := validation.CheckBucketName(name); err != nil {
		return nil, err
	}
	var bucket domain.Bucket
	if err := c.call(ctx, cred, http.MethodGet, bucketPath(cred, name), nil, nil, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// DeleteBucket removes an empty bucket. The provider rejects non-empty buckets.
func (c *Client) DeleteBucket(ctx context.Context, cred domain.Credential, name string) error {
	if err := validation.CheckBucketName(name); err != nil {
		return err
	}
	return c.call(ctx, cred, http.MethodDelete, bucketPath(cred, name), nil, nil, nil)
}

// GetCORS returns the CORS rules of a bucket. A bucket without rules yields an empty list.
func (c *Client) GetCORS(ctx context.Context, cred domain.Credential, bucket string) (*domain.CORSConfiguration, error) {
	if err := validation.CheckBucketName(bucket); err != nil {
		return nil, err
	}
	var wire corsWire
	err := c.call(ctx, cred, http.MethodGet, bucketPath(cred, bucket)+"/cors", nil, nil, &wire)
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeNoCORSConfiguration {
		return &domain.CORSConfiguration{Rules: []domain.CORSRule{}}, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := wire.toDomain()
	return &cfg, nil
}

// SetCORS replaces the CORS rules of a bucket.
func (c *Client) SetCORS(ctx context.Context, cred domain.Credential, bucket string, cfg domain.CORSConfiguration) error {
	if err := validation.CheckBucketName(bucket); err != nil {
		return err
	}
	if err := validation.CheckCORS(cfg); err != nil {
		return err
	}
	return c.call(ctx, cred, http.MethodPut, bucketPath(cred, bucket)+"/cors", corsFromDomain(cfg), nil, nil)
}

// DeleteCORS clears the CORS rules by setting an empty rule list.
func (c *Client) DeleteCORS(ctx context.Context, cred domain.Credential, bucket string) error {
	return c.SetCORS(ctx, cred, bucket, domain.CORSConfiguration{Rules: []domain.CORSRule{}})
}

func (c *Client) call(ctx context.Context, cred domain.Credential, method, path string, body any, header http.Header, out any) error {
	if err := checkCredential(cred); err != nil {
		return err
	}

	endpoint := apiEndpoint(cred) + path
	req := &transport.Request{
		Method: method,
		URL:    endpoint,
		Header: http.Header{},
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Authorization", "Bearer "+cred.APIToken)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &domain.TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("encode request body: %w", err)}
		}
		req.Body = payload
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return &domain.TransportError{Method: method, Endpoint: endpoint, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return &domain.TransportError{
			Method:   method,
			Endpoint: endpoint,
			Err:      fmt.Errorf("decode response (status %d): %w", resp.Status, err),
		}
	}

	if !env.Success || resp.Status < 200 || resp.Status > 299 {
		apiErr := &domain.APIError{
			Message:  "unknown error",
			Status:   resp.Status,
			Method:   method,
			Endpoint: endpoint,
		}
		if len(env.Errors) > 0 {
			apiErr.Code = env.Errors[0].Code
			apiErr.Message = env.Errors[0].Message
		}
		log.Debug().Err(apiErr).Int("status", resp.Status).Msg("r2 api call rejected")
		return apiErr
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &domain.TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func checkCredential(cred domain.Credential) error {
	if strings.TrimSpace(cred.AccountID) == "" {
		return &domain.ValidationError{Field: "credential", Rule: "account id is required"}
	}
	if strings.TrimSpace(cred.APIToken) == "" {
		return &domain.ValidationError{Field: "credential", Rule: "api token is required"}
	}
	return nil
}

func apiEndpoint(cred domain.Credential) string {
	endpoint := strings.TrimSpace(cred.APIEndpoint)
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	return strings.TrimRight(endpoint, "/")
}

func bucketsPath(cred domain.Credential) string {
	return "/accounts/" + url.PathEscape(cred.AccountID) + "/r2/buckets"
}

func bucketPath(cred domain.Credential, name string) string {
	return bucketsPath(cred) + "/" + url.PathEscape(name)
}
