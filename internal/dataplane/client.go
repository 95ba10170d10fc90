// Package dataplane performs signed object operations against the S3-compatible
// R2 storage endpoint.
package dataplane

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/signer"
	"github.com/andresuchdata/r2bridge/internal/transport"
)

const (
	// DefaultStorageDomain is appended to the account id to form the storage host.
	DefaultStorageDomain = "r2.cloudflarestorage.com"

	metaPrefix          = "x-amz-meta-"
	headerStorageClass  = "x-amz-storage-class"
	headerCopySource    = "x-amz-copy-source"
	headerMetaDirective = "x-amz-metadata-directive"
	defaultContentType  = "application/octet-stream"
)

// Options configures where data-plane requests are sent
type Options struct {
	// StorageDomain defaults to DefaultStorageDomain.
	StorageDomain string
	// Endpoint, when set, replaces the account host entirely (scheme://host[:port]).
	Endpoint string
}

// Client issues signed object requests
type Client struct {
	doer     transport.Doer
	signer   *signer.Signer
	domain   string
	endpoint *url.URL
}

// New builds a Client. It fails only when opts.Endpoint is not an absolute URL.
func New(doer transport.Doer, s *signer.Signer, opts Options) (*Client, error) {
	c := &Client{
		doer:   doer,
		signer: s,
		domain: strings.Trim(strings.TrimSpace(opts.StorageDomain), "."),
	}
	if c.domain == "" {
		c.domain = DefaultStorageDomain
	}
	if c.signer == nil {
		c.signer = signer.New()
	}
	if ep := strings.TrimSpace(opts.Endpoint); ep != "" {
		u, err := url.Parse(ep)
		if err != nil {
			return nil, fmt.Errorf("parse storage endpoint: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("storage endpoint %q must include scheme and host", ep)
		}
		c.endpoint = u
	}
	return c, nil
}

// call describes one data-plane request before signing
type call struct {
	method string
	bucket string
	key    string
	query  url.Values
	header http.Header
	body   []byte
}

func (c *Client) target(cred domain.Credential) (scheme, host string, err error) {
	if c.endpoint != nil {
		return c.endpoint.Scheme, c.endpoint.Host, nil
	}
	if strings.TrimSpace(cred.AccountID) == "" {
		return "", "", fmt.Errorf("account id is required to reach the storage endpoint")
	}
	return "https", cred.AccountID + "." + c.domain, nil
}

// send signs the call at the current instant and dispatches it.
func (c *Client) send(ctx context.Context, cred domain.Credential, cl call) (*transport.Response, error) {
	scheme, host, err := c.target(cred)
	if err != nil {
		return nil, err
	}

	path := "/" + cl.bucket
	if cl.key != "" {
		path += "/" + cl.key
	}
	req := signer.Request{
		Method:   cl.method,
		Host:     host,
		Path:     path,
		RawQuery: encodeQuery(cl.query),
		Header:   cl.header,
		Body:     cl.body,
	}

	headers, err := c.signer.SignNow(ctx, req, signer.AccessKeys{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	endpoint := req.URL(scheme)
	resp, err := c.doer.Do(ctx, &transport.Request{
		Method: cl.method,
		URL:    endpoint,
		Header: headers,
		Body:   cl.body,
	})
	if err != nil {
		return nil, &domain.TransportError{Method: cl.method, Endpoint: endpoint, Err: err}
	}
	return resp, nil
}

// encodeQuery matches the canonical query form used for signing.
func encodeQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}

func ok(status int) bool { return status >= 200 && status <= 299 }
