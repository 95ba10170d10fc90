// Package signer computes AWS Signature Version 4 headers for R2 data-plane requests.
//
// Signing is a pure transformation: the caller's headers are copied, the payload hash,
// date and Authorization headers are added, and the result is returned. Signatures are
// scoped to the signing instant, so callers sign immediately before dispatch.
package signer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/minio/minio-go/v7/pkg/s3utils"
)

const (
	DefaultService = "s3"
	DefaultRegion  = "auto"

	HeaderContentSHA256 = "X-Amz-Content-Sha256"
	HeaderDate          = "X-Amz-Date"
	HeaderAuthorization = "Authorization"
	HeaderHost          = "Host"
)

// ErrMissingKeys is returned when the access key pair is incomplete.
var ErrMissingKeys = errors.New("signer: access key id and secret access key are required")

// AccessKeys is the S3-compatible key pair used for data-plane requests
type AccessKeys struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Request is the part of an HTTP request covered by the signature.
// Path is the unescaped path; it is escaped once with S3 rules.
type Request struct {
	Method   string
	Host     string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// EscapedPath returns the S3-escaped path that is both signed and sent.
func (r Request) EscapedPath() string {
	if r.Path == "" {
		return "/"
	}
	return s3utils.EncodePath(r.Path)
}

// URL builds the request URL for scheme using the same path and query that are signed.
func (r Request) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.Path,
		RawPath:  r.EscapedPath(),
		RawQuery: r.RawQuery,
	}
	return u.String()
}

// Signer signs requests for one service and region
type Signer struct {
	Service string
	Region  string
	now     func() time.Time
}

// New returns a Signer for service "s3" in region "auto".
func New() *Signer {
	return &Signer{
		Service: DefaultService,
		Region:  DefaultRegion,
		now:     time.Now,
	}
}

// newV4 builds a signer per call. v4.Signer caches derived keys by access key
// id and day only, so a shared one would reuse a key derived from another secret.
func newV4() *v4.Signer {
	return v4.NewSigner(func(o *v4.SignerOptions) {
		// paths are escaped once by Request.EscapedPath
		o.DisableURIPathEscaping = true
	})
}

// WithClock returns a copy of s that reads the signing time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Now returns the signer clock reading.
func (s *Signer) Now() time.Time { return s.now() }

// SignNow signs req at the current instant.
func (s *Signer) SignNow(ctx context.Context, req Request, keys AccessKeys) (http.Header, error) {
	return s.Sign(ctx, req, keys, s.now())
}

// Sign returns req.Header augmented with Host, X-Amz-Content-Sha256, X-Amz-Date and
// Authorization for the instant at.
func (s *Signer) Sign(ctx context.Context, req Request, keys AccessKeys, at time.Time) (http.Header, error) {
	if keys.AccessKeyID == "" || keys.SecretAccessKey == "" {
		return nil, ErrMissingKeys
	}
	if req.Host == "" {
		return nil, errors.New("signer: host is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL("https"), nil)
	if err != nil {
		return nil, fmt.Errorf("signer: build request: %w", err)
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	httpReq.Header.Del(HeaderAuthorization)
	httpReq.Header.Del(HeaderHost)
	httpReq.ContentLength = int64(len(req.Body))

	payloadHash := PayloadHash(req.Body)
	httpReq.Header.Set(HeaderContentSHA256, payloadHash)

	creds := aws.Credentials{
		AccessKeyID:     keys.AccessKeyID,
		SecretAccessKey: keys.SecretAccessKey,
		Source:          "r2bridge",
	}
	if err := newV4().SignHTTP(ctx, creds, httpReq, payloadHash, s.Service, s.Region, at.UTC()); err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	signed := httpReq.Header.Clone()
	signed.Set(HeaderHost, req.Host)
	return signed, nil
}

// PayloadHash is the lowercase hex SHA-256 of body.
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
