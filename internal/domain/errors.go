package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a caller-supplied value that fails a local invariant.
// It is always raised before any network call.
type ValidationError struct {
	Field string
	Value string
	Rule  string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Rule)
}

// APIError is a control-plane failure reported by the provider envelope.
type APIError struct {
	Code     int
	Message  string
	Status   int
	Method   string
	Endpoint string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("r2 api %s %s: %s (code %d)", e.Method, e.Endpoint, e.Message, e.Code)
	}
	return fmt.Sprintf("r2 api %s %s: %s", e.Method, e.Endpoint, e.Message)
}

// TransportError wraps a failure to complete or decode an HTTP exchange.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ObjectFault is the context shared by all data-plane errors.
type ObjectFault struct {
	Op      string
	Bucket  string
	Key     string
	Status  int
	Code    string
	Message string
	Err     error
}

func (f ObjectFault) describe() string {
	var b strings.Builder
	b.WriteString(f.Op)
	b.WriteString(" ")
	b.WriteString(f.Bucket)
	if f.Key != "" {
		b.WriteString("/")
		b.WriteString(f.Key)
	}
	if f.Status != 0 {
		fmt.Fprintf(&b, ": status %d", f.Status)
	}
	if f.Code != "" {
		fmt.Fprintf(&b, " %s", f.Code)
	}
	if f.Message != "" {
		fmt.Fprintf(&b, ": %s", f.Message)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

// NotFound reports whether the provider answered 404.
func (f ObjectFault) NotFound() bool { return f.Status == 404 }

// UploadError is a failed data-plane write (upload or copy).
type UploadError struct{ ObjectFault }

func (e *UploadError) Error() string { return "r2 upload failed: " + e.describe() }
func (e *UploadError) Unwrap() error { return e.Err }

// DownloadError is a failed data-plane read (download, head or list).
type DownloadError struct{ ObjectFault }

func (e *DownloadError) Error() string { return "r2 download failed: " + e.describe() }
func (e *DownloadError) Unwrap() error { return e.Err }

// DeleteError is a failed object delete. Key names the object that failed.
type DeleteError struct{ ObjectFault }

func (e *DeleteError) Error() string { return "r2 delete failed: " + e.describe() }
func (e *DeleteError) Unwrap() error { return e.Err }

// Error kinds reported by ErrorKind.
const (
	KindValidation = "validation"
	KindAPI        = "api"
	KindUpload     = "upload"
	KindDownload   = "download"
	KindDelete     = "delete"
	KindTransport  = "transport"
	KindInternal   = "internal"
)

// ErrorKind names the taxonomy class of err, checking object errors before
// the transport failures they may wrap.
func ErrorKind(err error) string {
	var (
		vErr  *ValidationError
		aErr  *APIError
		upErr *UploadError
		dlErr *DownloadError
		deErr *DeleteError
		tErr  *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &aErr):
		return KindAPI
	case errors.As(err, &upErr):
		return KindUpload
	case errors.As(err, &dlErr):
		return KindDownload
	case errors.As(err, &deErr):
		return KindDelete
	case errors.As(err, &tErr):
		return KindTransport
	}
	return KindInternal
}
