package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorKind(t *testing.T) {
	transport := &TransportError{Method: "GET", Endpoint: "https://acc.r2.cloudflarestorage.com/b/k", Err: io.ErrUnexpectedEOF}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Field: "bucket name", Value: "A", Rule: "lowercase only"}, KindValidation},
		{"api", &APIError{Code: 10006, Message: "bucket not found", Status: 404}, KindAPI},
		{"wrapped api", fmt.Errorf("list: %w", &APIError{Message: "boom"}), KindAPI},
		{"upload over transport", &UploadError{ObjectFault{Op: "upload", Bucket: "b", Key: "k", Err: transport}}, KindUpload},
		{"download", &DownloadError{ObjectFault{Op: "download", Bucket: "b", Key: "k", Status: 404}}, KindDownload},
		{"delete", &DeleteError{ObjectFault{Op: "delete", Bucket: "b", Key: "k", Status: 500}}, KindDelete},
		{"bare transport", transport, KindTransport},
		{"other", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectErrorsUnwrapTransport(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := &DeleteError{ObjectFault{
		Op:     "delete",
		Bucket: "logs",
		Key:    "2024/01.txt",
		Err:    &TransportError{Method: "DELETE", Endpoint: "https://x/logs/2024/01.txt", Err: cause},
	}}

	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatal("expected the transport error to be reachable")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the root cause to be reachable")
	}
	if !strings.Contains(err.Error(), "logs/2024/01.txt") {
		t.Errorf("message %q does not name the key", err.Error())
	}
}

func TestObjectFaultMessage(t *testing.T) {
	err := &DownloadError{ObjectFault{Op: "download", Bucket: "b", Key: "missing", Status: 404, Code: "NoSuchKey", Message: "The specified key does not exist."}}

	want := "r2 download failed: download b/missing: status 404 NoSuchKey: The specified key does not exist."
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant      %q", err.Error(), want)
	}
	if !err.NotFound() {
		t.Error("expected NotFound")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	withValue := &ValidationError{Field: "bucket name", Value: "Bad_Name", Rule: "may only contain lowercase letters, digits, dots and hyphens"}
	if !strings.HasPrefix(withValue.Error(), `invalid bucket name "Bad_Name"`) {
		t.Errorf("unexpected message %q", withValue.Error())
	}

	noValue := &ValidationError{Field: "object key", Rule: "must not be empty"}
	if noValue.Error() != "invalid object key: must not be empty" {
		t.Errorf("unexpected message %q", noValue.Error())
	}
}
