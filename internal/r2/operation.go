package r2

import (
	"errors"
	"fmt"
	"strings"
)

const (
	OpList             = "list"
	OpCreate           = "create"
	OpGet              = "get"
	OpDelete           = "delete"
	OpGetCORS          = "getCORS"
	OpSetCORS          = "setCORS"
	OpDeleteCORS       = "deleteCORS"
	OpUpload           = "upload"
	OpDownload         = "download"
	OpGetMetadata      = "getMetadata"
	OpCopy             = "copy"
	OpDeleteMultiple   = "deleteMultiple"
	OpUploadMultiple   = "uploadMultiple"
	OpDownloadMultiple = "downloadMultiple"
)

// Kind identifies a command without its arguments, e.g. "object:upload".
type Kind string

// KindFor builds the kind of a resource/operation pair.
func KindFor(r Resource, op string) Kind { return Kind(string(r) + ":" + op) }

// KindOf returns the kind of cmd.
func KindOf(cmd Command) Kind { return KindFor(cmd.Resource(), cmd.Operation()) }

var (
	ErrUnknownOperation     = errors.New("unknown operation")
	ErrUnsupportedOperation = errors.New("operation not supported")
)

var kinds = map[Kind]struct{}{
	KindFor(ResourceBucket, OpList):          {},
	KindFor(ResourceBucket, OpCreate):        {},
	KindFor(ResourceBucket, OpGet):           {},
	KindFor(ResourceBucket, OpDelete):        {},
	KindFor(ResourceBucket, OpGetCORS):       {},
	KindFor(ResourceBucket, OpSetCORS):       {},
	KindFor(ResourceBucket, OpDeleteCORS):    {},
	KindFor(ResourceObject, OpUpload):        {},
	KindFor(ResourceObject, OpDownload):      {},
	KindFor(ResourceObject, OpGetMetadata):   {},
	KindFor(ResourceObject, OpDelete):        {},
	KindFor(ResourceObject, OpList):          {},
	KindFor(ResourceObject, OpCopy):          {},
	KindFor(ResourceBatch, OpDeleteMultiple): {},
}

// ParseOperation validates a resource/operation pair. Names are matched
// case-insensitively.
func ParseOperation(resource, operation string) (Kind, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(resource)))
	op := strings.TrimSpace(operation)
	for k := range kinds {
		res, name, _ := strings.Cut(string(k), ":")
		if Resource(res) == r && strings.EqualFold(name, op) {
			return k, nil
		}
	}
	if r == ResourceBatch && (strings.EqualFold(op, OpUploadMultiple) || strings.EqualFold(op, OpDownloadMultiple)) {
		return "", fmt.Errorf("%w: %s %s", ErrUnsupportedOperation, r, op)
	}
	return "", fmt.Errorf("%w: %s %s", ErrUnknownOperation, resource, operation)
}

// SplitKeys parses a newline separated key list, dropping blank lines.
func SplitKeys(text string) []string {
	var keys []string
	for _, line := range strings.Split(text, "\n") {
		if k := strings.TrimSpace(line); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
