package dataplane

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/transport"
	"github.com/minio/minio-go/v7"
)

// setMetadata writes one x-amz-meta-* header per entry.
func setMetadata(h http.Header, metadata map[string]string) {
	for k, v := range metadata {
		h.Set(metaPrefix+strings.ToLower(k), v)
	}
}

// lowerKeys returns metadata keyed the way it is stored and read back.
func lowerKeys(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[strings.ToLower(k)] = v
	}
	return out
}

// recordFromHeaders maps GET/HEAD response headers to an ObjectRecord.
// Size falls back to 0 when Content-Length is missing or malformed.
func recordFromHeaders(key string, h http.Header) domain.ObjectRecord {
	rec := domain.ObjectRecord{
		Key:          key,
		ETag:         h.Get("ETag"),
		ContentType:  h.Get("Content-Type"),
		StorageClass: h.Get(headerStorageClass),
	}
	if n, err := strconv.ParseInt(h.Get("Content-Length"), 10, 64); err == nil && n >= 0 {
		rec.Size = n
	}
	if lm := h.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			rec.LastModified = t.UTC()
		}
	}
	rec.Metadata = metadataFromHeaders(h)
	return rec
}

// metadataFromHeaders strips the x-amz-meta- prefix back off user metadata.
func metadataFromHeaders(h http.Header) map[string]string {
	var md map[string]string
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, metaPrefix) || len(values) == 0 {
			continue
		}
		if md == nil {
			md = map[string]string{}
		}
		md[strings.TrimPrefix(lower, metaPrefix)] = values[0]
	}
	return md
}

// providerError decodes an S3 XML error body when there is one.
func providerError(body []byte) (code, message string, found bool) {
	if len(body) == 0 {
		return "", "", false
	}
	var er minio.ErrorResponse
	if err := xml.Unmarshal(body, &er); err != nil || er.Code == "" {
		return "", "", false
	}
	return er.Code, er.Message, true
}

// fault builds the shared error context from a failed response.
func fault(op, bucket, key string, resp *transport.Response) domain.ObjectFault {
	f := domain.ObjectFault{Op: op, Bucket: bucket, Key: key, Status: resp.Status}
	if code, msg, found := providerError(resp.Body); found {
		f.Code, f.Message = code, msg
	} else {
		f.Message = http.StatusText(resp.Status)
	}
	return f
}

func rangeHeader(r *domain.ByteRange) string {
	if r.End < 0 {
		return "bytes=" + strconv.FormatInt(r.Start, 10) + "-"
	}
	return "bytes=" + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10)
}

type copyObjectResult struct {
	XMLName      xml.Name `xml:"CopyObjectResult"`
	LastModified time.Time
	ETag         string
}
