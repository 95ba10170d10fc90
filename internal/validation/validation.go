// Package validation holds the local invariants checked before any R2 call.
// Nothing here performs I/O.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"golang.org/x/net/http/httpguts"
)

const (
	MinBucketNameLength = 3
	MaxBucketNameLength = 63
	MaxObjectKeyBytes   = 1024
	MaxBatchDelete      = 1000
	MaxListKeys         = 1000
)

var (
	bucketCharset = regexp.MustCompile(`^[a-z0-9.-]+$`)
	bucketEdges   = regexp.MustCompile(`^[a-z0-9](.*[a-z0-9])?$`)
	dottedQuad    = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
)

// ValidBucketName reports whether name satisfies the bucket naming rules.
func ValidBucketName(name string) bool {
	return CheckBucketName(name) == nil
}

// CheckBucketName returns a ValidationError naming the first rule name violates.
func CheckBucketName(name string) error {
	switch {
	case len(name) < MinBucketNameLength:
		return invalid("bucket name", name, fmt.Sprintf("must be at least %d characters", MinBucketNameLength))
	case len(name) > MaxBucketNameLength:
		return invalid("bucket name", name, fmt.Sprintf("must be at most %d characters", MaxBucketNameLength))
	case !bucketCharset.MatchString(name):
		return invalid("bucket name", name, "only lowercase letters, numbers, hyphens and periods are allowed")
	case !bucketEdges.MatchString(name):
		return invalid("bucket name", name, "must start and end with a letter or number")
	case dottedQuad.MatchString(name):
		return invalid("bucket name", name, "must not be formatted as an IP address")
	}
	return nil
}

// ValidObjectKey reports whether key is an acceptable object key.
func ValidObjectKey(key string) bool {
	return CheckObjectKey(key) == nil
}

// CheckObjectKey rejects empty, oversized and traversal keys.
func CheckObjectKey(key string) error {
	switch {
	case key == "":
		return invalid("object key", key, "must not be empty")
	case len(key) > MaxObjectKeyBytes:
		return invalid("object key", truncate(key), fmt.Sprintf("must be at most %d bytes", MaxObjectKeyBytes))
	case strings.HasPrefix(key, "../"):
		return invalid("object key", key, "must not start with ../")
	}
	return nil
}

// CheckBatchSize enforces the provider cap on one batch delete.
func CheckBatchSize(n int) error {
	if n < 1 {
		return invalid("batch", "", "at least one key is required")
	}
	if n > MaxBatchDelete {
		return invalid("batch", fmt.Sprint(n), fmt.Sprintf("cannot delete more than %d objects at once", MaxBatchDelete))
	}
	return nil
}

// CheckMetadata verifies every entry can travel as an x-amz-meta-* header.
func CheckMetadata(metadata map[string]string) error {
	for k, v := range metadata {
		if k == "" || !httpguts.ValidHeaderFieldName(k) {
			return invalid("metadata key", k, "must be a valid HTTP header token")
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return invalid("metadata value", k, "must be a valid HTTP header value")
		}
	}
	return nil
}

// CheckStorageClass accepts an empty class or a known tier.
func CheckStorageClass(c domain.StorageClass) error {
	if !c.Valid() {
		return invalid("storage class", string(c), "must be STANDARD, REDUCED_REDUNDANCY or STANDARD_IA")
	}
	return nil
}

// CheckByteRange validates an optional read range.
func CheckByteRange(r *domain.ByteRange) error {
	if r == nil {
		return nil
	}
	if r.Start < 0 {
		return invalid("range", fmt.Sprint(r.Start), "start must not be negative")
	}
	if r.End >= 0 && r.End < r.Start {
		return invalid("range", fmt.Sprintf("%d-%d", r.Start, r.End), "end must not precede start")
	}
	return nil
}

// CheckMaxKeys bounds a list page size. Zero means provider default.
func CheckMaxKeys(n int) error {
	if n < 0 || n > MaxListKeys {
		return invalid("max keys", fmt.Sprint(n), fmt.Sprintf("must be between 0 and %d", MaxListKeys))
	}
	return nil
}

// CheckCORS validates every rule of cfg. An empty rule list is valid and clears CORS.
func CheckCORS(cfg domain.CORSConfiguration) error {
	for i, rule := range cfg.Rules {
		field := fmt.Sprintf("cors rule %d", i)
		if len(rule.AllowedOrigins) == 0 {
			return invalid(field, "", "at least one allowed origin is required")
		}
		for _, origin := range rule.AllowedOrigins {
			if strings.TrimSpace(origin) == "" {
				return invalid(field, origin, "origins must not be blank")
			}
		}
		if len(rule.AllowedMethods) == 0 {
			return invalid(field, "", "at least one allowed method is required")
		}
		for _, m := range rule.AllowedMethods {
			if !m.Valid() {
				return invalid(field, string(m), "method must be one of GET, POST, PUT, DELETE, HEAD")
			}
		}
		if rule.MaxAgeSeconds != nil && *rule.MaxAgeSeconds < 0 {
			return invalid(field, fmt.Sprint(*rule.MaxAgeSeconds), "max age must not be negative")
		}
	}
	return nil
}

func invalid(field, value, rule string) error {
	return &domain.ValidationError{Field: field, Value: value, Rule: rule}
}

func truncate(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}
