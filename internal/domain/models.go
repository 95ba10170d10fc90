// internal/domain/models.go
package domain

import "time"

// Credential carries everything needed to talk to both planes of one account.
// It is supplied per call and never cached.
type Credential struct {
	AccountID       string
	APIToken        string
	APIEndpoint     string
	AccessKeyID     string
	SecretAccessKey string
}

// Bucket represents an R2 bucket as returned by the control plane
type Bucket struct {
	Name         string `json:"name"`
	CreationDate string `json:"creation_date"`
	Location     string `json:"location,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// ObjectRecord describes a stored object
type ObjectRecord struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag"`
	LastModified time.Time         `json:"last_modified"`
	ContentType  string            `json:"content_type,omitempty"`
	StorageClass string            `json:"storage_class,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CORSRule is a single bucket CORS rule
type CORSRule struct {
	ID             string       `json:"id,omitempty"`
	AllowedOrigins []string     `json:"allowed_origins"`
	AllowedMethods []CORSMethod `json:"allowed_methods"`
	AllowedHeaders []string     `json:"allowed_headers,omitempty"`
	ExposeHeaders  []string     `json:"expose_headers,omitempty"`
	MaxAgeSeconds  *int         `json:"max_age,omitempty"`
}

// CORSConfiguration is the ordered rule list of a bucket. An empty list means no CORS.
type CORSConfiguration struct {
	Rules []CORSRule `json:"rules"`
}

// CreateBucketOptions holds the optional placement settings of a new bucket
type CreateBucketOptions struct {
	LocationHint string
	Jurisdiction string
}

// UploadInput describes a single object PUT
type UploadInput struct {
	Bucket          string
	Key             string
	Data            []byte
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
	StorageClass    StorageClass
}

// ByteRange selects part of an object. End < 0 reads to the end of the object.
type ByteRange struct {
	Start int64
	End   int64
}

// DownloadResult is the raw body of an object plus the metadata read from the response
type DownloadResult struct {
	Data   []byte
	Object ObjectRecord
	// Status is the provider status: 206 when a range was honored, 200 for the full body.
	Status int
}

// ListOptions narrows a ListObjects call
type ListOptions struct {
	Prefix            string
	Delimiter         string
	MaxKeys           int
	ContinuationToken string
	StartAfter        string
}

// ListResult is one page of objects
type ListResult struct {
	Objects           []ObjectRecord `json:"objects"`
	CommonPrefixes    []string       `json:"common_prefixes,omitempty"`
	Truncated         bool           `json:"truncated"`
	ContinuationToken string         `json:"continuation_token,omitempty"`
}

// CopyInput describes a server-side copy
type CopyInput struct {
	SourceBucket      string
	SourceKey         string
	DestinationBucket string
	DestinationKey    string
	MetadataDirective MetadataDirective
	ContentType       string
	Metadata          map[string]string
}

// DeleteOptions controls batch deletes. Concurrency <= 1 deletes sequentially.
type DeleteOptions struct {
	Concurrency int
}

// DeleteResult lists the keys confirmed deleted, in request order
type DeleteResult struct {
	Deleted []string `json:"deleted"`
}
