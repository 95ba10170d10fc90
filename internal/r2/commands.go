package r2

import "github.com/andresuchdata/r2bridge/internal/domain"

// Resource groups operations the way callers address them
type Resource string

const (
	ResourceBucket Resource = "bucket"
	ResourceObject Resource = "object"
	ResourceBatch  Resource = "batch"
)

// Command is one of the operation structs below. The set is closed; Execute
// rejects anything else.
type Command interface {
	Resource() Resource
	Operation() string
}

type ListBuckets struct{}

type CreateBucket struct {
	Name    string
	Options domain.CreateBucketOptions
}

type GetBucket struct{ Name string }

type DeleteBucket struct{ Name string }

type GetCORS struct{ Bucket string }

type SetCORS struct {
	Bucket string
	Config domain.CORSConfiguration
}

type DeleteCORS struct{ Bucket string }

type UploadObject struct{ Input domain.UploadInput }

type DownloadObject struct {
	Bucket string
	Key    string
	Range  *domain.ByteRange
}

type HeadObject struct {
	Bucket string
	Key    string
}

type DeleteObject struct {
	Bucket string
	Key    string
}

type ListObjects struct {
	Bucket  string
	Options domain.ListOptions
}

type CopyObject struct{ Input domain.CopyInput }

type DeleteObjects struct {
	Bucket  string
	Keys    []string
	Options domain.DeleteOptions
}

func (ListBuckets) Resource() Resource    { return ResourceBucket }
func (CreateBucket) Resource() Resource   { return ResourceBucket }
func (GetBucket) Resource() Resource      { return ResourceBucket }
func (DeleteBucket) Resource() Resource   { return ResourceBucket }
func (GetCORS) Resource() Resource        { return ResourceBucket }
func (SetCORS) Resource() Resource        { return ResourceBucket }
func (DeleteCORS) Resource() Resource     { return ResourceBucket }
func (UploadObject) Resource() Resource   { return ResourceObject }
func (DownloadObject) Resource() Resource { return ResourceObject }
func (HeadObject) Resource() Resource     { return ResourceObject }
func (DeleteObject) Resource() Resource   { return ResourceObject }
func (ListObjects) Resource() Resource    { return ResourceObject }
func (CopyObject) Resource() Resource     { return ResourceObject }
func (DeleteObjects) Resource() Resource  { return ResourceBatch }

func (ListBuckets) Operation() string    { return OpList }
func (CreateBucket) Operation() string   { return OpCreate }
func (GetBucket) Operation() string      { return OpGet }
func (DeleteBucket) Operation() string   { return OpDelete }
func (GetCORS) Operation() string        { return OpGetCORS }
func (SetCORS) Operation() string        { return OpSetCORS }
func (DeleteCORS) Operation() string     { return OpDeleteCORS }
func (UploadObject) Operation() string   { return OpUpload }
func (DownloadObject) Operation() string { return OpDownload }
func (HeadObject) Operation() string     { return OpGetMetadata }
func (DeleteObject) Operation() string   { return OpDelete }
func (ListObjects) Operation() string    { return OpList }
func (CopyObject) Operation() string     { return OpCopy }
func (DeleteObjects) Operation() string  { return OpDeleteMultiple }

// Result carries whichever value the executed command produced. Exactly one
// field is set, or none for commands without output.
type Result struct {
	Buckets  []domain.Bucket           `json:"buckets,omitempty"`
	Bucket   *domain.Bucket            `json:"bucket,omitempty"`
	CORS     *domain.CORSConfiguration `json:"cors,omitempty"`
	Object   *domain.ObjectRecord      `json:"object,omitempty"`
	Download *domain.DownloadResult    `json:"-"`
	List     *domain.ListResult        `json:"list,omitempty"`
	Deleted  *domain.DeleteResult      `json:"deleted,omitempty"`
}
