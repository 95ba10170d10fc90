// Package r2 binds the control-plane and data-plane clients behind a single
// command dispatcher.
package r2

import (
	"context"
	"fmt"

	"github.com/andresuchdata/r2bridge/internal/controlplane"
	"github.com/andresuchdata/r2bridge/internal/dataplane"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/signer"
	"github.com/andresuchdata/r2bridge/internal/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "r2bridge/r2"

// Options configures the data-plane endpoint and signing clock
type Options struct {
	StorageDomain   string
	StorageEndpoint string
	Signer          *signer.Signer
}

// Client runs commands against both planes. It holds no per-account state;
// every call takes its own credential.
type Client struct {
	control *controlplane.Client
	data    *dataplane.Client
	tracer  trace.Tracer
}

// New wires both planes onto doer.
func New(doer transport.Doer, opts Options) (*Client, error) {
	data, err := dataplane.New(doer, opts.Signer, dataplane.Options{
		StorageDomain: opts.StorageDomain,
		Endpoint:      opts.StorageEndpoint,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		control: controlplane.New(doer),
		data:    data,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Execute dispatches cmd to the plane that serves it.
func (c *Client) Execute(ctx context.Context, cred domain.Credential, cmd Command) (*Result, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrUnknownOperation)
	}
	kind := KindOf(cmd)
	ctx, span := c.tracer.Start(ctx, "r2."+string(kind), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("r2.resource", string(cmd.Resource())),
		attribute.String("r2.operation", cmd.Operation()),
	)

	res, err := c.dispatch(ctx, cred, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if res != nil && res.Deleted != nil {
			span.SetAttributes(attribute.Int("r2.deleted", len(res.Deleted.Deleted)))
			return res, err
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) dispatch(ctx context.Context, cred domain.Credential, cmd Command) (*Result, error) {
	switch cmd := cmd.(type) {
	case ListBuckets:
		buckets, err := c.control.ListBuckets(ctx, cred)
		return &Result{Buckets: buckets}, err
	case CreateBucket:
		bucket, err := c.control.CreateBucket(ctx, cred, cmd.Name, cmd.Options)
		return &Result{Bucket: bucket}, err
	case GetBucket:
		bucket, err := c.control.GetBucket(ctx, cred, cmd.Name)
		return &Result{Bucket: bucket}, err
	case DeleteBucket:
		return &Result{}, c.control.DeleteBucket(ctx, cred, cmd.Name)
	case GetCORS:
		cfg, err := c.control.GetCORS(ctx, cred, cmd.Bucket)
		return &Result{CORS: cfg}, err
	case SetCORS:
		return &Result{}, c.control.SetCORS(ctx, cred, cmd.Bucket, cmd.Config)
	case DeleteCORS:
		return &Result{}, c.control.DeleteCORS(ctx, cred, cmd.Bucket)
	case UploadObject:
		rec, err := c.data.Upload(ctx, cred, cmd.Input)
		return &Result{Object: rec}, err
	case DownloadObject:
		dl, err := c.data.Download(ctx, cred, cmd.Bucket, cmd.Key, cmd.Range)
		return &Result{Download: dl}, err
	case HeadObject:
		rec, err := c.data.Head(ctx, cred, cmd.Bucket, cmd.Key)
		return &Result{Object: rec}, err
	case DeleteObject:
		return &Result{}, c.data.DeleteOne(ctx, cred, cmd.Bucket, cmd.Key)
	case ListObjects:
		list, err := c.data.List(ctx, cred, cmd.Bucket, cmd.Options)
		return &Result{List: list}, err
	case CopyObject:
		rec, err := c.data.Copy(ctx, cred, cmd.Input)
		return &Result{Object: rec}, err
	case DeleteObjects:
		// the partial result is returned alongside a DeleteError
		deleted, err := c.data.DeleteMany(ctx, cred, cmd.Bucket, cmd.Keys, cmd.Options)
		if err != nil && deleted == nil {
			return nil, err
		}
		return &Result{Deleted: deleted}, err
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOperation, cmd)
	}
}

func (c *Client) ListBuckets(ctx context.Context, cred domain.Credential) ([]domain.Bucket, error) {
	res, err := c.Execute(ctx, cred, ListBuckets{})
	if err != nil {
		return nil, err
	}
	return res.Buckets, nil
}

func (c *Client) CreateBucket(ctx context.Context, cred domain.Credential, name string, opts domain.CreateBucketOptions) (*domain.Bucket, error) {
	res, err := c.Execute(ctx, cred, CreateBucket{Name: name, Options: opts})
	if err != nil {
		return nil, err
	}
	return res.Bucket, nil
}

func (c *Client) GetBucket(ctx context.Context, cred domain.Credential, name string) (*domain.Bucket, error) {
	res, err := c.Execute(ctx, cred, GetBucket{Name: name})
	if err != nil {
		return nil, err
	}
	return res.Bucket, nil
}

func (c *Client) DeleteBucket(ctx context.Context, cred domain.Credential, name string) error {
	_, err := c.Execute(ctx, cred, DeleteBucket{Name: name})
	return err
}

func (c *Client) GetCORS(ctx context.Context, cred domain.Credential, bucket string) (*domain.CORSConfiguration, error) {
	res, err := c.Execute(ctx, cred, GetCORS{Bucket: bucket})
	if err != nil {
		return nil, err
	}
	return res.CORS, nil
}

func (c *Client) SetCORS(ctx context.Context, cred domain.Credential, bucket string, cfg domain.CORSConfiguration) error {
	_, err := c.Execute(ctx, cred, SetCORS{Bucket: bucket, Config: cfg})
	return err
}

func (c *Client) DeleteCORS(ctx context.Context, cred domain.Credential, bucket string) error {
	_, err := c.Execute(ctx, cred, DeleteCORS{Bucket: bucket})
	return err
}

func (c *Client) Upload(ctx context.Context, cred domain.Credential, in domain.UploadInput) (*domain.ObjectRecord, error) {
	res, err := c.Execute(ctx, cred, UploadObject{Input: in})
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

func (c *Client) Download(ctx context.Context, cred domain.Credential, bucket, key string, rng *domain.ByteRange) (*domain.DownloadResult, error) {
	res, err := c.Execute(ctx, cred, DownloadObject{Bucket: bucket, Key: key, Range: rng})
	if err != nil {
		return nil, err
	}
	return res.Download, nil
}

func (c *Client) Head(ctx context.Context, cred domain.Credential, bucket, key string) (*domain.ObjectRecord, error) {
	res, err := c.Execute(ctx, cred, HeadObject{Bucket: bucket, Key: key})
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

func (c *Client) DeleteObject(ctx context.Context, cred domain.Credential, bucket, key string) error {
	_, err := c.Execute(ctx, cred, DeleteObject{Bucket: bucket, Key: key})
	return err
}

// DeleteObjects returns the keys deleted before a failure together with the error.
func (c *Client) DeleteObjects(ctx context.Context, cred domain.Credential, bucket string, keys []string, opts domain.DeleteOptions) (*domain.DeleteResult, error) {
	res, err := c.Execute(ctx, cred, DeleteObjects{Bucket: bucket, Keys: keys, Options: opts})
	if res == nil {
		return nil, err
	}
	return res.Deleted, err
}

func (c *Client) List(ctx context.Context, cred domain.Credential, bucket string, opts domain.ListOptions) (*domain.ListResult, error) {
	res, err := c.Execute(ctx, cred, ListObjects{Bucket: bucket, Options: opts})
	if err != nil {
		return nil, err
	}
	return res.List, nil
}

func (c *Client) Copy(ctx context.Context, cred domain.Credential, in domain.CopyInput) (*domain.ObjectRecord, error) {
	res, err := c.Execute(ctx, cred, CopyObject{Input: in})
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}
