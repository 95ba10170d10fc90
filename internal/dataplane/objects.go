package dataplane

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/validation"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/s3utils"
	"github.com/rs/zerolog/log"
)

// Upload stores in.Data under in.Bucket/in.Key.
func (c *Client) Upload(ctx context.Context, cred domain.Credential, in domain.UploadInput) (*domain.ObjectRecord, error) {
	if err := checkTarget(in.Bucket, in.Key); err != nil {
		return nil, err
	}
	if err := validation.CheckMetadata(in.Metadata); err != nil {
		return nil, err
	}
	if err := validation.CheckStorageClass(in.StorageClass); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	header := http.Header{}
	header.Set("Content-Type", contentType)
	if in.ContentEncoding != "" {
		header.Set("Content-Encoding", in.ContentEncoding)
	}
	if in.StorageClass != "" {
		header.Set(headerStorageClass, string(in.StorageClass))
	}
	setMetadata(header, in.Metadata)

	resp, err := c.send(ctx, cred, call{
		method: http.MethodPut,
		bucket: in.Bucket,
		key:    in.Key,
		header: header,
		body:   in.Data,
	})
	if err != nil {
		return nil, &domain.UploadError{ObjectFault: domain.ObjectFault{Op: "upload", Bucket: in.Bucket, Key: in.Key, Err: err}}
	}
	if !ok(resp.Status) {
		upErr := &domain.UploadError{ObjectFault: fault("upload", in.Bucket, in.Key, resp)}
		log.Debug().Err(upErr).Msg("object upload rejected")
		return nil, upErr
	}

	return &domain.ObjectRecord{
		Key:          in.Key,
		Size:         int64(len(in.Data)),
		ETag:         resp.Header.Get("ETag"),
		LastModified: c.signer.Now().UTC(),
		ContentType:  contentType,
		StorageClass: string(in.StorageClass),
		Metadata:     lowerKeys(in.Metadata),
	}, nil
}

// Download reads an object, or the part selected by rng when it is not nil.
func (c *Client) Download(ctx context.Context, cred domain.Credential, bucket, key string, rng *domain.ByteRange) (*domain.DownloadResult, error) {
	if err := checkTarget(bucket, key); err != nil {
		return nil, err
	}
	if err := validation.CheckByteRange(rng); err != nil {
		return nil, err
	}

	header := http.Header{}
	if rng != nil {
		header.Set("Range", rangeHeader(rng))
	}
	resp, err := c.send(ctx, cred, call{method: http.MethodGet, bucket: bucket, key: key, header: header})
	if err != nil {
		return nil, &domain.DownloadError{ObjectFault: domain.ObjectFault{Op: "download", Bucket: bucket, Key: key, Err: err}}
	}
	if !ok(resp.Status) {
		return nil, &domain.DownloadError{ObjectFault: fault("download", bucket, key, resp)}
	}

	return &domain.DownloadResult{
		Data:   resp.Body,
		Object: recordFromHeaders(key, resp.Header),
		Status: resp.Status,
	}, nil
}

// Head returns object metadata without the body.
func (c *Client) Head(ctx context.Context, cred domain.Credential, bucket, key string) (*domain.ObjectRecord, error) {
	if err := checkTarget(bucket, key); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, cred, call{method: http.MethodHead, bucket: bucket, key: key})
	if err != nil {
		return nil, &domain.DownloadError{ObjectFault: domain.ObjectFault{Op: "head", Bucket: bucket, Key: key, Err: err}}
	}
	if !ok(resp.Status) {
		return nil, &domain.DownloadError{ObjectFault: fault("head", bucket, key, resp)}
	}
	rec := recordFromHeaders(key, resp.Header)
	return &rec, nil
}

// List returns one page of objects using ListObjectsV2.
func (c *Client) List(ctx context.Context, cred domain.Credential, bucket string, opts domain.ListOptions) (*domain.ListResult, error) {
	if err := validation.CheckBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.CheckMaxKeys(opts.MaxKeys); err != nil {
		return nil, err
	}

	query := url.Values{"list-type": {"2"}}
	set := func(name, value string) {
		if value != "" {
			query[name] = []string{value}
		}
	}
	set("prefix", opts.Prefix)
	set("delimiter", opts.Delimiter)
	set("continuation-token", opts.ContinuationToken)
	set("start-after", opts.StartAfter)
	if opts.MaxKeys > 0 {
		set("max-keys", strconv.Itoa(opts.MaxKeys))
	}

	resp, err := c.send(ctx, cred, call{method: http.MethodGet, bucket: bucket, query: query})
	if err != nil {
		return nil, &domain.DownloadError{ObjectFault: domain.ObjectFault{Op: "list", Bucket: bucket, Err: err}}
	}
	if !ok(resp.Status) {
		return nil, &domain.DownloadError{ObjectFault: fault("list", bucket, "", resp)}
	}

	var page minio.ListBucketV2Result
	if err := xml.Unmarshal(resp.Body, &page); err != nil {
		return nil, &domain.DownloadError{ObjectFault: domain.ObjectFault{
			Op:     "list",
			Bucket: bucket,
			Status: resp.Status,
			Err:    &domain.TransportError{Method: http.MethodGet, Endpoint: bucket, Err: fmt.Errorf("decode list response: %w", err)},
		}}
	}

	out := &domain.ListResult{
		Objects:           make([]domain.ObjectRecord, 0, len(page.Contents)),
		Truncated:         page.IsTruncated,
		ContinuationToken: page.NextContinuationToken,
	}
	for _, obj := range page.Contents {
		out.Objects = append(out.Objects, domain.ObjectRecord{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified.UTC(),
			StorageClass: obj.StorageClass,
		})
	}
	for _, p := range page.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, p.Prefix)
	}
	return out, nil
}

// Copy duplicates an object server-side. A 200 answer carrying an Error document
// is treated as a failure.
func (c *Client) Copy(ctx context.Context, cred domain.Credential, in domain.CopyInput) (*domain.ObjectRecord, error) {
	if err := checkTarget(in.SourceBucket, in.SourceKey); err != nil {
		return nil, err
	}
	if err := checkTarget(in.DestinationBucket, in.DestinationKey); err != nil {
		return nil, err
	}
	if !in.MetadataDirective.Valid() {
		return nil, &domain.ValidationError{Field: "metadata directive", Value: string(in.MetadataDirective), Rule: "must be COPY or REPLACE"}
	}
	if err := validation.CheckMetadata(in.Metadata); err != nil {
		return nil, err
	}

	directive := in.MetadataDirective
	if directive == "" {
		directive = domain.MetadataDirectiveCopy
	}
	header := http.Header{}
	header.Set(headerCopySource, s3utils.EncodePath("/"+in.SourceBucket+"/"+in.SourceKey))
	header.Set(headerMetaDirective, string(directive))
	if directive == domain.MetadataDirectiveReplace {
		if in.ContentType != "" {
			header.Set("Content-Type", in.ContentType)
		}
		setMetadata(header, in.Metadata)
	}

	resp, err := c.send(ctx, cred, call{
		method: http.MethodPut,
		bucket: in.DestinationBucket,
		key:    in.DestinationKey,
		header: header,
	})
	if err != nil {
		return nil, &domain.UploadError{ObjectFault: domain.ObjectFault{Op: "copy", Bucket: in.DestinationBucket, Key: in.DestinationKey, Err: err}}
	}
	if !ok(resp.Status) {
		return nil, &domain.UploadError{ObjectFault: fault("copy", in.DestinationBucket, in.DestinationKey, resp)}
	}
	if code, msg, found := providerError(resp.Body); found {
		return nil, &domain.UploadError{ObjectFault: domain.ObjectFault{
			Op:      "copy",
			Bucket:  in.DestinationBucket,
			Key:     in.DestinationKey,
			Status:  resp.Status,
			Code:    code,
			Message: msg,
		}}
	}

	rec := &domain.ObjectRecord{Key: in.DestinationKey, LastModified: c.signer.Now().UTC()}
	var result copyObjectResult
	if err := xml.Unmarshal(resp.Body, &result); err == nil {
		rec.ETag = result.ETag
		if !result.LastModified.IsZero() {
			rec.LastModified = result.LastModified.UTC()
		}
	}
	if directive == domain.MetadataDirectiveReplace {
		rec.ContentType = in.ContentType
		rec.Metadata = in.Metadata
	}
	return rec, nil
}

func checkTarget(bucket, key string) error {
	if err := validation.CheckBucketName(bucket); err != nil {
		return err
	}
	return validation.CheckObjectKey(key)
}
