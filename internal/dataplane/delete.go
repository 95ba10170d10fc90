package dataplane

import (
	"context"
	"net/http"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DeleteOne removes a single object. Deleting a missing key is not an error on R2.
func (c *Client) DeleteOne(ctx context.Context, cred domain.Credential, bucket, key string) error {
	if err := checkTarget(bucket, key); err != nil {
		return err
	}
	return c.deleteKey(ctx, cred, bucket, key)
}

// DeleteMany removes keys in request order and stops at the first failure.
// Every key is validated before the first request goes out. With
// opts.Concurrency > 1 deletes overlap; the first failure cancels the
// requests that have not started yet.
func (c *Client) DeleteMany(ctx context.Context, cred domain.Credential, bucket string, keys []string, opts domain.DeleteOptions) (*domain.DeleteResult, error) {
	if err := validation.CheckBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.CheckBatchSize(len(keys)); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := validation.CheckObjectKey(key); err != nil {
			return nil, err
		}
	}

	if opts.Concurrency > 1 {
		return c.deleteParallel(ctx, cred, bucket, keys, opts.Concurrency)
	}

	result := &domain.DeleteResult{Deleted: make([]string, 0, len(keys))}
	for _, key := range keys {
		if err := c.deleteKey(ctx, cred, bucket, key); err != nil {
			log.Warn().Err(err).Str("bucket", bucket).Str("key", key).
				Int("deleted", len(result.Deleted)).Msg("batch delete stopped")
			return result, err
		}
		result.Deleted = append(result.Deleted, key)
	}
	return result, nil
}

func (c *Client) deleteParallel(ctx context.Context, cred domain.Credential, bucket string, keys []string, limit int) (*domain.DeleteResult, error) {
	done := make([]bool, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := c.deleteKey(gctx, cred, bucket, key); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	result := &domain.DeleteResult{Deleted: make([]string, 0, len(keys))}
	for i, key := range keys {
		if done[i] {
			result.Deleted = append(result.Deleted, key)
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Int("deleted", len(result.Deleted)).Msg("parallel batch delete stopped")
	}
	return result, err
}

func (c *Client) deleteKey(ctx context.Context, cred domain.Credential, bucket, key string) error {
	resp, err := c.send(ctx, cred, call{method: http.MethodDelete, bucket: bucket, key: key})
	if err != nil {
		return &domain.DeleteError{ObjectFault: domain.ObjectFault{Op: "delete", Bucket: bucket, Key: key, Err: err}}
	}
	if !ok(resp.Status) {
		return &domain.DeleteError{ObjectFault: fault("delete", bucket, key, resp)}
	}
	return nil
}
