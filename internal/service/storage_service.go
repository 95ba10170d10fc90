package service

import (
	"context"
	"time"

	"github.com/andresuchdata/r2bridge/internal/cache"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/andresuchdata/r2bridge/internal/repository"
	"github.com/rs/zerolog/log"
)

// Executor runs r2 commands. *r2.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, cred domain.Credential, cmd r2.Command) (*r2.Result, error)
}

type StorageService struct {
	exec              Executor
	cache             cache.BucketCache
	audit             repository.AuditRepository
	deleteConcurrency int
	now               func() time.Time
}

type Option func(*StorageService)

// WithDeleteConcurrency sets the default parallelism for batch deletes that
// do not ask for one.
func WithDeleteConcurrency(n int) Option {
	return func(s *StorageService) { s.deleteConcurrency = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *StorageService) { s.now = now }
}

func NewStorageService(exec Executor, c cache.BucketCache, audit repository.AuditRepository, opts ...Option) *StorageService {
	if c == nil {
		c = cache.NewNoopBucketCache()
	}
	if audit == nil {
		audit = repository.NewNoopAuditRepository()
	}
	s := &StorageService{exec: exec, cache: c, audit: audit, deleteConcurrency: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes cmd with caching of control-plane reads and an audit entry per call.
func (s *StorageService) Run(ctx context.Context, cred domain.Credential, cmd r2.Command) (*r2.Result, error) {
	start := s.now()

	if res, ok := s.fromCache(ctx, cred, cmd); ok {
		log.Debug().Str("operation", string(r2.KindOf(cmd))).Msg("served from cache")
		return res, nil
	}

	if del, ok := cmd.(r2.DeleteObjects); ok && del.Options.Concurrency == 0 {
		del.Options.Concurrency = s.deleteConcurrency
		cmd = del
	}

	res, err := s.exec.Execute(ctx, cred, cmd)
	elapsed := s.now().Sub(start)

	if err == nil {
		s.updateCache(ctx, cred, cmd, res)
	}
	s.record(ctx, cred, cmd, err, elapsed)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err).Str("error_kind", domain.ErrorKind(err))
	}
	bucket, key := target(cmd)
	event.Str("operation", string(r2.KindOf(cmd))).
		Str("bucket", bucket).
		Str("key", key).
		Dur("elapsed", elapsed).
		Msg("r2 operation")

	return res, err
}

// Recent lists the newest audit entries.
func (s *StorageService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	return s.audit.Recent(ctx, limit)
}

func (s *StorageService) fromCache(ctx context.Context, cred domain.Credential, cmd r2.Command) (*r2.Result, bool) {
	switch cmd := cmd.(type) {
	case r2.ListBuckets:
		buckets, found, err := s.cache.GetBuckets(ctx, cred)
		if err != nil {
			log.Warn().Err(err).Msg("bucket cache read failed")
			return nil, false
		}
		if found {
			return &r2.Result{Buckets: buckets}, true
		}
	case r2.GetCORS:
		cfg, found, err := s.cache.GetCORS(ctx, cred, cmd.Bucket)
		if err != nil {
			log.Warn().Err(err).Msg("cors cache read failed")
			return nil, false
		}
		if found {
			return &r2.Result{CORS: cfg}, true
		}
	}
	return nil, false
}

func (s *StorageService) updateCache(ctx context.Context, cred domain.Credential, cmd r2.Command, res *r2.Result) {
	var err error
	switch cmd := cmd.(type) {
	case r2.ListBuckets:
		err = s.cache.SetBuckets(ctx, cred, res.Buckets)
	case r2.GetCORS:
		err = s.cache.SetCORS(ctx, cred, cmd.Bucket, res.CORS)
	case r2.CreateBucket, r2.DeleteBucket, r2.SetCORS, r2.DeleteCORS:
		err = s.cache.InvalidateAccount(ctx, cred.AccountID)
	}
	if err != nil {
		log.Warn().Err(err).Str("operation", string(r2.KindOf(cmd))).Msg("bucket cache update failed")
	}
}

func (s *StorageService) record(ctx context.Context, cred domain.Credential, cmd r2.Command, opErr error, elapsed time.Duration) {
	bucket, key := target(cmd)
	entry := &domain.AuditEntry{
		RequestID:  RequestID(ctx),
		AccountID:  cred.AccountID,
		Operation:  string(r2.KindOf(cmd)),
		Bucket:     bucket,
		Key:        key,
		Outcome:    domain.AuditOK,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  s.now().UTC(),
	}
	if opErr != nil {
		entry.Outcome = domain.AuditFailed
		entry.ErrorKind = domain.ErrorKind(opErr)
		entry.Message = opErr.Error()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("operation", entry.Operation).Msg("failed to write audit entry")
	}
}

// target extracts the bucket and key a command addresses.
func target(cmd r2.Command) (bucket, key string) {
	switch cmd := cmd.(type) {
	case r2.CreateBucket:
		return cmd.Name, ""
	case r2.GetBucket:
		return cmd.Name, ""
	case r2.DeleteBucket:
		return cmd.Name, ""
	case r2.GetCORS:
		return cmd.Bucket, ""
	case r2.SetCORS:
		return cmd.Bucket, ""
	case r2.DeleteCORS:
		return cmd.Bucket, ""
	case r2.UploadObject:
		return cmd.Input.Bucket, cmd.Input.Key
	case r2.DownloadObject:
		return cmd.Bucket, cmd.Key
	case r2.HeadObject:
		return cmd.Bucket, cmd.Key
	case r2.DeleteObject:
		return cmd.Bucket, cmd.Key
	case r2.ListObjects:
		return cmd.Bucket, cmd.Options.Prefix
	case r2.CopyObject:
		return cmd.Input.DestinationBucket, cmd.Input.DestinationKey
	case r2.DeleteObjects:
		return cmd.Bucket, ""
	}
	return "", ""
}
