package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/payload"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/urfave/cli/v2"
)

// params is the flag surface shared by every subcommand. Each operation reads
// only the fields it needs.
type params struct {
	Bucket string
	Key    string

	LocationHint string
	Jurisdiction string

	CORSFile string
	Origins  []string
	Methods  []string
	Headers  []string
	MaxAge   int

	File         string
	Content      string
	Encoding     string
	ContentType  string
	Meta         []string
	StorageClass string

	RangeStart int64
	RangeEnd   int64

	Prefix            string
	Delimiter         string
	MaxKeys           int
	ContinuationToken string
	StartAfter        string

	SourceBucket string
	SourceKey    string
	Directive    string

	Keys        []string
	KeysFile    string
	Concurrency int
}

func paramsFrom(c *cli.Context) params {
	p := params{
		Bucket:            c.String("bucket"),
		Key:               c.String("key"),
		LocationHint:      c.String("location-hint"),
		Jurisdiction:      c.String("jurisdiction"),
		CORSFile:          c.String("cors-file"),
		Origins:           c.StringSlice("origin"),
		Methods:           c.StringSlice("method"),
		Headers:           c.StringSlice("header"),
		MaxAge:            c.Int("max-age"),
		File:              c.String("file"),
		Content:           c.String("content"),
		Encoding:          c.String("encoding"),
		ContentType:       c.String("content-type"),
		Meta:              c.StringSlice("meta"),
		StorageClass:      c.String("storage-class"),
		RangeStart:        c.Int64("range-start"),
		RangeEnd:          c.Int64("range-end"),
		Prefix:            c.String("prefix"),
		Delimiter:         c.String("delimiter"),
		MaxKeys:           c.Int("max-keys"),
		ContinuationToken: c.String("continuation-token"),
		StartAfter:        c.String("start-after"),
		SourceBucket:      c.String("source-bucket"),
		SourceKey:         c.String("source-key"),
		Directive:         c.String("directive"),
		Keys:              c.StringSlice("keys"),
		KeysFile:          c.String("keys-file"),
		Concurrency:       c.Int("concurrency"),
	}
	if !c.IsSet("range-end") {
		p.RangeEnd = -1
	}
	if !c.IsSet("max-age") {
		p.MaxAge = -1
	}
	return p
}

// buildCommand turns a parsed operation and its flags into a command.
func buildCommand(k r2.Kind, p params) (r2.Command, error) {
	switch k {
	case r2.KindFor(r2.ResourceBucket, r2.OpList):
		return r2.ListBuckets{}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpCreate):
		return r2.CreateBucket{Name: p.Bucket, Options: domain.CreateBucketOptions{
			LocationHint: p.LocationHint,
			Jurisdiction: p.Jurisdiction,
		}}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpGet):
		return r2.GetBucket{Name: p.Bucket}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpDelete):
		return r2.DeleteBucket{Name: p.Bucket}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpGetCORS):
		return r2.GetCORS{Bucket: p.Bucket}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpSetCORS):
		cfg, err := p.corsConfig()
		if err != nil {
			return nil, err
		}
		return r2.SetCORS{Bucket: p.Bucket, Config: cfg}, nil
	case r2.KindFor(r2.ResourceBucket, r2.OpDeleteCORS):
		return r2.DeleteCORS{Bucket: p.Bucket}, nil

	case r2.KindFor(r2.ResourceObject, r2.OpUpload):
		in, err := p.uploadInput()
		if err != nil {
			return nil, err
		}
		return r2.UploadObject{Input: in}, nil
	case r2.KindFor(r2.ResourceObject, r2.OpDownload):
		return r2.DownloadObject{Bucket: p.Bucket, Key: p.Key, Range: p.byteRange()}, nil
	case r2.KindFor(r2.ResourceObject, r2.OpGetMetadata):
		return r2.HeadObject{Bucket: p.Bucket, Key: p.Key}, nil
	case r2.KindFor(r2.ResourceObject, r2.OpDelete):
		return r2.DeleteObject{Bucket: p.Bucket, Key: p.Key}, nil
	case r2.KindFor(r2.ResourceObject, r2.OpList):
		return r2.ListObjects{Bucket: p.Bucket, Options: domain.ListOptions{
			Prefix:            p.Prefix,
			Delimiter:         p.Delimiter,
			MaxKeys:           p.MaxKeys,
			ContinuationToken: p.ContinuationToken,
			StartAfter:        p.StartAfter,
		}}, nil
	case r2.KindFor(r2.ResourceObject, r2.OpCopy):
		meta, err := parseMeta(p.Meta)
		if err != nil {
			return nil, err
		}
		return r2.CopyObject{Input: domain.CopyInput{
			SourceBucket:      p.SourceBucket,
			SourceKey:         p.SourceKey,
			DestinationBucket: p.Bucket,
			DestinationKey:    p.Key,
			MetadataDirective: domain.MetadataDirective(strings.ToUpper(p.Directive)),
			ContentType:       p.ContentType,
			Metadata:          meta,
		}}, nil

	case r2.KindFor(r2.ResourceBatch, r2.OpDeleteMultiple):
		keys, err := p.keys()
		if err != nil {
			return nil, err
		}
		return r2.DeleteObjects{Bucket: p.Bucket, Keys: keys, Options: domain.DeleteOptions{
			Concurrency: p.Concurrency,
		}}, nil
	}
	return nil, fmt.Errorf("%w: %s", r2.ErrUnknownOperation, k)
}

func (p params) corsConfig() (domain.CORSConfiguration, error) {
	var cfg domain.CORSConfiguration
	if p.CORSFile != "" {
		raw, err := os.ReadFile(p.CORSFile)
		if err != nil {
			return cfg, fmt.Errorf("read cors file: %w", err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse cors file: %w", err)
		}
		return cfg, nil
	}
	if len(p.Origins) == 0 && len(p.Methods) == 0 {
		return cfg, nil
	}

	rule := domain.CORSRule{
		AllowedOrigins: p.Origins,
		AllowedHeaders: p.Headers,
	}
	for _, name := range p.Methods {
		m, ok := domain.ParseCORSMethod(name)
		if !ok {
			return cfg, &domain.ValidationError{Field: "cors method", Value: name, Rule: "must be one of GET, POST, PUT, DELETE, HEAD"}
		}
		rule.AllowedMethods = append(rule.AllowedMethods, m)
	}
	if p.MaxAge >= 0 {
		maxAge := p.MaxAge
		rule.MaxAgeSeconds = &maxAge
	}
	cfg.Rules = []domain.CORSRule{rule}
	return cfg, nil
}

func (p params) uploadInput() (domain.UploadInput, error) {
	meta, err := parseMeta(p.Meta)
	if err != nil {
		return domain.UploadInput{}, err
	}

	in := payload.Input{
		Source:      payload.Source(strings.ToLower(p.Encoding)),
		Content:     p.Content,
		FileName:    payload.FileName(p.Key),
		ContentType: p.ContentType,
	}
	if in.Source == "" {
		in.Source = payload.SourceText
	}
	if p.File != "" {
		data, err := os.ReadFile(p.File)
		if err != nil {
			return domain.UploadInput{}, fmt.Errorf("read %s: %w", p.File, err)
		}
		in.Source = payload.SourceBinary
		in.Binary = data
		in.FileName = filepath.Base(p.File)
	}

	decoded, err := payload.Decode(in)
	if err != nil {
		return domain.UploadInput{}, err
	}
	return domain.UploadInput{
		Bucket:       p.Bucket,
		Key:          p.Key,
		Data:         decoded.Data,
		ContentType:  decoded.ContentType,
		Metadata:     meta,
		StorageClass: domain.StorageClass(strings.ToUpper(p.StorageClass)),
	}, nil
}

func (p params) byteRange() *domain.ByteRange {
	if p.RangeStart == 0 && p.RangeEnd < 0 {
		return nil
	}
	return &domain.ByteRange{Start: p.RangeStart, End: p.RangeEnd}
}

func (p params) keys() ([]string, error) {
	var keys []string
	for _, k := range p.Keys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if p.KeysFile != "" {
		raw, err := os.ReadFile(p.KeysFile)
		if err != nil {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
		keys = append(keys, r2.SplitKeys(string(raw))...)
	}
	return keys, nil
}

// parseMeta reads name=value pairs.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &domain.ValidationError{Field: "metadata", Value: pair, Rule: "must be name=value"}
		}
		meta[strings.TrimSpace(name)] = value
	}
	return meta, nil
}
