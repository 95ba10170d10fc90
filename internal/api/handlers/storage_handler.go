package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/payload"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds request bodies read into memory for a single PUT.
const maxUploadBytes = 512 << 20

type StorageHandler struct {
	svc  *service.StorageService
	cred domain.Credential
}

// NewStorageHandler serves r2 operations using defaultCred unless a request overrides it.
func NewStorageHandler(svc *service.StorageService, defaultCred domain.Credential) *StorageHandler {
	return &StorageHandler{svc: svc, cred: defaultCred}
}

type createBucketRequest struct {
	Name         string `json:"name" binding:"required"`
	LocationHint string `json:"location_hint"`
	Jurisdiction string `json:"jurisdiction"`
}

type uploadRequest struct {
	Key             string            `json:"key" binding:"required"`
	Source          payload.Source    `json:"source"`
	Content         string            `json:"content"`
	FileName        string            `json:"file_name"`
	ContentType     string            `json:"content_type"`
	ContentEncoding string            `json:"content_encoding"`
	Metadata        map[string]string `json:"metadata"`
	StorageClass    string            `json:"storage_class"`
}

type copyRequest struct {
	SourceBucket      string            `json:"source_bucket" binding:"required"`
	SourceKey         string            `json:"source_key" binding:"required"`
	DestinationBucket string            `json:"destination_bucket" binding:"required"`
	DestinationKey    string            `json:"destination_key" binding:"required"`
	MetadataDirective string            `json:"metadata_directive"`
	ContentType       string            `json:"content_type"`
	Metadata          map[string]string `json:"metadata"`
}

type deleteObjectsRequest struct {
	Keys        []string `json:"keys"`
	KeysText    string   `json:"keys_text"`
	Concurrency int      `json:"concurrency"`
}

func (h *StorageHandler) run(c *gin.Context, cmd r2.Command) (*r2.Result, bool) {
	res, err := h.svc.Run(c.Request.Context(), credentialFrom(c, h.cred), cmd)
	if err != nil {
		writeError(c, err)
		return res, false
	}
	return res, true
}

// ListBuckets handles GET /buckets
func (h *StorageHandler) ListBuckets(c *gin.Context) {
	res, ok := h.run(c, r2.ListBuckets{})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": nonNil(res.Buckets)})
}

// CreateBucket handles POST /buckets
func (h *StorageHandler) CreateBucket(c *gin.Context) {
	var req createBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, ok := h.run(c, r2.CreateBucket{
		Name:    req.Name,
		Options: domain.CreateBucketOptions{LocationHint: req.LocationHint, Jurisdiction: req.Jurisdiction},
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, res.Bucket)
}

func (h *StorageHandler) GetBucket(c *gin.Context) {
	res, ok := h.run(c, r2.GetBucket{Name: c.Param("bucket")})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Bucket)
}

func (h *StorageHandler) DeleteBucket(c *gin.Context) {
	if _, ok := h.run(c, r2.DeleteBucket{Name: c.Param("bucket")}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StorageHandler) GetCORS(c *gin.Context) {
	res, ok := h.run(c, r2.GetCORS{Bucket: c.Param("bucket")})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.CORS)
}

// SetCORS handles PUT /buckets/:bucket/cors. Method names are case-insensitive.
func (h *StorageHandler) SetCORS(c *gin.Context) {
	var cfg domain.CORSConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	for i := range cfg.Rules {
		for j, m := range cfg.Rules[i].AllowedMethods {
			if parsed, ok := domain.ParseCORSMethod(string(m)); ok {
				cfg.Rules[i].AllowedMethods[j] = parsed
			}
		}
	}
	if cfg.Rules == nil {
		cfg.Rules = []domain.CORSRule{}
	}
	if _, ok := h.run(c, r2.SetCORS{Bucket: c.Param("bucket"), Config: cfg}); !ok {
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *StorageHandler) DeleteCORS(c *gin.Context) {
	if _, ok := h.run(c, r2.DeleteCORS{Bucket: c.Param("bucket")}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListObjects handles GET /buckets/:bucket/objects
func (h *StorageHandler) ListObjects(c *gin.Context) {
	opts := domain.ListOptions{
		Prefix:            c.Query("prefix"),
		Delimiter:         c.Query("delimiter"),
		ContinuationToken: c.Query("continuation_token"),
		StartAfter:        c.Query("start_after"),
	}
	if raw := c.Query("max_keys"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "max_keys must be an integer")
			return
		}
		opts.MaxKeys = n
	}
	res, ok := h.run(c, r2.ListObjects{Bucket: c.Param("bucket"), Options: opts})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.List)
}

// UploadObject handles POST /buckets/:bucket/objects with a JSON body carrying
// text or base64 content.
func (h *StorageHandler) UploadObject(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	decoded, err := payload.Decode(payload.Input{
		Source:      req.Source,
		Content:     req.Content,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.upload(c, domain.UploadInput{
		Bucket:          c.Param("bucket"),
		Key:             req.Key,
		Data:            decoded.Data,
		ContentType:     decoded.ContentType,
		ContentEncoding: req.ContentEncoding,
		Metadata:        req.Metadata,
		StorageClass:    domain.StorageClass(strings.ToUpper(req.StorageClass)),
	})
}

// PutObject handles PUT /buckets/:bucket/objects/*key with the raw body as content.
func (h *StorageHandler) PutObject(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil {
		badRequest(c, "could not read request body")
		return
	}
	if len(data) > maxUploadBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large", "kind": domain.KindValidation})
		return
	}
	key := objectKey(c)
	decoded, err := payload.Decode(payload.Input{
		Source:      payload.SourceBinary,
		Binary:      data,
		FileName:    payload.FileName(key),
		ContentType: c.GetHeader("Content-Type"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	metadata := map[string]string{}
	for name, values := range c.Request.Header {
		if lower := strings.ToLower(name); strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
			metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
		}
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	h.upload(c, domain.UploadInput{
		Bucket:          c.Param("bucket"),
		Key:             key,
		Data:            decoded.Data,
		ContentType:     decoded.ContentType,
		ContentEncoding: c.GetHeader("Content-Encoding"),
		Metadata:        metadata,
		StorageClass:    domain.StorageClass(c.GetHeader("X-Amz-Storage-Class")),
	})
}

func (h *StorageHandler) upload(c *gin.Context, in domain.UploadInput) {
	res, ok := h.run(c, r2.UploadObject{Input: in})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, res.Object)
}

// DownloadObject handles GET /buckets/:bucket/objects/*key. The raw body is
// returned unless format=json is requested.
func (h *StorageHandler) DownloadObject(c *gin.Context) {
	rng, err := parseRange(c.Query("range"), c.GetHeader("Range"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	key := objectKey(c)
	res, ok := h.run(c, r2.DownloadObject{Bucket: c.Param("bucket"), Key: key, Range: rng})
	if !ok {
		return
	}
	dl := res.Download

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{
			"object":    dl.Object,
			"file_name": payload.FileName(key),
			"data":      payload.Encode(dl.Data),
		})
		return
	}

	contentType := dl.Object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if dl.Object.ETag != "" {
		c.Header("ETag", dl.Object.ETag)
	}
	status := http.StatusOK
	if dl.Status == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	c.Data(status, contentType, dl.Data)
}

// HeadObject handles GET /buckets/:bucket/metadata/*key
func (h *StorageHandler) HeadObject(c *gin.Context) {
	res, ok := h.run(c, r2.HeadObject{Bucket: c.Param("bucket"), Key: objectKey(c)})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Object)
}

func (h *StorageHandler) DeleteObject(c *gin.Context) {
	if _, ok := h.run(c, r2.DeleteObject{Bucket: c.Param("bucket"), Key: objectKey(c)}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteObjects handles POST /buckets/:bucket/delete. On failure the keys
// deleted before the failing one are still reported.
func (h *StorageHandler) DeleteObjects(c *gin.Context) {
	var req deleteObjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	keys := req.Keys
	if len(keys) == 0 && req.KeysText != "" {
		keys = r2.SplitKeys(req.KeysText)
	}

	res, err := h.svc.Run(c.Request.Context(), credentialFrom(c, h.cred), r2.DeleteObjects{
		Bucket:  c.Param("bucket"),
		Keys:    keys,
		Options: domain.DeleteOptions{Concurrency: req.Concurrency},
	})
	if err != nil {
		if res != nil && res.Deleted != nil {
			c.Header("X-R2-Deleted-Count", strconv.Itoa(len(res.Deleted.Deleted)))
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":       nonNil(res.Deleted.Deleted),
		"deleted_count": len(res.Deleted.Deleted),
	})
}

// CopyObject handles POST /copy
func (h *StorageHandler) CopyObject(c *gin.Context) {
	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, ok := h.run(c, r2.CopyObject{Input: domain.CopyInput{
		SourceBucket:      req.SourceBucket,
		SourceKey:         req.SourceKey,
		DestinationBucket: req.DestinationBucket,
		DestinationKey:    req.DestinationKey,
		MetadataDirective: domain.MetadataDirective(strings.ToUpper(req.MetadataDirective)),
		ContentType:       req.ContentType,
		Metadata:          req.Metadata,
	}})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Object)
}

// RecentAudit handles GET /audit
func (h *StorageHandler) RecentAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// objectKey strips the leading slash gin keeps on catch-all params.
func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// parseRange accepts "start-end" or "start-" from the query, or an HTTP Range header.
func parseRange(query, header string) (*domain.ByteRange, error) {
	raw := strings.TrimSpace(query)
	if raw == "" {
		raw = strings.TrimPrefix(strings.TrimSpace(header), "bytes=")
	}
	if raw == "" {
		return nil, nil
	}
	startStr, endStr, found := strings.Cut(raw, "-")
	if !found {
		return nil, fmt.Errorf("invalid range %q", raw)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q", startStr)
	}
	rng := &domain.ByteRange{Start: start, End: -1}
	if endStr = strings.TrimSpace(endStr); endStr != "" {
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range end %q", endStr)
		}
		rng.End = end
	}
	return rng, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
