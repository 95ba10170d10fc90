package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andresuchdata/r2bridge/internal/api/middleware"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/metrics"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/gin-gonic/gin"
)

type call struct {
	cred domain.Credential
	cmd  r2.Command
}

// scripted answers each command kind with a fixed result or error.
type scripted struct {
	results map[r2.Kind]*r2.Result
	errs    map[r2.Kind]error
	calls   []call
}

func (s *scripted) Execute(ctx context.Context, cred domain.Credential, cmd r2.Command) (*r2.Result, error) {
	s.calls = append(s.calls, call{cred: cred, cmd: cmd})
	k := r2.KindOf(cmd)
	res := s.results[k]
	if res == nil {
		res = &r2.Result{}
	}
	return res, s.errs[k]
}

func newTestRouter(t *testing.T, exec *scripted) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if exec.results == nil {
		exec.results = map[r2.Kind]*r2.Result{}
	}
	if exec.errs == nil {
		exec.errs = map[r2.Kind]error{}
	}
	m := metrics.New()
	svc := service.NewStorageService(exec, nil, nil)
	router := NewRouter(&Services{
		StorageService: svc,
		Credential:     domain.Credential{AccountID: "default-acc", APIToken: "tok"},
		Metrics:        m,
	}, []string{"*"})
	return router, m
}

func do(router http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListBuckets(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{
		"bucket:list": {Buckets: []domain.Bucket{{Name: "alpha", CreationDate: "2025-01-01T00:00:00Z"}}},
	}}
	router, m := newTestRouter(t, exec)

	w := do(router, http.MethodGet, "/api/v1/buckets", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var body struct {
		Buckets []domain.Bucket `json:"buckets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Buckets) != 1 || body.Buckets[0].Name != "alpha" {
		t.Fatalf("buckets = %+v", body.Buckets)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	if exec.calls[0].cred.AccountID != "default-acc" {
		t.Fatalf("credential = %+v", exec.calls[0].cred)
	}
	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(out.Body.String(), `r2bridge_http_requests_total{code="200",method="GET",route="/api/v1/buckets"} 1`) {
		t.Fatalf("gateway counter missing from:\n%s", out.Body)
	}
}

func TestCredentialHeadersOverrideDefault(t *testing.T) {
	exec := &scripted{}
	router, _ := newTestRouter(t, exec)

	h := http.Header{}
	h.Set("X-R2-Account-Id", "other-acc")
	h.Set("X-R2-Access-Key-Id", "AKID2")
	do(router, http.MethodGet, "/api/v1/buckets", "", h)

	cred := exec.calls[0].cred
	if cred.AccountID != "other-acc" || cred.AccessKeyID != "AKID2" || cred.APIToken != "tok" {
		t.Fatalf("credential = %+v", cred)
	}
}

func TestCreateBucketBindsOptions(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{"bucket:create": {Bucket: &domain.Bucket{Name: "fresh"}}}}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodPost, "/api/v1/buckets", `{"name":"fresh","location_hint":"weur","jurisdiction":"eu"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	cmd := exec.calls[0].cmd.(r2.CreateBucket)
	if cmd.Name != "fresh" || cmd.Options.LocationHint != "weur" || cmd.Options.Jurisdiction != "eu" {
		t.Fatalf("cmd = %+v", cmd)
	}

	w = do(router, http.MethodPost, "/api/v1/buckets", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code any
	}{
		{"validation", &domain.ValidationError{Field: "bucket name", Rule: "too short"}, 400, nil},
		{"api with status", &domain.APIError{Code: 10006, Message: "no such bucket", Status: 404}, 404, float64(10006)},
		{"api without status", &domain.APIError{Message: "unknown error", Status: 200}, 502, nil},
		{"download not found", &domain.DownloadError{ObjectFault: domain.ObjectFault{Op: "download", Bucket: "b", Key: "k", Status: 404, Code: "NoSuchKey"}}, 404, "NoSuchKey"},
		{"download transport", &domain.DownloadError{ObjectFault: domain.ObjectFault{Op: "download", Bucket: "b", Key: "k", Err: &domain.TransportError{Err: errors.New("reset")}}}, 502, nil},
		{"transport", &domain.TransportError{Method: "GET", Endpoint: "x", Err: errors.New("refused")}, 502, nil},
		{"unexpected", errors.New("boom"), 500, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &scripted{errs: map[r2.Kind]error{"object:download": tt.err}}
			router, _ := newTestRouter(t, exec)

			w := do(router, http.MethodGet, "/api/v1/buckets/b/objects/k", "", nil)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["kind"] != domain.ErrorKind(tt.err) {
				t.Fatalf("kind = %v", body["kind"])
			}
			if tt.code != nil && body["code"] != tt.code {
				t.Fatalf("code = %v, want %v", body["code"], tt.code)
			}
		})
	}
}

func TestDownloadRawAndJSON(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{
		"object:download": {Download: &domain.DownloadResult{
			Data:   []byte("hello"),
			Object: domain.ObjectRecord{Key: "docs/a.txt", Size: 5, ContentType: "text/plain", ETag: `"e"`},
		}},
	}}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodGet, "/api/v1/buckets/b/objects/docs/a.txt", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "hello" || w.Header().Get("Content-Type") != "text/plain" {
		t.Fatalf("raw download: %d %q %q", w.Code, w.Body, w.Header().Get("Content-Type"))
	}
	cmd := exec.calls[0].cmd.(r2.DownloadObject)
	if cmd.Key != "docs/a.txt" || cmd.Range != nil {
		t.Fatalf("cmd = %+v", cmd)
	}

	w = do(router, http.MethodGet, "/api/v1/buckets/b/objects/docs/a.txt?format=json&range=1-3", "", nil)
	var body struct {
		FileName string `json:"file_name"`
		Data     string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.FileName != "a.txt" || body.Data != "aGVsbG8=" {
		t.Fatalf("json download = %+v", body)
	}
	rng := exec.calls[1].cmd.(r2.DownloadObject).Range
	if rng == nil || rng.Start != 1 || rng.End != 3 {
		t.Fatalf("range = %+v", rng)
	}
}

func TestUploadBase64(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{"object:upload": {Object: &domain.ObjectRecord{Key: "img.png"}}}}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodPost, "/api/v1/buckets/b/objects",
		`{"key":"img.png","source":"base64","content":"data:image/png;base64,aGVsbG8=","metadata":{"owner":"ops"}}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	in := exec.calls[0].cmd.(r2.UploadObject).Input
	if string(in.Data) != "hello" || in.ContentType != "image/png" || in.Metadata["owner"] != "ops" || in.Bucket != "b" {
		t.Fatalf("input = %+v", in)
	}

	w = do(router, http.MethodPost, "/api/v1/buckets/b/objects", `{"key":"x","source":"base64","content":"%%%"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad base64 status = %d", w.Code)
	}
}

func TestPutObjectRawBody(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{"object:upload": {Object: &domain.ObjectRecord{Key: "notes/today.txt"}}}}
	router, _ := newTestRouter(t, exec)

	h := http.Header{}
	h.Set("X-Amz-Meta-Author", "me")
	req := httptest.NewRequest(http.MethodPut, "/api/v1/buckets/b/objects/notes/today.txt", strings.NewReader("plain words"))
	req.Header = h
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	in := exec.calls[0].cmd.(r2.UploadObject).Input
	if in.Key != "notes/today.txt" || string(in.Data) != "plain words" || in.ContentType != "text/plain" || in.Metadata["author"] != "me" {
		t.Fatalf("input = %+v", in)
	}
}

func TestDeleteObjectsPartialFailure(t *testing.T) {
	exec := &scripted{
		results: map[r2.Kind]*r2.Result{"batch:deleteMultiple": {Deleted: &domain.DeleteResult{Deleted: []string{"k1"}}}},
		errs: map[r2.Kind]error{"batch:deleteMultiple": &domain.DeleteError{ObjectFault: domain.ObjectFault{
			Op: "delete", Bucket: "b", Key: "k2", Status: 500, Code: "InternalError",
		}}},
	}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodPost, "/api/v1/buckets/b/delete", `{"keys_text":"k1\nk2\n\nk3"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if w.Header().Get("X-R2-Deleted-Count") != "1" {
		t.Fatalf("deleted count header = %q", w.Header().Get("X-R2-Deleted-Count"))
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["key"] != "k2" || body["kind"] != "delete" {
		t.Fatalf("body = %v", body)
	}
	cmd := exec.calls[0].cmd.(r2.DeleteObjects)
	if strings.Join(cmd.Keys, ",") != "k1,k2,k3" {
		t.Fatalf("keys = %v", cmd.Keys)
	}
}

func TestSetCORSNormalizesMethods(t *testing.T) {
	exec := &scripted{}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodPut, "/api/v1/buckets/b/cors",
		`{"rules":[{"allowed_origins":["https://a.example"],"allowed_methods":["get","Put"],"max_age":600}]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	cfg := exec.calls[0].cmd.(r2.SetCORS).Config
	if len(cfg.Rules) != 1 || cfg.Rules[0].AllowedMethods[0] != domain.CORSMethodGet || cfg.Rules[0].AllowedMethods[1] != domain.CORSMethodPut {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Rules[0].MaxAgeSeconds == nil || *cfg.Rules[0].MaxAgeSeconds != 600 {
		t.Fatalf("max age = %v", cfg.Rules[0].MaxAgeSeconds)
	}
}

func TestCopyObject(t *testing.T) {
	exec := &scripted{results: map[r2.Kind]*r2.Result{"object:copy": {Object: &domain.ObjectRecord{Key: "b.txt"}}}}
	router, _ := newTestRouter(t, exec)

	w := do(router, http.MethodPost, "/api/v1/copy",
		`{"source_bucket":"s","source_key":"a.txt","destination_bucket":"d","destination_key":"b.txt","metadata_directive":"replace"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	in := exec.calls[0].cmd.(r2.CopyObject).Input
	if in.MetadataDirective != domain.MetadataDirectiveReplace || in.SourceKey != "a.txt" || in.DestinationBucket != "d" {
		t.Fatalf("input = %+v", in)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " ", "*"})
	if !all || len(origins) != 2 || origins[1] != "https://b.example" {
		t.Fatalf("origins = %v all = %v", origins, all)
	}
}

func preflight(router http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/buckets/photos", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSDefaultsToLocalOrigins(t *testing.T) {
	router := NewRouter(nil, nil)

	if got := preflight(router, "https://evil.example").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
	w := preflight(router, "http://localhost:3000")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("local origin rejected, Allow-Origin = %q", got)
	}
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	router := NewRouter(nil, []string{"https://app.example, *"})

	w := preflight(router, "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got == "true" {
		t.Fatal("wildcard origins must not allow credentials")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestRangedDownloadKeepsProviderStatus(t *testing.T) {
	tests := []struct {
		name     string
		provider int
		want     int
	}{
		{"range honored", http.StatusPartialContent, http.StatusPartialContent},
		{"range ignored", http.StatusOK, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &scripted{results: map[r2.Kind]*r2.Result{
				"object:download": {Download: &domain.DownloadResult{
					Data:   []byte("0123456789"),
					Object: domain.ObjectRecord{Key: "digits", ContentType: "text/plain"},
					Status: tt.provider,
				}},
			}}
			router, _ := newTestRouter(t, exec)

			w := do(router, http.MethodGet, "/api/v1/buckets/b/objects/digits", "", http.Header{"Range": {"bytes=2-4"}})
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
