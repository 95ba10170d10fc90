package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/r2"
)

func TestBuildCommandCoversEveryOperation(t *testing.T) {
	ops := []struct {
		resource string
		op       string
	}{
		{"bucket", "list"}, {"bucket", "create"}, {"bucket", "get"}, {"bucket", "delete"},
		{"bucket", "getCORS"}, {"bucket", "setCORS"}, {"bucket", "deleteCORS"},
		{"object", "upload"}, {"object", "download"}, {"object", "getMetadata"},
		{"object", "delete"}, {"object", "list"}, {"object", "copy"},
		{"batch", "deleteMultiple"},
	}
	p := params{Bucket: "photos", Key: "a.txt", RangeEnd: -1, MaxAge: -1, Keys: []string{"a"}}

	for _, tc := range ops {
		k, err := r2.ParseOperation(tc.resource, tc.op)
		if err != nil {
			t.Fatalf("ParseOperation(%s, %s): %v", tc.resource, tc.op, err)
		}
		cmd, err := buildCommand(k, p)
		if err != nil {
			t.Fatalf("buildCommand(%s): %v", k, err)
		}
		if got := r2.KindOf(cmd); got != k {
			t.Errorf("buildCommand(%s) built %s", k, got)
		}
	}
}

func TestUploadFromFileDetectsType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	p := params{Bucket: "docs", Key: "reports/latest", File: path, Meta: []string{"owner=ops"}, StorageClass: "standard_ia"}
	cmd, err := buildCommand(r2.KindFor(r2.ResourceObject, r2.OpUpload), p)
	if err != nil {
		t.Fatalf("buildCommand: %v", err)
	}
	in := cmd.(r2.UploadObject).Input
	if in.ContentType != "application/json" {
		t.Errorf("content type = %q", in.ContentType)
	}
	if string(in.Data) != `{"ok":true}` {
		t.Errorf("data = %q", in.Data)
	}
	if in.StorageClass != domain.StorageClassStandardIA {
		t.Errorf("storage class = %q", in.StorageClass)
	}
	if in.Metadata["owner"] != "ops" {
		t.Errorf("metadata = %v", in.Metadata)
	}
}

func TestUploadInlineBase64(t *testing.T) {
	p := params{Bucket: "docs", Key: "hello.txt", Content: "aGVsbG8=", Encoding: "base64"}
	cmd, err := buildCommand(r2.KindFor(r2.ResourceObject, r2.OpUpload), p)
	if err != nil {
		t.Fatalf("buildCommand: %v", err)
	}
	in := cmd.(r2.UploadObject).Input
	if string(in.Data) != "hello" || in.ContentType != "text/plain" {
		t.Errorf("got %q as %q", in.Data, in.ContentType)
	}
}

func TestBatchKeysMergeFlagsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("b\n\n  c  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := params{Bucket: "logs", Keys: []string{"a", " "}, KeysFile: path, Concurrency: 4}
	cmd, err := buildCommand(r2.KindFor(r2.ResourceBatch, r2.OpDeleteMultiple), p)
	if err != nil {
		t.Fatalf("buildCommand: %v", err)
	}
	del := cmd.(r2.DeleteObjects)
	if !reflect.DeepEqual(del.Keys, []string{"a", "b", "c"}) {
		t.Errorf("keys = %v", del.Keys)
	}
	if del.Options.Concurrency != 4 {
		t.Errorf("concurrency = %d", del.Options.Concurrency)
	}
}

func TestCORSFromFlags(t *testing.T) {
	p := params{
		Bucket:  "site",
		Origins: []string{"https://example.com"},
		Methods: []string{"get", "Put"},
		MaxAge:  600,
	}
	cmd, err := buildCommand(r2.KindFor(r2.ResourceBucket, r2.OpSetCORS), p)
	if err != nil {
		t.Fatalf("buildCommand: %v", err)
	}
	rules := cmd.(r2.SetCORS).Config.Rules
	if len(rules) != 1 {
		t.Fatalf("rules = %+v", rules)
	}
	want := []domain.CORSMethod{domain.CORSMethodGet, domain.CORSMethodPut}
	if !reflect.DeepEqual(rules[0].AllowedMethods, want) {
		t.Errorf("methods = %v", rules[0].AllowedMethods)
	}
	if rules[0].MaxAgeSeconds == nil || *rules[0].MaxAgeSeconds != 600 {
		t.Errorf("max age = %v", rules[0].MaxAgeSeconds)
	}

	p.Methods = []string{"PATCH"}
	_, err = buildCommand(r2.KindFor(r2.ResourceBucket, r2.OpSetCORS), p)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDownloadRange(t *testing.T) {
	k := r2.KindFor(r2.ResourceObject, r2.OpDownload)

	cmd, _ := buildCommand(k, params{Bucket: "b", Key: "k", RangeEnd: -1})
	if cmd.(r2.DownloadObject).Range != nil {
		t.Errorf("expected no range without flags")
	}

	cmd, _ = buildCommand(k, params{Bucket: "b", Key: "k", RangeStart: 10, RangeEnd: -1})
	if got := cmd.(r2.DownloadObject).Range; got == nil || got.Start != 10 || got.End != -1 {
		t.Errorf("range = %+v", got)
	}
}

func TestParseMetaRejectsBarePairs(t *testing.T) {
	if _, err := parseMeta([]string{"novalue"}); err == nil {
		t.Fatal("expected error")
	}
	meta, err := parseMeta([]string{"a=1=2"})
	if err != nil || meta["a"] != "1=2" {
		t.Fatalf("meta = %v, err = %v", meta, err)
	}
}
