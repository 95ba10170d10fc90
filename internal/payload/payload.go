// Package payload turns caller-supplied upload content (plain text, base64, data URLs
// or raw bytes) into the body and content type of an object PUT.
package payload

import (
	"encoding/base64"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

// Source says how Input.Content should be read
type Source string

const (
	SourceText   Source = "text"
	SourceBase64 Source = "base64"
	SourceBinary Source = "binary"
)

const (
	octetStream = "application/octet-stream"
	textPlain   = "text/plain"
)

var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
	"json": "application/json",
	"txt":  "text/plain",
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"xml":  "application/xml",
	"zip":  "application/zip",
}

var dataURL = regexp.MustCompile(`^data:([^;,]+);base64,(.+)$`)

// Input is upload content before decoding.
type Input struct {
	Source Source
	// Content is the text body or the base64 / data URL string.
	Content string
	// Binary is used when Source is SourceBinary.
	Binary []byte
	// FileName drives extension-based type detection.
	FileName string
	// ContentType, when set, always wins.
	ContentType string
}

// Decoded is the body and resolved content type of an upload
type Decoded struct {
	Data        []byte
	ContentType string
}

// Decode resolves in into bytes and a content type. Content type precedence is:
// explicit, data URL prefix, file extension, sniffed bytes, application/octet-stream.
// Text content defaults to text/plain.
func Decode(in Input) (*Decoded, error) {
	switch in.Source {
	case SourceText, "":
		ct := in.ContentType
		if ct == "" {
			ct = textPlain
		}
		return &Decoded{Data: []byte(in.Content), ContentType: ct}, nil

	case SourceBinary:
		return &Decoded{Data: in.Binary, ContentType: resolve(in.ContentType, in.FileName, in.Binary)}, nil

	case SourceBase64:
		if strings.TrimSpace(in.Content) == "" {
			return nil, &domain.ValidationError{Field: "base64 content", Rule: "content is required"}
		}
		raw, hinted := splitDataURL(in.Content)
		data, err := decodeBase64(raw)
		if err != nil {
			return nil, &domain.ValidationError{Field: "base64 content", Rule: err.Error()}
		}
		ct := in.ContentType
		if ct == "" {
			ct = hinted
		}
		return &Decoded{Data: data, ContentType: resolve(ct, in.FileName, data)}, nil
	}
	return nil, &domain.ValidationError{Field: "data source", Value: string(in.Source), Rule: "must be text, base64 or binary"}
}

// TypeByExtension looks name's extension up in the built-in table.
func TypeByExtension(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	ct, ok := extensionTypes[ext]
	return ct, ok
}

// Encode renders downloaded bytes for JSON transport.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FileName is the last path segment of key.
func FileName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return key
}

func resolve(explicit, fileName string, data []byte) string {
	if explicit != "" {
		return explicit
	}
	if fileName != "" {
		if ct, ok := TypeByExtension(fileName); ok {
			return ct
		}
	}
	if len(data) > 0 {
		if m := mimetype.Detect(data); m != nil && m.String() != octetStream {
			return m.String()
		}
	}
	return octetStream
}

// splitDataURL strips a data: prefix and returns the MIME type it named.
func splitDataURL(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	if m := dataURL.FindStringSubmatch(s); m != nil {
		return m[2], m[1]
	}
	if _, rest, found := strings.Cut(s, ","); found {
		return rest, ""
	}
	return s, ""
}

func decodeBase64(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	data, err := base64.StdEncoding.DecodeString(clean)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
