package domain

import "strings"

// CORSMethod is an HTTP method allowed by a CORS rule
type CORSMethod string

const (
	CORSMethodGet    CORSMethod = "GET"
	CORSMethodPost   CORSMethod = "POST"
	CORSMethodPut    CORSMethod = "PUT"
	CORSMethodDelete CORSMethod = "DELETE"
	CORSMethodHead   CORSMethod = "HEAD"
)

var corsMethods = map[string]CORSMethod{
	"get":    CORSMethodGet,
	"post":   CORSMethodPost,
	"put":    CORSMethodPut,
	"delete": CORSMethodDelete,
	"head":   CORSMethodHead,
}

// ParseCORSMethod returns the method for a given name (case-insensitive).
func ParseCORSMethod(name string) (CORSMethod, bool) {
	m, ok := corsMethods[strings.ToLower(strings.TrimSpace(name))]

	return m, ok
}

// Valid reports whether m is one of the supported methods.
func (m CORSMethod) Valid() bool {
	_, ok := corsMethods[strings.ToLower(string(m))]
	return ok && strings.ToUpper(string(m)) == string(m)
}

// StorageClass is the tier hint attached to an object at upload time
type StorageClass string

const (
	StorageClassStandard          StorageClass = "STANDARD"
	StorageClassReducedRedundancy StorageClass = "REDUCED_REDUNDANCY"
	StorageClassStandardIA        StorageClass = "STANDARD_IA"
)

// Valid reports whether c is empty or a known class.
func (c StorageClass) Valid() bool {
	switch c {
	case "", StorageClassStandard, StorageClassReducedRedundancy, StorageClassStandardIA:
		return true
	}
	return false
}

// MetadataDirective tells a copy whether to keep or replace the source metadata
type MetadataDirective string

const (
	MetadataDirectiveCopy    MetadataDirective = "COPY"
	MetadataDirectiveReplace MetadataDirective = "REPLACE"
)

// Valid reports whether d is empty or a known directive.
func (d MetadataDirective) Valid() bool {
	switch d {
	case "", MetadataDirectiveCopy, MetadataDirectiveReplace:
		return true
	}
	return false
}
