// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package formatters renders a reconciliation run for people and
// machines. Each output format registers itself from its package init,
// so importing a format package is what makes it available.
package formatters

import (
	"fmt"
	"sort"
	"strings"

	"docket-scan/internal/docket"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Confidence map[string]bool // Which confidence levels to display; nil shows all
	Verbose    bool            // Whether to display per-record detail
	NoColor    bool            // Whether to disable colored output
	// Mask, when set, is applied to every case number before display.
	// Formatters never print an unmasked number when this is present.
	Mask func(string) string
}

// Formatter is implemented by every output format.
type Formatter interface {
	// Format renders a reconciliation run in the formatter's output format
	Format(run *docket.Run, options FormatterOptions) (string, error)

	// Name returns the format name used by the -format flag (e.g. "json")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the extension for saved output (e.g. ".json")
	FileExtension() string
}

// Registry maps format names to implementations.
type Registry struct {
	byName map[string]Formatter
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Formatter)}
}

func (r *Registry) Register(formatter Formatter) {
	r.byName[formatter.Name()] = formatter
}

func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, ok := r.byName[name]
	return formatter, ok
}

// List returns the registered format names, sorted so help text and
// error messages stay stable across runs.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the formats compiled into the binary.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get retrieves a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns the names in the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Export renders run in the named format. The CLI and the web export
// endpoint share this entry point so both honor the same confidence
// filter and mask.
func Export(format string, run *docket.Run, options FormatterOptions) (string, error) {
	formatter, ok := Get(format)
	if !ok {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s",
			format, strings.Join(List(), ", "))
	}
	return formatter.Format(run, options)
}

// mimeTypes covers the compiled-in formats; anything else downloads as
// a generic byte stream.
var mimeTypes = map[string]string{
	"json":     "application/json",
	"csv":      "text/csv",
	"yaml":     "application/x-yaml",
	"markdown": "text/markdown",
	"text":     "text/plain",
}

// FormatInfo describes one format for the web UI's export menu.
type FormatInfo struct {
	Name         string
	Description  string
	Extension    string
	MimeType     string
	WebSupported bool
}

// GetFormatInfo returns metadata for one format. Unknown names yield
// the zero FormatInfo.
func GetFormatInfo(name string) FormatInfo {
	formatter, ok := Get(name)
	if !ok {
		return FormatInfo{}
	}
	mimeType, ok := mimeTypes[name]
	if !ok {
		mimeType = "application/octet-stream"
	}
	return FormatInfo{
		Name:         formatter.Name(),
		Description:  formatter.Description(),
		Extension:    formatter.FileExtension(),
		MimeType:     mimeType,
		WebSupported: true,
	}
}

// GetSupportedFormats lists every registered format with its metadata.
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}

// ExportForWeb renders run and supplies the Content-Type and download
// filename for the HTTP response.
func ExportForWeb(format string, run *docket.Run, options FormatterOptions) (content string, mimeType string, filename string, err error) {
	content, err = Export(format, run, options)
	if err != nil {
		return "", "", "", err
	}
	info := GetFormatInfo(format)
	return content, info.MimeType, "docket-scan-results" + info.Extension, nil
}
