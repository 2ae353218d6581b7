// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ingest turns court registry exports into case records. A
// Manager routes each input file to a Reader by extension, falling
// back to a content sniff for unlabeled exports, and resolves s3://
// inputs through an optional S3 source. Readers keep records that fail
// number or tier checks: the engine counts malformed records, so
// dropping them here would hide them from the batch stats.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
)

// Reader parses one registry export format into case records.
type Reader interface {
	// CanRead checks if this reader handles the given file
	CanRead(filePath string) bool

	// Read parses the file into case records
	Read(filePath string) ([]docket.CaseRecord, error)

	// GetName returns the name of this reader
	GetName() string

	// GetSupportedExtensions returns the file extensions this reader supports
	GetSupportedExtensions() []string

	// SetObserver sets the observability component
	SetObserver(observer *observability.StandardObserver)
}

// Manager routes input files to registered readers.
type Manager struct {
	readers  []Reader
	s3       *S3Source
	observer *observability.StandardObserver
}

// NewManager creates an empty manager. Most callers want
// NewDefaultManager.
func NewManager() *Manager {
	return &Manager{
		readers: make([]Reader, 0),
	}
}

// NewDefaultManager creates a manager with every built-in reader
// registered.
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Register(NewDataJudReader())
	m.Register(NewCSVReader())
	m.Register(NewDocketHTMLReader())
	m.Register(NewGazetteReader())
	return m
}

// Register adds a reader to the manager
func (m *Manager) Register(r Reader) {
	m.readers = append(m.readers, r)
}

// SetS3Source attaches the source used to resolve s3:// inputs
func (m *Manager) SetS3Source(src *S3Source) {
	m.s3 = src
}

// SetObserver sets the observability component and propagates it to
// every registered reader
func (m *Manager) SetObserver(observer *observability.StandardObserver) {
	m.observer = observer
	for _, r := range m.readers {
		r.SetObserver(observer)
	}
	if m.s3 != nil {
		m.s3.SetObserver(observer)
	}
}

// ReaderFor returns the first registered reader claiming the file, or
// nil if none does.
func (m *Manager) ReaderFor(filePath string) Reader {
	for _, r := range m.readers {
		if r.CanRead(filePath) {
			return r
		}
	}
	return nil
}

// ReadFile routes one local file to its readers. The first reader that
// parses it wins; when no reader claims the extension the payload is
// sniffed before giving up.
func (m *Manager) ReadFile(filePath string) ([]docket.CaseRecord, error) {
	var finishTiming func(bool, map[string]interface{})
	if m.observer != nil {
		finishTiming = m.observer.StartTiming("ingest", "read_file", filePath)
	}

	var candidates []Reader
	for _, r := range m.readers {
		if r.CanRead(filePath) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		if r := m.sniff(filePath); r != nil {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("no reader for %s", filePath)
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	var lastErr error
	for _, r := range candidates {
		records, err := r.Read(filePath)
		if err == nil {
			if finishTiming != nil {
				finishTiming(true, map[string]interface{}{
					"reader":       r.GetName(),
					"record_count": len(records),
				})
			}
			return records, nil
		}
		lastErr = err
	}

	if finishTiming != nil {
		finishTiming(false, map[string]interface{}{"error": lastErr.Error()})
	}
	return nil, lastErr
}

// ProcessPath reads one input, local path or s3:// URI, into case
// records. This is the entry point the worker pool drives; remote
// objects are staged to a temp file and removed after parsing.
func (m *Manager) ProcessPath(ctx context.Context, path string) ([]docket.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsS3URI(path) {
		if m.s3 == nil {
			return nil, fmt.Errorf("s3 input %s: no S3 source configured", path)
		}
		local, err := m.s3.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		defer os.Remove(local)
		return m.ReadFile(local)
	}
	return m.ReadFile(path)
}

// sniff inspects the first bytes of a file no reader claimed by
// extension. Registry exports often arrive extensionless from download
// scripts.
func (m *Manager) sniff(filePath string) Reader {
	cleanPath := filepath.Clean(filePath)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil
	}
	head := bytes.TrimLeftFunc(buf[:n], unicode.IsSpace)
	if len(head) == 0 {
		return nil
	}

	switch {
	case head[0] == '{' || head[0] == '[':
		return m.byName("datajud")
	case bytes.HasPrefix(head, []byte("%PDF")):
		return m.byName("gazette")
	case head[0] == '<':
		return m.byName("html")
	}
	// A header row carrying the registry column names reads as CSV
	if bytes.Contains(head, []byte("numero_processo")) || bytes.Contains(head, []byte(",grau")) {
		return m.byName("csv")
	}
	return nil
}

func (m *Manager) byName(name string) Reader {
	for _, r := range m.readers {
		if r.GetName() == name {
			return r
		}
	}
	return nil
}

// GetAvailableReaders returns all registered readers
func (m *Manager) GetAvailableReaders() []Reader {
	return m.readers
}
