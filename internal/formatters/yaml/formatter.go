// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"
	"docket-scan/internal/formatters/shared"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML format output, field-compatible with the JSON structure"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

// Format renders the same run view the JSON formatter marshals. Field
// names match the JSON output through the shared struct tags.
func (f *Formatter) Format(run *docket.Run, options formatters.FormatterOptions) (string, error) {
	view := shared.BuildView(run, options)

	yamlData, err := yaml.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("formatting YAML: %w", err)
	}
	return string(yamlData), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
