// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package overrides

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docket-scan/internal/cnj"
	"docket-scan/internal/paths"

	"gopkg.in/yaml.v3"
)

// Override actions. ActionForceLink joins two case numbers into one chain
// regardless of similarity score; ActionBlockLink keeps them apart even when
// their keys or scores would group them.
const (
	ActionForceLink = "force-link"
	ActionBlockLink = "block-link"
)

// Decision is the result of consulting the override rules for a pair.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionForce
	DecisionBlock
)

func (d Decision) String() string {
	switch d {
	case DecisionForce:
		return "force"
	case DecisionBlock:
		return "block"
	default:
		return "none"
	}
}

// OverrideRule represents a single linkage override rule
type OverrideRule struct {
	ID         string            `yaml:"id"`
	Action     string            `yaml:"action"`
	Numbers    []string          `yaml:"numbers"`
	Hash       string            `yaml:"hash"`
	Reason     string            `yaml:"reason"`
	Enabled    bool              `yaml:"enabled"`
	CreatedBy  string            `yaml:"created_by,omitempty"`
	CreatedAt  time.Time         `yaml:"created_at"`
	LastSeenAt *time.Time        `yaml:"last_seen_at,omitempty"`
	ExpiresAt  *time.Time        `yaml:"expires_at,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
}

// OverrideConfig represents the override configuration file
type OverrideConfig struct {
	Version string         `yaml:"version"`
	Rules   []OverrideRule `yaml:"rules"`
}

// Manager handles loading and consulting linkage overrides
type Manager struct {
	configPath string
	config     *OverrideConfig
	normalizer *cnj.Normalizer
	enabled    bool
}

// NewManager creates a new override manager
func NewManager(configPath string) *Manager {
	if configPath == "" {
		configPath = findDefaultOverridesFile()
	}

	manager := &Manager{
		configPath: configPath,
		normalizer: cnj.NewNormalizer(),
		enabled:    true,
	}

	manager.loadConfig()
	return manager
}

// findDefaultOverridesFile looks for the default overrides file
func findDefaultOverridesFile() string {
	return paths.GetOverridesFile()
}

// loadConfig loads the override configuration
func (m *Manager) loadConfig() {
	if m.configPath == "" {
		m.config = emptyConfig()
		return
	}

	cleanPath := filepath.Clean(m.configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		m.config = emptyConfig()
		return
	}

	var config OverrideConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		m.config = emptyConfig()
		return
	}

	m.config = &config
}

func emptyConfig() *OverrideConfig {
	return &OverrideConfig{
		Version: "1.0",
		Rules:   []OverrideRule{},
	}
}

// pairHash creates a unique, order-independent hash for a pair of case numbers.
// Numbers are reduced to digit strings first so punctuation variants of the
// same number hash to the same rule.
func (m *Manager) pairHash(a, b string) string {
	da := m.normalizer.Digits(a)
	db := m.normalizer.Digits(b)

	pair := []string{da, db}
	sort.Strings(pair)

	composite := strings.Join(pair, "|")
	hash := sha256.Sum256([]byte(composite))
	return fmt.Sprintf("%x", hash)
}

// Decide consults the rules for the pair of case numbers. Force wins over
// block when both appear, matching the order rules are evaluated in.
func (m *Manager) Decide(a, b string) (Decision, *OverrideRule) {
	if !m.enabled || m.config == nil {
		return DecisionNone, nil
	}

	hash := m.pairHash(a, b)

	for i := range m.config.Rules {
		rule := &m.config.Rules[i]
		if rule.Hash != hash {
			continue
		}
		if !rule.Enabled {
			continue
		}
		if rule.ExpiresAt != nil && time.Now().After(*rule.ExpiresAt) {
			continue
		}

		switch rule.Action {
		case ActionForceLink:
			return DecisionForce, rule
		case ActionBlockLink:
			return DecisionBlock, rule
		}
	}

	return DecisionNone, nil
}

// Add creates a new override rule for a pair of case numbers. A nil expiresAt
// means the rule never expires; linkage facts do not go stale on their own.
func (m *Manager) Add(action, numberA, numberB, reason, createdBy string, expiresAt *time.Time) error {
	if action != ActionForceLink && action != ActionBlockLink {
		return fmt.Errorf("unknown override action: %s", action)
	}
	if m.config == nil {
		m.config = emptyConfig()
	}

	hash := m.pairHash(numberA, numberB)

	// Check if already exists
	for _, rule := range m.config.Rules {
		if rule.Hash == hash && rule.Action == action {
			return fmt.Errorf("override rule already exists for this pair")
		}
	}

	rule := OverrideRule{
		ID:        m.nextID(),
		Action:    action,
		Numbers:   []string{numberA, numberB},
		Hash:      hash,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
		Metadata: map[string]string{
			"digits_a": m.normalizer.Digits(numberA),
			"digits_b": m.normalizer.Digits(numberB),
		},
	}

	m.config.Rules = append(m.config.Rules, rule)
	return m.saveConfig()
}

// nextID generates the next sequential rule ID
func (m *Manager) nextID() string {
	maxID := 0
	for _, existingRule := range m.config.Rules {
		if existingRule.ID != "" {
			var num int
			if _, err := fmt.Sscanf(existingRule.ID, "OVR-%08d", &num); err == nil && num > maxID {
				maxID = num
			}
		}
	}
	return fmt.Sprintf("OVR-%08d", maxID+1)
}

// Remove removes an override rule by ID
func (m *Manager) Remove(id string) error {
	if m.config == nil {
		return fmt.Errorf("no override config loaded")
	}

	for i, rule := range m.config.Rules {
		if rule.ID == id {
			m.config.Rules = append(m.config.Rules[:i], m.config.Rules[i+1:]...)
			return m.saveConfig()
		}
	}

	return fmt.Errorf("override rule with ID %s not found", id)
}

// Disable disables an override rule by ID without removing it
func (m *Manager) Disable(id string) error {
	if m.config == nil {
		return fmt.Errorf("no override config loaded")
	}

	for i := range m.config.Rules {
		if m.config.Rules[i].ID == id {
			m.config.Rules[i].Enabled = false
			return m.saveConfig()
		}
	}

	return fmt.Errorf("override rule with ID %s not found", id)
}

// List returns all override rules
func (m *Manager) List() []OverrideRule {
	if m.config == nil {
		return []OverrideRule{}
	}
	return m.config.Rules
}

// Active returns the rules currently in force: enabled and not expired.
func (m *Manager) Active() []OverrideRule {
	if !m.enabled || m.config == nil {
		return []OverrideRule{}
	}

	now := time.Now()
	active := make([]OverrideRule, 0, len(m.config.Rules))
	for _, rule := range m.config.Rules {
		if !rule.Enabled {
			continue
		}
		if rule.ExpiresAt != nil && now.After(*rule.ExpiresAt) {
			continue
		}
		active = append(active, rule)
	}
	return active
}

// MarkSeen records that a rule matched during a run
func (m *Manager) MarkSeen(id string) {
	if m.config == nil {
		return
	}
	now := time.Now()
	for i := range m.config.Rules {
		if m.config.Rules[i].ID == id {
			m.config.Rules[i].LastSeenAt = &now
			return
		}
	}
}

// saveConfig saves the override configuration to file
func (m *Manager) saveConfig() error {
	if m.configPath == "" {
		m.configPath = paths.GetOverridesFile()
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal override config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(m.configPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write with restrictive permissions
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write override config: %w", err)
	}

	return nil
}

// Prune removes expired override rules and returns how many were dropped
func (m *Manager) Prune() int {
	if m.config == nil {
		return 0
	}

	now := time.Now()
	originalCount := len(m.config.Rules)

	var activeRules []OverrideRule
	for _, rule := range m.config.Rules {
		if rule.ExpiresAt == nil || now.Before(*rule.ExpiresAt) {
			activeRules = append(activeRules, rule)
		}
	}

	m.config.Rules = activeRules
	removed := originalCount - len(activeRules)

	if removed > 0 {
		m.saveConfig()
	}

	return removed
}

// SetEnabled enables or disables the override manager
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled returns whether the override manager is enabled
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// GetConfigPath returns the path to the override config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
