// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"docket-scan/internal/overrides"
)

func main() {
	var (
		overridesFile = flag.String("overrides-file", "", "Path to linkage overrides file (default: <config-dir>/docket-overrides.yaml)")
		action        = flag.String("action", "", "Action to perform: list, add, remove, disable, prune")
		link          = flag.String("link", "", "Override kind for add: force-link or block-link")
		caseA         = flag.String("case-a", "", "First case number of the pair (for add action)")
		caseB         = flag.String("case-b", "", "Second case number of the pair (for add action)")
		id            = flag.String("id", "", "Override rule ID (for remove and disable actions)")
		reason        = flag.String("reason", "", "Reason for the override (for add action)")
		createdBy     = flag.String("created-by", "", "Author recorded on the rule (for add action)")
		expires       = flag.String("expires", "", "Expiry date YYYY-MM-DD; empty means the rule never expires")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Error: --action is required")
		fmt.Println("Usage: docket-override --action <list|add|remove|disable|prune> [options]")
		os.Exit(1)
	}

	manager := overrides.NewManager(*overridesFile)

	switch *action {
	case "list":
		listRules(manager)
	case "add":
		if *link == "" || *caseA == "" || *caseB == "" {
			fmt.Println("Error: --link, --case-a and --case-b are required for add action")
			os.Exit(1)
		}
		addRule(manager, *link, *caseA, *caseB, *reason, *createdBy, *expires)
	case "remove":
		if *id == "" {
			fmt.Println("Error: --id is required for remove action")
			os.Exit(1)
		}
		removeRule(manager, *id)
	case "disable":
		if *id == "" {
			fmt.Println("Error: --id is required for disable action")
			os.Exit(1)
		}
		disableRule(manager, *id)
	case "prune":
		pruneExpired(manager)
	default:
		fmt.Printf("Error: Unknown action '%s'\n", *action)
		fmt.Println("Valid actions: list, add, remove, disable, prune")
		os.Exit(1)
	}
}

func listRules(manager *overrides.Manager) {
	rules := manager.List()
	if len(rules) == 0 {
		fmt.Println("No override rules found.")
		return
	}

	fmt.Printf("Found %d override rules in %s:\n\n", len(rules), manager.GetConfigPath())
	for _, rule := range rules {
		fmt.Printf("ID: %s\n", rule.ID)
		fmt.Printf("Action: %s\n", rule.Action)
		fmt.Printf("Numbers: %s\n", strings.Join(rule.Numbers, " | "))
		fmt.Printf("Reason: %s\n", rule.Reason)
		fmt.Printf("Enabled: %t\n", rule.Enabled)
		if rule.CreatedBy != "" {
			fmt.Printf("Created By: %s\n", rule.CreatedBy)
		}
		fmt.Printf("Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
		if rule.ExpiresAt != nil {
			fmt.Printf("Expires At: %s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		if rule.LastSeenAt != nil {
			fmt.Printf("Last Seen: %s\n", rule.LastSeenAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println("---")
	}
}

func addRule(manager *overrides.Manager, link, caseA, caseB, reason, createdBy, expires string) {
	var expiresAt *time.Time
	if expires != "" {
		t, err := time.Parse("2006-01-02", expires)
		if err != nil {
			fmt.Printf("Error parsing --expires: %v\n", err)
			os.Exit(1)
		}
		expiresAt = &t
	}

	if err := manager.Add(link, caseA, caseB, reason, createdBy, expiresAt); err != nil {
		fmt.Printf("Error adding override: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully added %s override for %s and %s\n", link, caseA, caseB)
}

func removeRule(manager *overrides.Manager, id string) {
	if err := manager.Remove(id); err != nil {
		fmt.Printf("Error removing override: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully removed override rule: %s\n", id)
}

func disableRule(manager *overrides.Manager, id string) {
	if err := manager.Disable(id); err != nil {
		fmt.Printf("Error disabling override: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully disabled override rule: %s\n", id)
}

func pruneExpired(manager *overrides.Manager) {
	removed := manager.Prune()
	fmt.Printf("Pruned %d expired override rules\n", removed)
}
