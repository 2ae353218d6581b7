// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Topic contains the long-form help for one subject area
type Topic struct {
	Name             string   // Topic name (e.g., "masking")
	ShortDescription string   // Short description for the topics list
	Overview         string   // Detailed description of the subject
	Sections         []Section
	Examples         []string // Usage examples
}

// Section is a titled item list inside a topic
type Section struct {
	Title string
	Items []string
}

// System manages help content for the application
type System struct {
	topics  map[string]Topic
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a new help system with the built-in topics
func NewSystem(noColor bool) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	system := &System{
		topics:  make(map[string]Topic),
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"subtitle": color.New(color.FgCyan, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
	}

	for _, topic := range builtinTopics() {
		system.RegisterTopic(topic)
	}

	return system
}

// RegisterTopic adds a help topic to the system
func (h *System) RegisterTopic(topic Topic) {
	h.topics[strings.ToLower(topic.Name)] = topic
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Println("Docket Scan - Case-Chain Reconciliation for Labor Dockets")
	fmt.Println("=========================================================")
	fmt.Println()
	h.colors["header"].Println("USAGE:")
	fmt.Println("  docket-scan -input <path-or-s3-uri> [options]")
	fmt.Println("  docket-scan -serve <addr>  # Results viewer mode")
	fmt.Println()

	h.colors["header"].Println("OPTIONS:")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  -input\t<path>\tBatch to reconcile: file, directory, glob, or s3://bucket/prefix (required)")
	fmt.Fprintln(w, "\t\t\tNote: JSON/JSONL registry exports, CSV, saved docket HTML, and gazette PDF are routed automatically")
	fmt.Fprintln(w, "  -config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  -profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  -list-profiles\t\tList available profiles in config file")
	fmt.Fprintln(w, "  -format\t<format>\tOutput format: text, json, csv, yaml, markdown (default: text)")
	fmt.Fprintln(w, "  -confidence\t<levels>\tConfidence levels to display: high,medium,low,all (default: all)")
	fmt.Fprintln(w, "  -verbose\t\tDisplay per-record detail for each chain")
	fmt.Fprintln(w, "  -debug\t\tEnable debug logging of ingest routing, grouping, and resolution flow")
	fmt.Fprintln(w, "  -output\t<path>\tPath to output file (if not specified, output to stdout)")
	fmt.Fprintln(w, "  -no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  -quiet\t\tSuppress progress output (useful for scripts and CI/CD)")
	fmt.Fprintln(w, "  -recursive\t\tRecursively expand directory inputs")
	fmt.Fprintln(w, "  -workers\t<n>\tWorker pool size for record interpretation (default: CPU count)")
	fmt.Fprintln(w, "  -rules-version\t<label>\tTag the run with an explicit rules version label")
	fmt.Fprintln(w, "  -observability\t<level>\tObservability level: off, metrics, debug (default: off)")
	fmt.Fprintln(w, "  -store\t<path>\tSQLite archive to save the run into (also serves the viewer)")
	fmt.Fprintln(w, "  -mask\t<strategy>\tMask case numbers in output: simple, format-preserving, synthetic")
	fmt.Fprintln(w, "  -overrides\t<path>\tPath to linkage overrides file (default: <config-dir>/docket-overrides.yaml)")
	fmt.Fprintln(w, "  -gate\t\tQuality pre-flight only: ingest and validate, exit 2 on a bad batch")
	fmt.Fprintln(w, "  -serve\t<addr>\tStart the results viewer on addr (e.g. :8440) instead of printing")
	fmt.Fprintln(w, "  -version\t\tShow version information")
	fmt.Fprintln(w, "  -help\t\tShow this help message")
	fmt.Fprintln(w, "  -help-topics\t\tList all help topics")
	fmt.Fprintln(w, "  -help-topic\t<topic>\tShow detailed help for a specific topic")
	w.Flush()

	fmt.Println()
	h.colors["header"].Println("EXAMPLES:")
	fmt.Println("  Basic Usage:")
	h.colors["example"].Println("    docket-scan -input batch.json")
	h.colors["example"].Println("    docket-scan -input ./exports -format csv -output results.csv")
	fmt.Println("  Configuration and Profiles:")
	h.colors["example"].Println("    docket-scan -input batch.json -config docket.yaml -profile monthly")
	h.colors["example"].Println("    docket-scan -list-profiles -config docket.yaml")
	fmt.Println("  Archive and Viewer:")
	h.colors["example"].Println("    docket-scan -input batch.json -store runs.db")
	h.colors["example"].Println("    docket-scan -serve :8440 -store runs.db")
	fmt.Println("  Pipelines:")
	h.colors["example"].Println("    docket-scan -input s3://tribunal-exports/2024-03/ -gate")
	h.colors["example"].Println("    docket-scan -input batch.json -mask synthetic -format json")

	fmt.Println()
	h.colors["header"].Println("CONFIGURATION:")
	fmt.Println("  Default config: ~/.docket-scan/config.yaml")
	fmt.Println("  Project config: docket.yaml or .docket-scan.yaml (in current directory)")
	fmt.Println("  Environment: DOCKET_CONFIG_DIR - Override config directory")
}

// ShowTopics displays the list of available help topics
func (h *System) ShowTopics() {
	h.colors["title"].Println("Help Topics")
	fmt.Println("===========")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  TOPIC\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  -----\t-----------")

	names := make([]string, 0, len(h.topics))
	for name := range h.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		topic := h.topics[name]
		fmt.Fprintf(w, "  ")
		h.colors["emphasis"].Fprintf(w, "%s", topic.Name)
		fmt.Fprintf(w, "\t%s\n", topic.ShortDescription)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("For detailed information about a topic, use:")
	h.colors["example"].Println("  docket-scan -help-topic <topic>")
}

// ShowTopic displays detailed help for a specific topic
func (h *System) ShowTopic(name string) bool {
	topic, exists := h.topics[strings.ToLower(name)]
	if !exists {
		h.colors["negative"].Printf("Error: help topic '%s' not found.\n", name)
		fmt.Println("Use 'docket-scan -help-topics' to see the list of topics.")
		return false
	}

	h.colors["title"].Printf("%s\n", strings.ToUpper(topic.Name[:1])+topic.Name[1:])
	fmt.Println(strings.Repeat("=", len(topic.Name)))
	fmt.Println()
	fmt.Println(topic.Overview)
	fmt.Println()

	for _, section := range topic.Sections {
		h.colors["header"].Printf("%s:\n", section.Title)
		for _, item := range section.Items {
			fmt.Print("  - ")
			h.colors["item"].Println(item)
		}
		fmt.Println()
	}

	if len(topic.Examples) > 0 {
		h.colors["header"].Println("EXAMPLES:")
		for _, example := range topic.Examples {
			h.colors["example"].Printf("  %s\n", example)
		}
	}

	return true
}

// builtinTopics returns the standard topic set
func builtinTopics() []Topic {
	return []Topic{
		{
			Name:             "formats",
			ShortDescription: "Output formats and where each one fits",
			Overview: "Every format renders the same run structure: chains with outcomes,\n" +
				"residual records, and the run counters. Filtering by confidence and\n" +
				"masking apply to all formats alike.",
			Sections: []Section{
				{Title: "FORMATS", Items: []string{
					"text - colored summary table, or per-chain detail with -verbose",
					"json - canonical structure; the archive and the viewer use the same shape",
					"csv - one flat row per chain, residual rows marked RESIDUAL",
					"yaml - field-compatible with the JSON structure",
					"markdown - report with outcome, completeness, and residual tables",
				}},
			},
			Examples: []string{
				"docket-scan -input batch.json -format json -output run.json",
				"docket-scan -input batch.json -format markdown -output report.md",
			},
		},
		{
			Name:             "rules",
			ShortDescription: "Movement-code table and confidence semantics",
			Overview: "Outcome inference runs on a versioned movement-code table from the\n" +
				"CNJ unified movement tables. The defaults cover the standard labor\n" +
				"docket codes; a rules: section in the config file replaces them, and\n" +
				"the rules version label is recorded in every run.",
			Sections: []Section{
				{Title: "FIRST-INSTANCE CODES", Items: []string{
					"219 - claim granted (procedencia)",
					"220 - claim denied (improcedencia)",
					"221 - claim partially granted",
				}},
				{Title: "APPEAL CODES", Items: []string{
					"237 - appeal granted (provimento)",
					"238 - appeal partially granted",
					"242 - appeal denied (desprovimento)",
					"236 - appeal not admitted (negacao de seguimento)",
				}},
				{Title: "REFORM", Items: []string{
					"190 - decision reformed; the attachment names the prior decision type",
					"reform without a direct verdict surfaces as 'reformed, unconfirmed'",
				}},
				{Title: "CONFIDENCE", Items: []string{
					"HIGH - every tier transition backed by observed codes",
					"MEDIUM - at least one step inferred from subject keywords",
					"LOW - single-tier evidence only, or the appellant heuristic tied",
				}},
			},
			Examples: []string{
				"docket-scan -input batch.json -config docket.yaml -rules-version 2024.2",
			},
		},
		{
			Name:             "overrides",
			ShortDescription: "Manual linkage corrections between case numbers",
			Overview: "Linkage overrides correct the grouper when registry data links the\n" +
				"wrong records or misses a link a clerk has confirmed. Rules live in a\n" +
				"YAML file and are consulted before similarity scoring.",
			Sections: []Section{
				{Title: "ACTIONS", Items: []string{
					"force-link - join two case numbers into one chain regardless of score",
					"block-link - keep two case numbers apart even when keys match",
				}},
				{Title: "RULE FIELDS", Items: []string{
					"numbers - the pair of raw case numbers the rule covers",
					"reason - why the correction exists (required for audits)",
					"expires_at - optional expiry; expired rules are ignored and pruned",
					"enabled - disabled rules stay in the file but are not applied",
				}},
				{Title: "FILE", Items: []string{
					"default location: <config-dir>/docket-overrides.yaml",
					"-overrides points at an alternate file",
				}},
			},
			Examples: []string{
				"docket-scan -input batch.json -overrides ./team-overrides.yaml",
			},
		},
		{
			Name:             "masking",
			ShortDescription: "Case-number pseudonymization for published output",
			Overview: "Case numbers identify the parties through the public registries, so\n" +
				"outputs that leave the machine can be masked. Masking rewrites the\n" +
				"display copy only: the engine, the archive, and the viewer keep real\n" +
				"numbers.",
			Sections: []Section{
				{Title: "STRATEGIES", Items: []string{
					"simple - replace the whole number with a fixed token",
					"format-preserving - star the identifying segments, keep year, branch, court, and punctuation",
					"synthetic - deterministic fake number with valid check digits, same year, branch, and court",
				}},
			},
			Examples: []string{
				"docket-scan -input batch.json -mask format-preserving",
				"docket-scan -input batch.json -mask synthetic -format csv -output public.csv",
			},
		},
		{
			Name:             "s3",
			ShortDescription: "Reconciling batches straight from S3",
			Overview: "-input accepts s3://bucket/key for a single object and\n" +
				"s3://bucket/prefix/ for a listing. Objects are staged to a temp\n" +
				"directory and routed like local files, so every reader format works\n" +
				"from S3. Transfers retry with backoff behind a circuit breaker.",
			Sections: []Section{
				{Title: "CREDENTIALS", Items: []string{
					"AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY - static credentials when set",
					"otherwise the default AWS credential chain (profile, role, instance metadata)",
					"AWS_REGION selects the region; a local .env file is loaded first",
				}},
			},
			Examples: []string{
				"docket-scan -input s3://tribunal-exports/2024-03/batch.json",
				"docket-scan -input s3://tribunal-exports/2024-03/ -format json",
			},
		},
		{
			Name:             "gate",
			ShortDescription: "Batch quality pre-flight for pipelines",
			Overview: "-gate ingests and validates the batch without reconciling it, then\n" +
				"exits 0 when the batch is usable and 2 when it is not. A batch fails\n" +
				"when nothing parses or the malformed-record ratio exceeds the\n" +
				"threshold.",
			Sections: []Section{
				{Title: "THRESHOLD", Items: []string{
					"default ratio: 0.02 (2 percent malformed)",
					"config key: gate.max_malformed_ratio",
					"environment override: DOCKET_GATE_MAX_RATIO",
				}},
				{Title: "EXIT CODES", Items: []string{
					"0 - batch passed",
					"2 - gate failure or ingest error",
				}},
			},
			Examples: []string{
				"docket-scan -input nightly/*.jsonl -gate",
				"DOCKET_GATE_MAX_RATIO=0.05 docket-scan -input nightly/ -gate -quiet",
			},
		},
	}
}
