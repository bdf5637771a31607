package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"punchsync/internal/components/chrono"
	"punchsync/internal/deliver"
	"punchsync/internal/page"
	"punchsync/internal/punch"
	"punchsync/internal/tracker"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	extractFormat string
	extractUrl    string
)

func init() {
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "table", "Output format: table, json or yaml.")
	extractCmd.Flags().StringVar(&extractUrl, "url", "", "The url of a saved page, when the page does not name its own.")
	rootCmd.AddCommand(extractCmd)
}

type extractResult struct {
	Url        string   `json:"url" yaml:"url"`
	Title      string   `json:"title" yaml:"title"`
	Strategies []string `json:"strategies" yaml:"strategies"`
	Intent     string   `json:"intent" yaml:"intent"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	PunchIn    string   `json:"punch_in" yaml:"punch_in"`
	PunchOut   string   `json:"punch_out" yaml:"punch_out"`
	Worked     string   `json:"worked" yaml:"worked"`
	Query      string   `json:"query" yaml:"query"`
}

func newExtractResult(snapshot page.Snapshot, strategies []string, intent punch.Intent, legacy bool) extractResult {
	result := extractResult{
		Url:        snapshot.Context.URL,
		Title:      snapshot.Context.Title,
		Strategies: strategies,
		Intent:     intent.Kind.String(),
		PunchIn:    intent.State.In,
		PunchOut:   intent.State.Out,
		Worked:     intent.State.Worked,
		Query:      deliver.EncodeQuery(intent, legacy),
	}
	if intent.Kind == punch.KindLoggedInNoData {
		result.Reason = intent.Reason.String()
	}
	return result
}

func writeExtractResult(out io.Writer, format string, result extractResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(result)
	case "table":
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"field", "value"})
		t.AppendRows([]table.Row{
			{"url", result.Url},
			{"title", result.Title},
			{"strategies", strings.Join(result.Strategies, ", ")},
			{"intent", result.Intent},
			{"reason", result.Reason},
			{"punch in", result.PunchIn},
			{"punch out", result.PunchOut},
			{"worked", result.Worked},
			{"query", result.Query},
		})
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table, json or yaml)", format)
	}
}

func snapshotOf(cmd *cobra.Command, target string) (page.Snapshot, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		source, err := page.NewHTTPSource(page.HTTPOptions{
			Url:              target,
			Cookie:           cfg.Page.Cookie,
			Headers:          cfg.Page.Headers,
			CloudflareBypass: cfg.Page.CloudflareBypass,
			Dump:             dump,
		})
		if err != nil {
			return page.Snapshot{}, err
		}
		defer source.Close()
		return source.Snapshot(cmd.Context())
	}

	body, err := os.ReadFile(target)
	if err != nil {
		return page.Snapshot{}, err
	}
	snapshot, err := page.Parse(body, "")
	if err != nil {
		return page.Snapshot{}, err
	}
	if snapshot.Context.URL == "" {
		snapshot.Context.URL = extractUrl
	}
	return snapshot, nil
}

var extractCmd = &cobra.Command{
	Use:   "extract <file|url> [--format table|json|yaml]",
	Short: "Extracts and classifies the punch state of a single page, nothing is delivered.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := snapshotOf(cmd, args[0])
		if err != nil {
			return err
		}

		extractor := cfg.newExtractor(tel)
		state, found := extractor.Extract(cmd.Context(), snapshot.Doc)
		intent := tracker.Classify(state, found, snapshot.Context)
		if intent.HasData() {
			intent.Date = chrono.Today(chrono.NewStandardTime())
		}

		result := newExtractResult(snapshot, extractor.Strategies(), intent, cfg.Receiver.LegacyQuery)
		return writeExtractResult(cmd.OutOrStdout(), extractFormat, result)
	},
}
