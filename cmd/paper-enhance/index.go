// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-enhance/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the summary index (store, search, export)",
	Long: `Index keeps a local SQLite database of enhanced records so summaries from
many runs and languages can be searched and exported together.`,
}

// --- store subcommand ---

var indexStoreCmd = &cobra.Command{
	Use:   "store <enhanced.jsonl>...",
	Short: "Load enhanced JSONL files into the index",
	Long: `Store reads files written by paper-enhance and records every summary in
the index. The language is taken from the _AI_enhanced_<LANGUAGE> suffix.
Unchanged files are skipped on subsequent runs; a changed file replaces
the rows it contributed before.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexStore,
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	store, err := index.NewStore(indexConfig(viper.GetViper()))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), args, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed summaries",
	Long: `Search matches every query term against the title and the five summary
fields. Use --language and --id to narrow the results.`,
	RunE: runIndexSearch,
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	store, err := index.NewStore(indexConfig(viper.GetViper()))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Retrieve(cmd.Context(), queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(cmd.OutOrStdout(), results, jsonOutput)
}

func formatSearchOutput(w io.Writer, results []index.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-10s  %s\n", "Rank", "ID", "Language", "TLDR")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for i, r := range results {
		tldr := []rune(r.AI.TLDR)
		if len(tldr) > 60 {
			tldr = append(tldr[:57], []rune("...")...)
		}
		fmt.Fprintf(w, "%-4d  %-16s  %-10s  %s\n", i+1, r.ID, r.Language, string(tldr))
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed summaries to YAML, JSON or JSONL",
	Long: `Export writes the index (or a filtered subset) to stdout or --output.
The jsonl format reproduces the enhanced records exactly as written by the
pipeline.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := index.NewStore(indexConfig(viper.GetViper()))
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	opts := queryOptsFromFlags(cmd, args)
	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), w, opts)
	case "json":
		err = store.ExportJSON(cmd.Context(), w, opts)
	case "jsonl":
		err = store.ExportJSONL(cmd.Context(), w, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml, json or jsonl", format)
	}
	return err
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	language, _ := cmd.Flags().GetString("language")
	id, _ := cmd.Flags().GetString("id")
	skipDegraded, _ := cmd.Flags().GetBool("skip-degraded")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Query:        strings.Join(args, " "),
		Language:     language,
		ID:           id,
		SkipDegraded: skipDegraded,
		MaxResults:   limit,
	}
}

func init() {
	indexCmd.PersistentFlags().String("db", "", "index database path (default: index/papers.db)")
	indexCmd.PersistentFlags().Int("max-results", 0, "default maximum number of search results")
	viper.BindPFlag(keyIndexDB, indexCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag(keyIndexMaxResults, indexCmd.PersistentFlags().Lookup("max-results"))

	for _, c := range []*cobra.Command{indexSearchCmd, indexExportCmd} {
		c.Flags().String("language", "", "filter by summary language")
		c.Flags().String("id", "", "filter by record id")
		c.Flags().Bool("skip-degraded", false, "leave out records with the Error placeholder")
	}
	indexSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexSearchCmd.Flags().Bool("json", false, "output results as JSON")

	indexExportCmd.Flags().String("format", "yaml", "export format: yaml, json or jsonl")
	indexExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexExportCmd)

	rootCmd.AddCommand(indexCmd)
}
