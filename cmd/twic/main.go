// Package main provides the twic CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orneryd/twic/pkg/config"
	"github.com/orneryd/twic/pkg/embed"
	"github.com/orneryd/twic/pkg/engine"
)

var (
	version = "0.2.1"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "twic",
		Short: "twic - multilingual concept classification and taxonomy search",
		Long: `twic classifies free text against a multilingual concept taxonomy,
combining dense retrieval, BM25 lexical search, and a linear classifier
behind a single fusion score.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadFromEnv()
			fmt.Printf("twic v%s (%s)\n", version, commit)
			fmt.Printf("%s %s\n", cfg.APIName, cfg.APIVersion)
			if cfg.GitSHA != "" {
				fmt.Printf("git_sha: %s\n", cfg.GitSHA)
			}
			if cfg.BuildDate != "" {
				fmt.Printf("build_date: %s\n", cfg.BuildDate)
			}
		},
	})

	classifyCmd := &cobra.Command{
		Use:   "classify [query]",
		Short: "Classify a free-text query against the taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}
	classifyCmd.Flags().String("lang", "", "query language (defaults to default_lang)")
	classifyCmd.Flags().Int("top-k", -1, "number of alternatives to return (0 is a literal request for none; unset defaults to 5)")
	rootCmd.AddCommand(classifyCmd)

	searchCmd := &cobra.Command{
		Use:   "taxo-search [query]",
		Short: "Heuristic ranked search over the taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaxoSearch,
	}
	searchCmd.Flags().String("lang", "", "search language (defaults to default_lang)")
	searchCmd.Flags().Int("limit", 0, "max results (defaults to taxo_top_k)")
	rootCmd.AddCommand(searchCmd)

	autocompleteCmd := &cobra.Command{
		Use:   "taxo-autocomplete [prefix]",
		Short: "Prefix autocomplete over taxonomy labels",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaxoAutocomplete,
	}
	autocompleteCmd.Flags().String("lang", "", "autocomplete language (defaults to default_lang)")
	autocompleteCmd.Flags().Int("limit", 0, "max suggestions (defaults to taxo_top_k)")
	rootCmd.AddCommand(autocompleteCmd)

	conceptCmd := &cobra.Command{
		Use:   "taxo-concept [id]",
		Short: "Fetch a single concept's full detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaxoConcept,
	}
	rootCmd.AddCommand(conceptCmd)

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reset and rebuild the taxonomy/dense/BM25 indices",
		RunE:  runReload,
	}
	reloadCmd.Flags().String("lang", "", "only rebuild this language's BM25 index (default: all)")
	rootCmd.AddCommand(reloadCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine wires the shared engine instance every subcommand uses: load
// config from the environment, resolve the configured embeddings backend
// (downgrading to the placeholder on failure, same as a server process
// would), and construct the Engine. Nothing is read from disk yet — each
// subcommand's operation triggers its own lazy load.
func buildEngine() (*engine.Engine, error) {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedCfg := embed.DefaultConfig()
	if cfg.EmbeddingsBackend == "st" {
		embedCfg = embed.DefaultModelConfig()
		embedCfg.Model = cfg.EmbeddingsModel
	}
	embedder, downgraded, err := embed.New(embedCfg)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if downgraded {
		fmt.Fprintf(os.Stderr, "embeddings: %q backend unavailable, downgraded to placeholder\n", cfg.EmbeddingsBackend)
	}

	return engine.New(cfg, embedder), nil
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	topK, _ := cmd.Flags().GetInt("top-k")

	result, err := e.Classify(args[0], lang, topK)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runTaxoSearch(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	limit, _ := cmd.Flags().GetInt("limit")

	hits, err := e.TaxoSearch(args[0], lang, limit)
	if err != nil {
		return err
	}
	return printJSON(hits)
}

func runTaxoAutocomplete(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	limit, _ := cmd.Flags().GetInt("limit")

	hits, err := e.TaxoAutocomplete(args[0], lang, limit)
	if err != nil {
		return err
	}
	return printJSON(hits)
}

func runTaxoConcept(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	concept, err := e.TaxoConcept(args[0])
	if err != nil {
		return err
	}
	return printJSON(concept)
}

func runReload(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	return printJSON(e.Reload(lang))
}
