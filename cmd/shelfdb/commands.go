package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanonone/shelfdb/internal/bookstore"
)

var (
	configPath string
	seedPath   string
	page       int

	explainField string
	explainValue string

	rootCmd = &cobra.Command{
		Use:   "shelfdb",
		Short: "An in-process document query and aggregation engine",
		Long: `ShelfDB keeps a collection of JSON-like documents in memory and
answers filter, sort, pagination and aggregation queries over it.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Seed the books collection and run the bookstore queries",
		RunE:  runBookstore,
	}

	explainCmd = &cobra.Command{
		Use:   "explain",
		Short: "Show the query plan for an equality query with and without an index",
		RunE:  runExplain,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "path to a YAML seed file (default: embedded books)")

	runCmd.Flags().IntVar(&page, "page", 0, "page to print in the pagination step (default: from config)")

	explainCmd.Flags().StringVar(&explainField, "field", "title", "field to query")
	explainCmd.Flags().StringVar(&explainValue, "value", "Wuthering Heights", "value the field must equal")

	rootCmd.AddCommand(runCmd, explainCmd)
}

// newRunner loads config, applies flag overrides and seeds the collection.
func newRunner() (*bookstore.Runner, error) {
	cfg, err := bookstore.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if seedPath != "" {
		cfg.SeedPath = seedPath
	}
	if page > 0 {
		cfg.Page = page
	}
	return bookstore.NewRunner(cfg, os.Stdout, cfg.NewLogger(os.Stderr))
}

func runBookstore(cmd *cobra.Command, args []string) error {
	r, err := newRunner()
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Run(cmd.Context())
}

func runExplain(cmd *cobra.Command, args []string) error {
	r, err := newRunner()
	if err != nil {
		return err
	}
	defer r.Close()

	before, after, err := r.ExplainEquality(explainField, explainValue)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s = %q\n", explainField, explainValue)
	fmt.Fprintf(out, "  without index: index_used=%t docs_examined=%d docs_returned=%d duration=%s\n",
		before.IndexUsed, before.DocsExamined, before.DocsReturned, before.Duration)
	fmt.Fprintf(out, "  with index:    index_used=%t index=%s keys_examined=%d docs_examined=%d docs_returned=%d duration=%s\n",
		after.IndexUsed, after.IndexName, after.KeysExamined, after.DocsExamined, after.DocsReturned, after.Duration)
	return nil
}
