package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/latticeforge/gridlex/internal/gridserver"
	"github.com/latticeforge/gridlex/internal/indexstore"
	"github.com/latticeforge/gridlex/internal/obslog"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

var (
	compileSchemaPath string
	compileVocabPath  string
	compileStoreDSN   string
	compileStoreKind  string
)

func init() {
	compileCmd.Flags().StringVar(&compileSchemaPath, "schema", "", "Path to a JSON Schema file (required)")
	compileCmd.Flags().StringVar(&compileVocabPath, "vocab", "", "Path to a vocabulary JSON file (required)")
	compileCmd.Flags().StringVar(&compileStoreKind, "store", "", "Persist the built Index: sqlite or postgres (default: none)")
	compileCmd.Flags().StringVar(&compileStoreDSN, "dsn", "", "Data source name for --store")
	compileCmd.MarkFlagRequired("schema")
	compileCmd.MarkFlagRequired("vocab")
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a JSON Schema and vocabulary into a token-aware Index",
	Long:  "Compile a JSON Schema into a regex, a DFA, and a token-aware Index, optionally caching the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		successColor := color.New(color.FgGreen, color.Bold)
		infoColor := color.New(color.FgCyan)

		schemaBytes, err := os.ReadFile(compileSchemaPath)
		if err != nil {
			return fmt.Errorf("reading schema file: %w", err)
		}

		vocabBytes, err := os.ReadFile(compileVocabPath)
		if err != nil {
			return fmt.Errorf("reading vocabulary file: %w", err)
		}
		var vocabFile struct {
			EOSTokenID vocabulary.TokenID      `json:"eos_token_id"`
			Tokens     []gridserver.VocabEntry `json:"tokens"`
		}
		if err := json.Unmarshal(vocabBytes, &vocabFile); err != nil {
			return fmt.Errorf("parsing vocabulary file: %w", err)
		}

		req := gridserver.CompileRequest{
			Schema:     schemaBytes,
			Vocabulary: vocabFile.Tokens,
			EOSTokenID: vocabFile.EOSTokenID,
		}

		store, err := openStore(compileStoreKind, compileStoreDSN)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		infoColor.Println("Compiling schema to regex, DFA, and token-aware Index...")
		log := obslog.New(obslog.Options{Level: "info"})
		defer log.Sync()
		registry := gridserver.NewGrammarRegistry(store, obslog.Named(log, "gridserver.compile"))
		grammarID, idx, err := registry.Compile(req)
		if err != nil {
			return fmt.Errorf("compiling grammar: %w", err)
		}

		successColor.Printf("\n✓ Compiled grammar %s\n\n", grammarID)
		fmt.Printf("  States reachable:  %d\n", len(idx.TransitionsView()))
		fmt.Printf("  Accepting states:  %d\n", len(idx.FinalStates()))
		if store != nil {
			fmt.Printf("  Persisted via:     %s\n", compileStoreKind)
		}
		return nil
	},
}

func openStore(kind, dsn string) (indexstore.Store, error) {
	switch kind {
	case "":
		return nil, nil
	case "sqlite":
		return indexstore.NewSQLiteStore(dsn)
	case "postgres":
		return indexstore.NewPQStore(dsn)
	default:
		return nil, fmt.Errorf("unknown --store kind %q (want sqlite or postgres)", kind)
	}
}
