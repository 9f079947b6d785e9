package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticeforge/gridlex/internal/indexstore"
)

var (
	inspectStoreKind string
	inspectStoreDSN  string
	inspectGrammarID string
)

func init() {
	inspectCmd.Flags().StringVar(&inspectStoreKind, "store", "sqlite", "Index store kind: sqlite or postgres")
	inspectCmd.Flags().StringVar(&inspectStoreDSN, "dsn", "", "Data source name for --store (required)")
	inspectCmd.Flags().StringVar(&inspectGrammarID, "grammar-id", "", "Content-hash grammar id to inspect (required)")
	inspectCmd.MarkFlagRequired("dsn")
	inspectCmd.MarkFlagRequired("grammar-id")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a stored Index's transition table",
	Long:  "Load a previously compiled Index from an indexstore backend and print its transitions_view as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(inspectStoreKind, inspectStoreDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		idx, err := store.Get(inspectGrammarID)
		if err != nil {
			if indexstore.IsNotFound(err) {
				return fmt.Errorf("no Index stored under grammar id %q", inspectGrammarID)
			}
			return fmt.Errorf("loading index: %w", err)
		}

		out := struct {
			Initial         int64                     `json:"initial_state"`
			EOSTokenID      int64                     `json:"eos_token_id"`
			FinalStates     []int32                   `json:"final_states"`
			TransitionsView map[int32]map[int64]int32 `json:"transitions_view"`
		}{
			Initial:    int64(idx.InitialState()),
			EOSTokenID: int64(idx.EOSTokenID()),
		}
		for _, s := range idx.FinalStates() {
			out.FinalStates = append(out.FinalStates, int32(s))
		}
		out.TransitionsView = make(map[int32]map[int64]int32, len(idx.TransitionsView()))
		for state, row := range idx.TransitionsView() {
			converted := make(map[int64]int32, len(row))
			for tok, next := range row {
				converted[int64(tok)] = int32(next)
			}
			out.TransitionsView[int32(state)] = converted
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	},
}
