package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initSchemaPath string
	initVocabPath  string
)

func init() {
	initCmd.Flags().StringVar(&initSchemaPath, "schema", "", "Path to a JSON Schema file")
	initCmd.Flags().StringVar(&initVocabPath, "vocab", "", "Path to a vocabulary JSON file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively compile a schema and vocabulary",
	Long: `init prompts for a JSON Schema file and a vocabulary file when they are
not given as flags, then runs the same compile path as "gridlex compile".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		infoColor := color.New(color.FgCyan)

		schemaPath := initSchemaPath
		if schemaPath == "" {
			prompt := &survey.Input{Message: "Path to JSON Schema file:"}
			if err := survey.AskOne(prompt, &schemaPath, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		if err := mustExist(schemaPath); err != nil {
			return err
		}

		vocabPath := initVocabPath
		if vocabPath == "" {
			prompt := &survey.Input{Message: "Path to vocabulary JSON file:"}
			if err := survey.AskOne(prompt, &vocabPath, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		if err := mustExist(vocabPath); err != nil {
			return err
		}

		var persist bool
		if err := survey.AskOne(&survey.Confirm{
			Message: "Persist the compiled Index to a store?",
			Default: false,
		}, &persist); err != nil {
			return err
		}

		storeKind, storeDSN := "", ""
		if persist {
			if err := survey.AskOne(&survey.Select{
				Message: "Store kind:",
				Options: []string{"sqlite", "postgres"},
				Default: "sqlite",
			}, &storeKind); err != nil {
				return err
			}
			if err := survey.AskOne(&survey.Input{Message: "DSN:"}, &storeDSN, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}

		infoColor.Println("\nCompiling...")
		compileSchemaPath = schemaPath
		compileVocabPath = vocabPath
		compileStoreKind = storeKind
		compileStoreDSN = storeDSN
		return compileCmd.RunE(compileCmd, nil)
	},
}

func mustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
