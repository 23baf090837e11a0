package cmd

import (
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/kokorod/internal/cli"
)

var voicesLang string

// voicesCmd represents the voices command.
var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voice catalog",
	Long: `List the languages and voices the service can synthesize.
With --lang, list every voice of one language with its speaker id.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if voicesLang != "" {
			return cli.PrintLanguageVoices(cmd.OutOrStdout(), voicesLang)
		}

		return cli.PrintVoices(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(voicesCmd)

	voicesCmd.Flags().StringVarP(&voicesLang, "lang", "l", "", "language code to expand")
}
