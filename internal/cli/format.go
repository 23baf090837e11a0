// Package cli contains rendering helpers for the kokorod command line.
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/andrei-cloud/kokorod/internal/voices"
)

// PrintVoices writes a per-language summary of the voice catalog.
func PrintVoices(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Code\tLanguage\tVoices\tDefault")
	fmt.Fprintln(tw, "----\t--------\t------\t-------")

	for _, code := range voices.Languages() {
		vs, err := voices.VoicesFor(code)
		if err != nil {
			return err
		}
		def, err := voices.Default(code)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			code, voices.LanguageName(code), len(vs), def.Name)
	}

	return tw.Flush()
}

// PrintLanguageVoices lists every voice of one language with its speaker id.
func PrintLanguageVoices(w io.Writer, lang string) error {
	vs, err := voices.VoicesFor(lang)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%s)\n", voices.LanguageName(lang), lang)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Voice\tSpeaker")
	fmt.Fprintln(tw, "-----\t-------")
	for _, v := range vs {
		fmt.Fprintf(tw, "%s\t%d\n", v.Name, v.Speaker)
	}

	return tw.Flush()
}
