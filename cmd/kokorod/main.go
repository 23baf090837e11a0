// Kokorod is a text-to-speech daemon serving Kokoro voices over HTTP, backed
// by per-language pools of loaded synthesis pipelines.
//
// Usage:
//
//	kokorod serve --config /etc/kokorod/kokorod.yaml
//	kokorod voices --lang h
//	kokorod synth --text "namaste duniya" --out hello.wav
//	kokorod status
package main

import (
	"os"

	"github.com/andrei-cloud/kokorod/cmd/kokorod/cmd"
	_ "github.com/andrei-cloud/kokorod/docs"
)

// @title           kokorod API
// @version         1.0
// @description     HTTP text-to-speech service backed by a pool of Kokoro pipelines.
// @BasePath        /

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
