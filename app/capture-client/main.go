// Command capture-client captures microphone (or WAV) audio, draws a circular
// spectrum in the terminal and shows a live transcript from either Cloud
// Speech streaming recognition or the relay server.
//
// Usage:
//
//	capture-client [flags]
//	capture-client devices
package main

import (
	"fmt"
	"os"

	"github.com/yoockh/voicerelay/app/capture-client/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
