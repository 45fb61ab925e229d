// Command blindaid announces nearby obstacles seen by a webcam.
//
// Usage:
//
//	blindaid run [--settings ui_config.json] [--debug]
//	blindaid dashboard [--port 8181]
//	blindaid calibration show|reset [--file calibration.json]
//
// Credentials are read from the environment or a .env file:
// GOOGLE_API_KEY or GOOGLE_APPLICATION_CREDENTIALS for speech recognition
// and synthesis, OPENAI_API_KEY for the OpenAI voice fallback.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
