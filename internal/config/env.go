// Package config provides environment helpers for go-blindaid commands.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Default locations.
const (
	DefaultSettingsPath = "ui_config.json"
	DefaultEnvFile      = ".env"
)

// LoadEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set are left alone and missing files are
// ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// SettingsPath returns the settings file path from BLINDAID_SETTINGS.
// Falls back to ui_config.json, the file the dashboard writes.
func SettingsPath() string {
	if p := os.Getenv("BLINDAID_SETTINGS"); p != "" {
		return p
	}
	return DefaultSettingsPath
}

// GoogleAPIKey returns GOOGLE_API_KEY, used for Speech-to-Text and
// Text-to-Speech when no service account is configured.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

// GoogleCredentialsFile returns GOOGLE_APPLICATION_CREDENTIALS.
func GoogleCredentialsFile() string {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
}

// OpenAIKey returns OPENAI_API_KEY for the OpenAI TTS fallback.
func OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// HasGoogleCredentials reports whether either an API key or application
// default credentials are available.
func HasGoogleCredentials() bool {
	return GoogleAPIKey() != "" || GoogleCredentialsFile() != ""
}
