// Package gcloud builds client options for the Google Cloud REST APIs used
// for speech recognition and synthesis.
package gcloud

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// CloudPlatformScope grants access to Speech-to-Text and Text-to-Speech.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ClientOptions returns an API-key option when apiKey is set, otherwise a
// token source from application default credentials.
func ClientOptions(ctx context.Context, apiKey string) ([]option.ClientOption, error) {
	if apiKey != "" {
		return []option.ClientOption{option.WithAPIKey(apiKey)}, nil
	}

	ts, err := google.DefaultTokenSource(ctx, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("default credentials: %w", err)
	}
	return []option.ClientOption{option.WithTokenSource(ts)}, nil
}
