package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// httpTimeout caps a single REST round trip
const httpTimeout = 2 * time.Minute

// defaultHTTPClient returns an OAuth2 client for Google Cloud, using the
// given service account file or application default credentials
func defaultHTTPClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	var (
		creds *google.Credentials
		err   error
	)

	if credentialsFile == "" {
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
	} else {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = httpTimeout
	return client, nil
}
