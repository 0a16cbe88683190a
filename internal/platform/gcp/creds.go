package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv builds credentials options for Cloud clients. GOOGLE_APPLICATION_CREDENTIALS_JSON
// holds inline service-account JSON; GOOGLE_APPLICATION_CREDENTIALS is either inline JSON or a file path.
// With neither set the client falls back to Application Default Credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	var opts []option.ClientOption
	switch {
	case creds == "":
	case strings.HasPrefix(creds, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	default:
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	if ep := strings.TrimSpace(os.Getenv("GCP_TTS_ENDPOINT")); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts
}
