package buildinfo

import "fmt"

var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/darmiel/idgate",
		Service:    "idgate",
		Version:    Version,
		CommitHash: CommitHash,
	}
}

// UserAgent is sent on outbound calls so upstream logs can be correlated.
func UserAgent(correlationID string) string {
	if correlationID == "" {
		return fmt.Sprintf("idgate/%s", Version)
	}
	return fmt.Sprintf("idgate/%s (correlation_id=%s)", Version, correlationID)
}
