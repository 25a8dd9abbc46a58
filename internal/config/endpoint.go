package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FallbackEndpoint is used when neither a runtime override nor a build-time
// default is present.
const FallbackEndpoint = "https://autismind-ai.onrender.com"

// BuildEndpoint is the build-time default, set with
// -ldflags "-X github.com/okian/neurolens/internal/config.BuildEndpoint=http://host:8000".
var BuildEndpoint = "" //nolint:gochecknoglobals // populated by the linker

// Endpoints holds every analysis-service URL derived from one base.
type Endpoints struct {
	Base          string
	AnalyzeSocket string
	AudioSocket   string
	Batch         string
}

// ResolveEndpoint picks the analysis base URL:
// runtime override > build-time default > hard-coded fallback.
func ResolveEndpoint(override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if v := strings.TrimSpace(BuildEndpoint); v != "" {
		return v
	}
	return FallbackEndpoint
}

// EndpointsFor derives the socket and batch URLs from an http(s) base.
func EndpointsFor(base string) (Endpoints, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	u, err := url.Parse(base)
	if err != nil {
		return Endpoints{}, fmt.Errorf("%w: analysis endpoint %q: %w", ErrInvalidConfig, base, err)
	}
	var wsScheme string
	switch u.Scheme {
	case "http":
		wsScheme = "ws"
	case "https":
		wsScheme = "wss"
	default:
		return Endpoints{}, fmt.Errorf("%w: analysis endpoint %q must be http or https", ErrInvalidConfig, base)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("%w: analysis endpoint %q has no host", ErrInvalidConfig, base)
	}
	socketBase := wsScheme + strings.TrimPrefix(base, u.Scheme)
	return Endpoints{
		Base:          base,
		AnalyzeSocket: socketBase + "/ws/analyze",
		AudioSocket:   socketBase + "/ws/audio",
		Batch:         base + "/api/analyze",
	}, nil
}
