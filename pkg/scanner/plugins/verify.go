package plugins

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/CompassSecurity/codeleak/pkg/httpclient"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/hashicorp/go-retryablehttp"
)

// BasicAuthVerifier checks a basic-auth candidate by issuing a request
// against the URL it was embedded in. It only ever runs when the engine has
// verification enabled; any failure is reported as an error for the caller
// to downgrade to Unverified.
type BasicAuthVerifier struct {
	client *retryablehttp.Client
}

// NewBasicAuthVerifier builds a verifier with its own time-bounded client.
func NewBasicAuthVerifier(timeout time.Duration) *BasicAuthVerifier {
	return &BasicAuthVerifier{client: httpclient.NewVerificationClient(timeout)}
}

var basicAuthURL = regexp.MustCompile(`\bhttps?://[^\s:@]+:[^\s:@]+@[^\s"']+`)

func (v *BasicAuthVerifier) Verify(ctx context.Context, secret string, snippet *types.CodeSnippet) (types.VerifiedResult, error) {
	if snippet == nil {
		// Ad-hoc string scans carry no context to extract a URL from.
		return types.Unverified, nil
	}

	target := basicAuthURL.FindString(snippet.TargetLine())
	if target == "" {
		return types.Unverified, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return types.Unverified, fmt.Errorf("building verification request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return types.Unverified, fmt.Errorf("verification request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return types.VerifiedFalse, nil
	case resp.StatusCode < 400:
		return types.VerifiedTrue, nil
	default:
		return types.Unverified, nil
	}
}
