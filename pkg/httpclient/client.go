// Package httpclient provides the retrying HTTP client used for best-effort
// secret verification calls.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// HeaderRoundTripper adds default headers when they're not present on the
// request and delegates to the next RoundTripper.
type HeaderRoundTripper struct {
	Headers map[string]string
	Next    http.RoundTripper
}

func (hrt *HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if hrt.Headers == nil || hrt.Next == nil {
		return hrt.Next.RoundTrip(req)
	}

	for k, v := range hrt.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return hrt.Next.RoundTrip(req)
}

// NewVerificationClient returns a retryablehttp client tuned for secret
// verification: short overall deadline, few retries, and no retrying on 4xx
// responses since those are the signal we're after.
func NewVerificationClient(timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 2
	client.HTTPClient.Timeout = timeout

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			log.Trace().Err(err).Msg("Retrying verification request, error occurred")
			return true, nil
		}

		if resp == nil {
			return false, nil
		}

		if resp.StatusCode == 429 || (resp.StatusCode >= 500 && resp.StatusCode != 501) {
			log.Trace().Int("statusCode", resp.StatusCode).Msg("Retrying verification request")
			return true, nil
		}

		return false, nil
	}

	client.HTTPClient.Transport = &HeaderRoundTripper{
		Headers: map[string]string{"User-Agent": "codeleak"},
		Next:    http.DefaultTransport,
	}

	return client
}
