package restyutil

import (
	"fmt"
	"mtgstats-backend/internal/components/telemetry"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	BaseUrl string
	// TracerName names the otel tracer requests are recorded under.
	TracerName string
	// RequestsPerSecond bounds the request rate of the client, 0 disables the limit.
	RequestsPerSecond float64
	Timeout           time.Duration
	// CloudflareBypass wraps the transport so html sites behind cloudflare answer.
	CloudflareBypass bool
}

// NewClient creates a resty client configured for scraping, with telemetry instrumentation.
func NewClient(opts ClientOptions, tel telemetry.API) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.CloudflareBypass {
		transport := client.GetClient().Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		client.SetTransport(cloudflarebp.AddCloudFlareByPass(transport))
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		// max burst >= rps just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, opts.TracerName, tel)
	if output := currentDumpOutput(); output != nil {
		dumpResponses(client, output)
	}
	return client
}

// StatusError is returned when a response has a non 2xx status.
type StatusError struct {
	Method string
	Url    string
	Code   int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Url, e.Code)
}

// Retryable reports whether repeating the request later may succeed.
func (e StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// CheckResponse turns an error status into a StatusError.
func CheckResponse(res *resty.Response) error {
	if res.IsError() {
		return StatusError{
			Method: res.Request.Method,
			Url:    res.Request.URL,
			Code:   res.StatusCode(),
		}
	}
	return nil
}
