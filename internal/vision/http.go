package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	// DefaultHTTPTimeout bounds a single detection request.
	DefaultHTTPTimeout = 10 * time.Second
	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 1 << 10
)

var errEndpointRequired = errors.New("detector endpoint is required")

// HTTPDetector is a LabelDetector backed by a label detection web service.
//
// Each request is a POST of the JPEG bytes with Content-Type image/jpeg and
// the query parameters max_labels and min_confidence. The service answers
// with {"labels":[{"name":"Cat","confidence":97.5}]}.
type HTTPDetector struct {
	endpoint *url.URL
	client   *http.Client
}

// HTTPOption configures an HTTPDetector.
type HTTPOption func(*HTTPDetector)

// WithTimeout bounds every request. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(d *HTTPDetector) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to add a transport.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDetector) {
		if client != nil {
			d.client = client
		}
	}
}

// NewHTTPDetector creates a detector posting images to endpoint.
func NewHTTPDetector(endpoint string, opts ...HTTPOption) (*HTTPDetector, error) {
	if endpoint == "" {
		return nil, errEndpointRequired
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse detector endpoint: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("detector endpoint %q: scheme must be http or https", endpoint)
	}

	d := &HTTPDetector{
		endpoint: u,
		client:   &http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

type detectResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float32 `json:"confidence"`
	} `json:"labels"`
}

// DetectLabels posts the image and returns the labels at or above minConfidence.
func (d *HTTPDetector) DetectLabels(
	ctx context.Context,
	jpegImage []byte,
	maxLabels int,
	minConfidence float32,
) ([]Label, error) {
	u := *d.endpoint
	q := u.Query()
	q.Set("max_labels", strconv.Itoa(maxLabels))
	q.Set("min_confidence", strconv.FormatFloat(float64(minConfidence), 'f', -1, 32))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(jpegImage))
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}

	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("detector error %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded detectResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	labels := make([]Label, 0, len(decoded.Labels))

	for _, l := range decoded.Labels {
		if l.Confidence < minConfidence {
			continue
		}

		labels = append(labels, Label{Name: l.Name, Confidence: l.Confidence})

		if maxLabels > 0 && len(labels) == maxLabels {
			break
		}
	}

	return labels, nil
}
