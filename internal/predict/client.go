package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Client talks to the running API over HTTP with retries, exponential
// backoff and a circuit breaker, so a flapping server does not hammer the
// stores through repeated batch runs.
type Client struct {
	baseURL string
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client against the given API base URL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rain-prediction-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
	}
}

// LatestObservation fetches every observation from the document-store
// endpoint and returns the most recent one by date.
func (c *Client) LatestObservation(ctx context.Context) (weather.Observation, error) {
	var payload struct {
		Message string                `json:"message"`
		Data    []weather.Observation `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/mongo/observations", nil, &payload); err != nil {
		return weather.Observation{}, err
	}
	if len(payload.Data) == 0 {
		return weather.Observation{}, errors.New("no observations found")
	}

	latest := payload.Data[0]
	for _, obs := range payload.Data[1:] {
		if obs.Date.After(latest.Date.Time) {
			latest = obs
		}
	}
	return latest, nil
}

// PostPrediction records a prediction for the given observation through the
// document-store endpoint.
func (c *Client) PostPrediction(ctx context.Context, observationID int, willItRain bool) (weather.Prediction, error) {
	body := map[string]any{
		"observation_id": observationID,
		"will_it_rain":   willItRain,
	}
	var payload struct {
		Message string             `json:"message"`
		Data    weather.Prediction `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/mongo/predictions", body, &payload); err != nil {
		return weather.Prediction{}, err
	}
	return payload.Data, nil
}

// do executes one API call with retries, exponential backoff and the circuit
// breaker, decoding the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			req, err := c.buildRequest(ctx, method, path, body)
			if err != nil {
				return nil, err
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				var apiErr struct {
					Message string `json:"message"`
				}
				_ = json.NewDecoder(resp.Body).Decode(&apiErr)
				return nil, fmt.Errorf("%w: %d (%s)", errUnexpected, resp.StatusCode, apiErr.Message)
			}

			var decoded json.RawMessage
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return decoded, nil
		})

		if err == nil {
			raw, ok := result.(json.RawMessage)
			if !ok {
				return errors.New("unexpected result type from circuit breaker")
			}
			return json.Unmarshal(raw, out)
		}

		// If the circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		// Client-side errors are not retryable.
		if errors.Is(err, errUnexpected) {
			return err
		}

		lastErr = err
		attempt++
		if attempt > c.backoff.MaxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, lastErr)
		}

		interval := time.Duration(float64(c.backoff.InitialInterval) * math.Pow(2, float64(attempt-1)))
		if interval > c.backoff.MaxInterval {
			interval = c.backoff.MaxInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) buildRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
