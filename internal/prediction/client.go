package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	platformhttp "github.com/Alias1177/TokenPredictor/internal/platform/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultSignature is the serving signature used when none is configured
const DefaultSignature = "serving_default"

type requestIDKey struct{}

// WithRequestID tags ctx so client logs can be correlated with a dispatch
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client queries the remote model
type Client struct {
	endpoint string
	http     *platformhttp.Client
	logger   zerolog.Logger
}

// NewClient creates a prediction client for endpoint. Retries are logged
// through the component logger.
func NewClient(endpoint string, opts platformhttp.ClientOptions) *Client {
	c := &Client{
		endpoint: endpoint,
		logger:   log.With().Str("component", "prediction_client").Logger(),
	}
	if opts.OnRetry == nil {
		opts.OnRetry = func(err error, wait time.Duration) {
			c.logger.Warn().Err(err).Dur("backoff", wait).Msg("Prediction attempt failed, retrying")
		}
	}
	c.http = platformhttp.NewClient(opts)
	return c
}

// Predict sends req and returns the last predicted value
func (c *Client) Predict(ctx context.Context, req Request) (float64, error) {
	if req.SignatureName == "" {
		req.SignatureName = DefaultSignature
	}
	body, err := json.Marshal(payload{
		SignatureName: req.SignatureName,
		Instances:     req.Instances(),
	})
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	logger := c.logger.With().
		Str("request_id", RequestID(ctx)).
		Ints("instances", req.Instances()).
		Logger()
	logger.Debug().RawJSON("body", body).Msg("Requesting prediction")

	newReq := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	}

	resp, attempts, err := c.http.Do(ctx, newReq)
	if err != nil {
		perr := classify(err, attempts)
		logger.Error().Err(err).
			Str("kind", perr.Kind.String()).
			Int("attempts", attempts).
			Str("detail", perr.Detail).
			Msg("Prediction request failed")
		return 0, perr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// the body broke mid-read; treat like a transport failure
		return 0, &Error{Kind: Unreachable, Attempts: attempts, Err: fmt.Errorf("reading response body: %w", err)}
	}

	value, err := lastPrediction(raw)
	if err != nil {
		logger.Error().Err(err).Str("response", truncate(string(raw), 512)).Msg("Unusable prediction response")
		return 0, &Error{Kind: EmptyResult, Attempts: attempts, Err: err}
	}

	logger.Info().Int("attempts", attempts).Float64("prediction", value).Msg("Prediction received")
	return value, nil
}

func classify(err error, attempts int) *Error {
	var statusErr *platformhttp.HTTPStatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return &Error{
			Kind:     Rejected,
			Status:   statusErr.StatusCode,
			Detail:   strings.TrimSpace(statusErr.Body),
			Attempts: attempts,
			Err:      err,
		}
	}
	perr := &Error{Kind: Unreachable, Attempts: attempts, Err: err}
	if errors.As(err, &statusErr) {
		perr.Status = statusErr.StatusCode
	}
	return perr
}

var errNoPredictions = errors.New("response has no predictions")

// lastPrediction extracts the final number of the predictions array.
// Models exported with a trailing output dimension answer [[v1],[v2]], so
// nested arrays are followed down their last element.
func lastPrediction(raw []byte) (float64, error) {
	var body struct {
		Predictions json.RawMessage `json:"predictions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}
	preds := bytes.TrimSpace(body.Predictions)
	if len(preds) == 0 || bytes.Equal(preds, []byte("null")) {
		return 0, errNoPredictions
	}
	if preds[0] != '[' {
		return 0, errors.New("predictions is not an array")
	}
	return lastNumber(preds)
}

func lastNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errNoPredictions
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return 0, fmt.Errorf("predictions: %w", err)
		}
		if len(items) == 0 {
			return 0, errNoPredictions
		}
		return lastNumber(items[len(items)-1])
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("prediction is not a number: %s", truncate(string(raw), 64))
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
