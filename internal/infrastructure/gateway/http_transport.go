package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sealed-auction/internal/domain"
	"sealed-auction/pkg/logger"
)

// HTTPTransport forwards verification requests to the external gateway over
// HTTP. The gateway answers out of band by calling the engine's callback
// endpoints; this transport only has to hand the request off.
type HTTPTransport struct {
	client *http.Client
	url    string
	log    logger.Logger
}

func NewHTTPTransport(url string, timeout time.Duration, log logger.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		url:    url,
		log:    log,
	}
}

func (t *HTTPTransport) Submit(ctx context.Context, req *domain.VerificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to submit verification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("verification gateway returned status %d", resp.StatusCode)
	}

	t.log.Info("Verification request submitted",
		"correlation_id", req.CorrelationID, "submitter", req.SubmitterID)
	return nil
}
