// Package license verifies license keys against the remote licensing API.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// User-facing failure messages. Verification failures are returned as data,
// never as errors, so the caller always has a message to show.
const (
	MsgInvalidKey      = "invalid license key"
	MsgCouldNotConnect = "could not connect to license server"
)

// Result is the outcome of a verification attempt.
type Result struct {
	Valid bool   `json:"valid"`
	Tier  string `json:"tier,omitempty"`
	Error string `json:"error,omitempty"`
}

// verifyRequest is the wire format sent to the verification endpoint.
type verifyRequest struct {
	LicenseKey string `json:"license_key"`
}

// verifyResponse is the wire format returned by the verification endpoint.
type verifyResponse struct {
	Valid   bool   `json:"valid"`
	Tier    string `json:"tier,omitempty"`
	Message string `json:"message,omitempty"`
}

// Verifier checks license keys against a fixed verification endpoint.
type Verifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewVerifier creates a verifier for the given endpoint.
func NewVerifier(endpoint string, timeout time.Duration, logger *slog.Logger) *Verifier {
	return &Verifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "license.verifier")),
	}
}

// Verify sends the key to the verification endpoint and interprets the
// response. It never returns a Go error: transport and parse failures are
// folded into Result.Error so the boundary always receives a result object.
// Key format is not re-validated here; the boundary enforces non-blank input.
func (v *Verifier) Verify(ctx context.Context, key string) Result {
	body, err := json.Marshal(verifyRequest{LicenseKey: key})
	if err != nil {
		v.logger.ErrorContext(ctx, "failed to encode verification request",
			slog.String("error", err.Error()))
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.WarnContext(ctx, "license verification request failed",
			slog.String("key_prefix", maskKey(key)),
			slog.String("error", err.Error()))
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.WarnContext(ctx, "license server returned unexpected status",
			slog.Int("status", resp.StatusCode))
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}

	var parsed verifyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		v.logger.WarnContext(ctx, "failed to parse license server response",
			slog.String("error", err.Error()))
		return Result{Valid: false, Error: MsgCouldNotConnect}
	}

	if !parsed.Valid {
		message := parsed.Message
		if message == "" {
			message = MsgInvalidKey
		}
		v.logger.InfoContext(ctx, "license key rejected",
			slog.String("key_prefix", maskKey(key)),
			slog.String("message", message))
		return Result{Valid: false, Error: message}
	}

	v.logger.InfoContext(ctx, "license key verified",
		slog.String("key_prefix", maskKey(key)),
		slog.String("tier", parsed.Tier))

	return Result{Valid: true, Tier: parsed.Tier}
}

// maskKey masks a license key for logging.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
