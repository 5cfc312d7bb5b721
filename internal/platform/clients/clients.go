// Package clients holds the outbound HTTP clients for the platform
// collaborators: the user directory, the payment service, private media
// storage, push notifications and media moderation. Every request carries
// the shared service secret as a bearer token plus an X-Service-Name
// header so the collaborator can attribute the call.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnavailable marks transport failures and collaborator 5xx responses.
// The HTTP layer maps it to 502 so callers can tell an upstream outage
// from a local fault.
var ErrUnavailable = errors.New("collaborator service unavailable")

// ErrNotFound is returned when a collaborator answers 404 for a lookup.
var ErrNotFound = errors.New("collaborator resource not found")

const serviceName = "mboa"

type Config struct {
	BaseURL string
	Secret  string
}

// api is the shared request plumbing embedded by the concrete clients.
type api struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func (a api) do(ctx context.Context, method string, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.baseURL, "/")+path, payload)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.secret)
	req.Header.Set("X-Service-Name", serviceName)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s %s returned HTTP %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%s %s returned HTTP %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
