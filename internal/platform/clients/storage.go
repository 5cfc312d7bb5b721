package clients

import (
	"context"
	"net/http"
	"time"
)

const (
	// uploadTimeout is generous: chat documents and status videos go up
	// in a single request.
	uploadTimeout = 120 * time.Second

	// signTimeout bounds signed URL issuance, which is metadata-only.
	signTimeout = 30 * time.Second

	// DefaultSignedURLExpiry is the expiry hint handed to callers that
	// have no stronger requirement.
	DefaultSignedURLExpiry = time.Hour
)

type UploadInput struct {
	Bucket      string `json:"bucket"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Storage uploads private media and issues time-limited signed URLs.
// Objects are addressed by the opaque path the upload returns; nothing
// under the private bucket is ever publicly reachable.
type Storage struct {
	api
}

func NewStorage(cfg Config) *Storage {
	return &Storage{api: api{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: uploadTimeout},
	}}
}

func (s *Storage) Upload(ctx context.Context, input UploadInput) (string, error) {
	var out struct {
		Data struct {
			Path string `json:"path"`
		} `json:"data"`
	}
	if err := s.do(ctx, http.MethodPost, "/internal/storage/objects", input, &out); err != nil {
		return "", err
	}
	return out.Data.Path, nil
}

func (s *Storage) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	urls, err := s.SignedURLs(ctx, []string{path}, expiry)
	if err != nil {
		return "", err
	}
	return urls[path], nil
}

func (s *Storage) SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error) {
	if len(paths) == 0 {
		return map[string]string{}, nil
	}
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}
	ctx, cancel := context.WithTimeout(ctx, signTimeout)
	defer cancel()

	body := map[string]any{
		"paths":         paths,
		"expirySeconds": int(expiry.Seconds()),
	}
	var out struct {
		Data struct {
			URLs map[string]string `json:"urls"`
		} `json:"data"`
	}
	if err := s.do(ctx, http.MethodPost, "/internal/storage/signed-urls", body, &out); err != nil {
		return nil, err
	}
	return out.Data.URLs, nil
}
