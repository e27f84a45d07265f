// Package drive uploads and downloads backup workbooks from a Google Drive
// style file API using a bearer credential.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/logging"
	"golang.org/x/oauth2"
)

const (
	DefaultAPIURL    = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
	DefaultTimeout   = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for the error.
	maxErrorBody = 4 << 10
)

var (
	// ErrCredentialExpired means the bearer credential is missing, expired or
	// was rejected. The caller must obtain a new one.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrFileNotFound means the remote file id no longer exists.
	ErrFileNotFound = errors.New("remote file not found")
)

// StatusError is a non-2xx response other than 401 and 404.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("drive %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Metadata describes a new remote file.
type Metadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// Config holds endpoints and timeouts. Zero values use the defaults.
type Config struct {
	APIURL    string
	UploadURL string
	Timeout   time.Duration
}

// Client talks to the file API. Every request carries a bearer token from
// the configured token source.
type Client struct {
	apiURL    string
	uploadURL string
	http      *http.Client
}

// New creates a Client authenticating with src.
func New(cfg Config, src oauth2.TokenSource) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &Client{
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		uploadURL: strings.TrimRight(cfg.UploadURL, "/"),
		http:      oauth2.NewClient(ctx, src),
	}
}

// UploadNew creates a file and returns its id.
func (c *Client) UploadNew(ctx context.Context, data []byte, meta Metadata) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return "", fmt.Errorf("drive upload: encode metadata: %w", err)
	}

	mediaType := meta.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaType}})
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if _, err := mediaPart.Write(data); err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}

	endpoint := c.uploadURL + "/files?uploadType=multipart&fields=id"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.do(req, "upload")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("drive upload: decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("drive upload: response missing file id")
	}

	logging.FromContext(ctx).Debug("drive file created", "file_id", created.ID, "name", meta.Name, "bytes", len(data))
	return created.ID, nil
}

// UploadUpdate replaces the content of an existing file.
func (c *Client) UploadUpdate(ctx context.Context, fileID string, data []byte) error {
	endpoint := c.uploadURL + "/files/" + url.PathEscape(fileID) + "?uploadType=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("drive update: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(req, "update")
	if err != nil {
		return err
	}
	resp.Body.Close()

	logging.FromContext(ctx).Debug("drive file updated", "file_id", fileID, "bytes", len(data))
	return nil
}

// Download returns the content of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	endpoint := c.apiURL + "/files/" + url.PathEscape(fileID) + "?alt=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("drive download: %w", err)
	}

	resp, err := c.do(req, "download")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive download: read body: %w", err)
	}
	return data, nil
}

// do sends req and maps failures onto the package errors. The caller closes
// the body of a successful response.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, ErrCredentialExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, fmt.Errorf("drive %s: %w", op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrCredentialExpired
	case http.StatusNotFound:
		return nil, fmt.Errorf("drive %s: %w", op, ErrFileNotFound)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
