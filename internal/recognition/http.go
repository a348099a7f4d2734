package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// HTTPRecognizer posts the snapshot to an external ANPR service as
// multipart/form-data and expects {"plate": "..."} back.
type HTTPRecognizer struct {
	url    string
	client *http.Client
}

func NewHTTPRecognizer(endpoint string, client *http.Client) *HTTPRecognizer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRecognizer{
		url:    endpoint,
		client: client,
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "snapshot.jpg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognition failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Plate string `json:"plate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Plate == "" {
		return "", ErrNoPlate
	}

	return result.Plate, nil
}

// CheckHealth probes /health on the recognition service host.
func (r *HTTPRecognizer) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(r.url)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognition service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
