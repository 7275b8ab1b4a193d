// Package convert implements the HTTP client for the external
// document-to-PDF conversion service (a Gotenberg-compatible endpoint).
// Conversion is the only blocking step of the issuance pipeline, so the
// client enforces a bounded timeout and surfaces failures to the caller
// instead of hanging.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// maxErrorBody caps how much of an error response body is read for the
// error message.
const maxErrorBody = 4 << 10

// Client converts merged document bytes into PDF via an HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client for the service at baseURL. The timeout bounds the
// full request including body transfer; a non-positive value falls back to
// 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Convert uploads the merged document and returns the rendered PDF bytes.
// Any transport error, timeout, or non-2xx response is returned as an
// error; the caller decides whether to retry the surrounding operation.
func (c *Client) Convert(ctx context.Context, document []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "contract.html")
	if err != nil {
		return nil, fmt.Errorf("convert: build request: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, fmt.Errorf("convert: build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("convert: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/forms/libreoffice/convert", &body)
	if err != nil {
		return nil, fmt.Errorf("convert: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convert: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("convert: service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("convert: read response: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("convert: service returned an empty document")
	}
	return pdf, nil
}
