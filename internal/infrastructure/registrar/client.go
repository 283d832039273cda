package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"certlink/internal/domain/certificate"
)

const (
	defaultTimeout   = 30 * time.Second
	certificatesPath = "/certificates"
	maxErrorBody     = 4 << 10
)

// Client submits certificate uploads to the registration backend
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Ensure Client implements certificate.Registrar
var _ certificate.Registrar = (*Client)(nil)

// NewClient creates a registrar client for baseURL. A zero timeout uses the default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// RegisterResponse is the success body of the registration endpoint
type RegisterResponse struct {
	ID string `json:"id"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Register uploads the certificate file and password and returns the new certificate id.
// Rejections are reported as *certificate.RegistrationError carrying the backend message.
func (c *Client) Register(ctx context.Context, upload certificate.UploadRequest) (string, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+certificatesPath, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &certificate.RegistrationError{Message: "registration service unavailable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &certificate.RegistrationError{Message: errorMessage(resp.StatusCode, respBody)}
	}

	var out RegisterResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.ID == "" {
		return "", &certificate.RegistrationError{Message: "registration service returned no certificate id"}
	}
	return out.ID, nil
}

func encodeUpload(upload certificate.UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("clientId", upload.ClientID); err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if err := w.WriteField("password", upload.Password); err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	name := upload.FileName
	if name == "" {
		name = "certificate"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if _, err := part.Write(upload.File); err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func errorMessage(status int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Sprintf("status %d: %s", status, text)
}
