package imghost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ohaddad/shopsnap/pkg/debug"
	"github.com/ohaddad/shopsnap/pkg/imaging"
	"github.com/ohaddad/shopsnap/pkg/observability"
)

// ErrAllBackendsFailed indicates that every configured hosting backend
// rejected the upload or timed out.
var ErrAllBackendsFailed = errors.New("all image hosting backends failed")

const userAgent = "shopsnap/1.0"

// defaultUploadTimeout bounds a single backend attempt.
const defaultUploadTimeout = 10 * time.Second

// Host uploads an image payload and returns a publicly fetchable URL.
type Host interface {
	// Name returns the backend identifier used in logs and metrics.
	Name() string

	// Upload stores the image and returns its public URL. The filename
	// is a hint for backends that key behavior off the extension.
	Upload(ctx context.Context, data []byte, mime, filename string) (string, error)
}

// Publisher tries hosting backends in priority order and returns the
// first URL obtained. Each backend gets its own timeout so a slow host
// cannot stall the whole chain.
type Publisher struct {
	hosts   []Host
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a publisher over the given backends, tried in
// slice order. A zero timeout selects the default.
func NewPublisher(hosts []Host, timeout time.Duration, logger *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{hosts: hosts, timeout: timeout, logger: logger}
}

// Publish uploads the asset to the first backend that accepts it.
// All backends failing is reported as ErrAllBackendsFailed with the
// per-backend errors joined in.
func (p *Publisher) Publish(ctx context.Context, asset imaging.Asset) (string, error) {
	if len(p.hosts) == 0 {
		return "", fmt.Errorf("%w: no backends configured", ErrAllBackendsFailed)
	}

	filename := uuid.NewString() + extensionForMIME(asset.MIME)

	var failures []error
	for _, h := range p.hosts {
		hostCtx, cancel := context.WithTimeout(ctx, p.timeout)
		url, err := h.Upload(hostCtx, asset.Data, asset.MIME, filename)
		cancel()

		if err == nil {
			observability.UploadsTotal.WithLabelValues(h.Name(), "ok").Inc()
			debug.Log("imghost", "image published",
				"backend", h.Name(),
				"url", url,
				"bytes", len(asset.Data))
			return url, nil
		}

		observability.UploadsTotal.WithLabelValues(h.Name(), "error").Inc()
		p.logger.Warn("image hosting backend failed",
			"backend", h.Name(),
			"error", err)
		failures = append(failures, fmt.Errorf("%s: %w", h.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", ErrAllBackendsFailed, errors.Join(failures...))
}

// extensionForMIME maps an image MIME type to a filename extension.
// Unknown types fall back to .jpg, which the transcoder produces anyway.
func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// postMultipart uploads data as a multipart form and returns the trimmed
// response body. The anonymous file hosts answer with the file URL as
// plain text.
func postMultipart(ctx context.Context, client *http.Client, endpoint, fileField, filename string, fields map[string]string, data []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", fmt.Errorf("encoding form field %s: %w", k, err)
		}
	}
	part, err := form.CreateFormFile(fileField, filename)
	if err != nil {
		return "", fmt.Errorf("encoding form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("encoding image payload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("finalizing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected with HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	url := strings.TrimSpace(string(body))
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("unexpected upload response: %q", debug.Truncate(url, 120))
	}
	return url, nil
}
