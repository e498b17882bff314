package imghost

import (
	"context"
	"net/http"
	"strings"
)

const catboxEndpoint = "https://catbox.moe/user/api.php"

// Catbox uploads images to catbox.moe, a free anonymous file host.
// The API takes a multipart form with reqtype=fileupload and answers
// with the file URL as a plain text body.
type Catbox struct {
	endpoint string
	client   *http.Client
}

var _ Host = (*Catbox)(nil)

// NewCatbox creates a catbox.moe backed host. An empty endpoint selects
// the public API.
func NewCatbox(endpoint string) *Catbox {
	if endpoint == "" {
		endpoint = catboxEndpoint
	}
	return &Catbox{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Catbox) Name() string {
	return "catbox"
}

// Upload stores the image on catbox.moe and returns its URL.
func (c *Catbox) Upload(ctx context.Context, data []byte, mime, filename string) (string, error) {
	fields := map[string]string{"reqtype": "fileupload"}
	return postMultipart(ctx, c.client, c.endpoint, "fileToUpload", filename, fields, data)
}
