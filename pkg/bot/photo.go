package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ohaddad/shopsnap/pkg/imaging"
)

// maxPhotoBytes caps a single photo download. Telegram photos stay far
// below this; anything larger is rejected rather than buffered.
const maxPhotoBytes = 10 << 20

// FileResolver resolves a Telegram file ID to a download URL.
// Satisfied by *tgbotapi.BotAPI.
type FileResolver interface {
	GetFileDirectURL(fileID string) (string, error)
}

// photoVariant adapts one Telegram photo rendition to imaging.Variant.
// The payload is downloaded only if selection picks this rendition.
type photoVariant struct {
	resolver FileResolver
	client   *http.Client
	fileID   string
	label    string
	size     int
}

var _ imaging.Variant = (*photoVariant)(nil)

func (v *photoVariant) Label() string { return v.label }

func (v *photoVariant) ByteSize() int { return v.size }

func (v *photoVariant) Fetch(ctx context.Context) ([]byte, string, error) {
	fileURL, err := v.resolver.GetFileDirectURL(v.fileID)
	if err != nil {
		return nil, "", fmt.Errorf("resolving telegram file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("photo download failed with HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, "", fmt.Errorf("photo exceeds the %d byte cap", maxPhotoBytes)
	}

	return data, http.DetectContentType(data), nil
}

// photoOverCap reports whether every rendition that declares a size is
// above budget. With no declared sizes at all there is nothing to judge
// and the fetch path bounds what actually gets buffered.
func photoOverCap(photos []tgbotapi.PhotoSize, budget int) bool {
	declared := false
	for _, ps := range photos {
		if ps.FileSize <= 0 {
			continue
		}
		declared = true
		if ps.FileSize <= budget {
			return false
		}
	}
	return declared
}

// photoVariants wraps the renditions Telegram offers for one photo.
// Order does not matter; selection ranks them by declared size.
func photoVariants(resolver FileResolver, client *http.Client, photos []tgbotapi.PhotoSize) []imaging.Variant {
	variants := make([]imaging.Variant, 0, len(photos))
	for _, ps := range photos {
		variants = append(variants, &photoVariant{
			resolver: resolver,
			client:   client,
			fileID:   ps.FileID,
			label:    fmt.Sprintf("%dx%d", ps.Width, ps.Height),
			size:     ps.FileSize,
		})
	}
	return variants
}
