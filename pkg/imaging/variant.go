package imaging

import "context"

// Variant is one resolution/size rendition of an uploaded photo. Variants
// are cheap handles; the payload is fetched on demand.
type Variant interface {
	// Label identifies the variant for provenance and logging
	// (e.g., "1280x960").
	Label() string

	// ByteSize returns the declared payload size in bytes, or 0 when
	// the size is not known up front. Unknown sizes are treated as
	// within budget during selection.
	ByteSize() int

	// Fetch retrieves the payload and its MIME type.
	Fetch(ctx context.Context) ([]byte, string, error)
}

// Asset is the image selected for one recognition run: raw payload, declared
// MIME type, the label of the variant it came from, and whether it still
// exceeds the byte budget it was selected under. Immutable once produced and
// discarded when the run completes.
type Asset struct {
	Data       []byte
	MIME       string
	Origin     string
	OverBudget bool
}

// ByteSize returns the payload length.
func (a Asset) ByteSize() int {
	return len(a.Data)
}
