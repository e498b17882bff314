package imaging

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ohaddad/shopsnap/pkg/debug"
)

// ErrNoUsableImage indicates that every variant of the photo failed to
// fetch. Fatal for the recognition request.
var ErrNoUsableImage = errors.New("imaging: no usable image variant")

// ErrNoVariants indicates an empty variant list, which is a programming
// contract violation by the caller, not a runtime condition.
var ErrNoVariants = errors.New("imaging: variant list is empty")

// Select picks the best variant under the byte budget and fetches it.
//
// Preference order: the largest variant at or under the budget first, then
// smaller within-budget variants, then over-budget variants smallest first.
// A variant whose fetch fails is skipped and the next-best is tried. The
// returned asset is flagged OverBudget when the fetched payload exceeds the
// budget (possible only when no within-budget variant could be fetched, or
// when a declared size understated the payload).
func Select(ctx context.Context, variants []Variant, budget int) (Asset, error) {
	if len(variants) == 0 {
		return Asset{}, ErrNoVariants
	}

	ordered := orderByPreference(variants, budget)

	var fetchErrs []error
	for _, v := range ordered {
		data, mime, err := v.Fetch(ctx)
		if err != nil {
			debug.Log("image", "variant fetch failed", "variant", v.Label(), "error", err)
			fetchErrs = append(fetchErrs, fmt.Errorf("variant %s: %w", v.Label(), err))
			continue
		}

		return Asset{
			Data:       data,
			MIME:       mime,
			Origin:     v.Label(),
			OverBudget: len(data) > budget,
		}, nil
	}

	return Asset{}, fmt.Errorf("%w: %w", ErrNoUsableImage, errors.Join(fetchErrs...))
}

// orderByPreference returns the variants in selection order: within-budget
// by size descending (unknown sizes last among them), then over-budget by
// size ascending.
func orderByPreference(variants []Variant, budget int) []Variant {
	var within, over []Variant
	for _, v := range variants {
		if size := v.ByteSize(); size > 0 && size > budget {
			over = append(over, v)
		} else {
			within = append(within, v)
		}
	}

	sort.SliceStable(within, func(i, j int) bool {
		return within[i].ByteSize() > within[j].ByteSize()
	})
	sort.SliceStable(over, func(i, j int) bool {
		return over[i].ByteSize() < over[j].ByteSize()
	})

	return append(within, over...)
}
