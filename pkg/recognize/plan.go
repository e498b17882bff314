package recognize

import (
	"errors"
	"fmt"
	"strings"
)

// InputMode selects how the image reaches a vision backend.
type InputMode string

const (
	// ModeURL sends a public URL the backend fetches itself.
	ModeURL InputMode = "url"

	// ModeInline embeds the image bytes in the request.
	ModeInline InputMode = "inline"

	// ModeAuto expands to url then inline, keeping only the modes the
	// provider supports.
	ModeAuto InputMode = "auto"
)

// Target is one entry of the recognition plan: a provider, the model to
// ask for, and how to hand over the image.
type Target struct {
	Provider string
	Model    string
	Mode     InputMode
}

// String renders the target in plan syntax.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s@%s", t.Provider, t.Model, t.Mode)
}

// ParseTarget parses a single "provider/model@mode" plan entry. The
// @mode suffix is optional and defaults to auto. Model names may
// contain slashes (ollama namespaces do), so only the first slash
// separates the provider.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)

	mode := ModeAuto
	if at := strings.LastIndex(s, "@"); at >= 0 {
		m := InputMode(s[at+1:])
		switch m {
		case ModeURL, ModeInline, ModeAuto:
			mode = m
		default:
			return Target{}, fmt.Errorf("plan entry %q: unknown input mode %q", raw, s[at+1:])
		}
		s = s[:at]
	}

	prov, model, ok := strings.Cut(s, "/")
	if !ok || prov == "" || model == "" {
		return Target{}, fmt.Errorf("plan entry %q: want provider/model[@mode]", raw)
	}

	return Target{Provider: prov, Model: model, Mode: mode}, nil
}

// ParsePlan parses an ordered recognition plan from its config form.
func ParsePlan(entries []string) ([]Target, error) {
	if len(entries) == 0 {
		return nil, errors.New("recognition plan is empty")
	}
	plan := make([]Target, 0, len(entries))
	for _, e := range entries {
		t, err := ParseTarget(e)
		if err != nil {
			return nil, err
		}
		plan = append(plan, t)
	}
	return plan, nil
}
