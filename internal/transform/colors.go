package transform

import "hash/fnv"

// qualitative is the Plotly qualitative palette.
var qualitative = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// Palette maps series identities to display colors. The mapping depends only on
// the identity, so a series keeps its color across refreshes and filter changes.
type Palette struct {
	fixed map[string]string
}

// NewPalette creates a palette with fixed colors for known identities, usually
// colleges. Everything else hashes into the qualitative palette.
func NewPalette(fixed map[string]string) *Palette {
	cp := make(map[string]string, len(fixed))
	for k, v := range fixed {
		cp[k] = v
	}

	return &Palette{fixed: cp}
}

// Color returns the color of key.
func (p *Palette) Color(key string) string {
	if c, ok := p.fixed[key]; ok {
		return c
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return qualitative[h.Sum32()%uint32(len(qualitative))]
}

// Colors returns the colors of keys.
func (p *Palette) Colors(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = p.Color(k)
	}

	return out
}
