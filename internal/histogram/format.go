// Package histogram quantizes image descriptors against a visual vocabulary
// and reads and writes the resulting per-image histogram file.
package histogram

import (
	"math"
	"strconv"
	"strings"
)

// Undefined is written in place of every frequency of an image that has no
// surviving descriptors.
const Undefined = "INF"

// Histogram is a per-image word count vector.
type Histogram struct {
	Path   string
	Counts []int
	Total  int // Number of quantized descriptors
}

// NewHistogram returns an all-zero histogram over k words.
func NewHistogram(path string, k int) *Histogram {
	return &Histogram{Path: path, Counts: make([]int, k)}
}

// Add counts one descriptor assigned to word.
func (h *Histogram) Add(word int) {
	h.Counts[word]++
	h.Total++
}

// Frequencies returns the normalised counts, or NaN for every word when the
// histogram is empty.
func (h *Histogram) Frequencies() []float64 {
	out := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		if h.Total == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(c) / float64(h.Total)
	}
	return out
}

// Line formats the histogram as path<TAB>f0<TAB>...<TAB>fK-1 followed by a newline.
func (h *Histogram) Line() string {
	var sb strings.Builder
	sb.WriteString(h.Path)
	for _, f := range h.Frequencies() {
		sb.WriteByte('\t')
		if math.IsNaN(f) {
			sb.WriteString(Undefined)
			continue
		}
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	sb.WriteByte('\n')
	return sb.String()
}
