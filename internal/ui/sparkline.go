package ui

import "strings"

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps the last width samples in a ring and draws them as bars
// scaled to the largest sample held.
type Sparkline struct {
	samples []float64
	width   int
	head    int
	count   int
}

// NewSparkline creates a sparkline holding width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 60
	}
	return &Sparkline{samples: make([]float64, width), width: width}
}

// Add appends a sample, evicting the oldest once full.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % s.width
	s.count++
}

// Render draws the most recent width samples, oldest first, padded on the
// right with spaces. width <= 0 draws every held sample.
func (s *Sparkline) Render(width int) string {
	held := s.held()
	if width <= 0 {
		width = s.width
	}
	if len(held) > width {
		held = held[len(held)-width:]
	}

	peak := 0.0
	for _, v := range held {
		if v > peak {
			peak = v
		}
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	for _, v := range held {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(SparklineChars)-1))
		}
		idx = max(0, min(idx, len(SparklineChars)-1))
		sb.WriteRune(SparklineChars[idx])
	}
	sb.WriteString(strings.Repeat(" ", width-len(held)))

	return sb.String()
}

// held returns the samples in insertion order.
func (s *Sparkline) held() []float64 {
	if s.count < s.width {
		return append([]float64(nil), s.samples[:s.count]...)
	}
	out := make([]float64, 0, s.width)
	out = append(out, s.samples[s.head:]...)
	return append(out, s.samples[:s.head]...)
}

// Clear drops every sample.
func (s *Sparkline) Clear() {
	clear(s.samples)
	s.head = 0
	s.count = 0
}

// Count returns the number of samples ever added.
func (s *Sparkline) Count() int {
	return s.count
}
