// Package palette assigns each job a console color for its output prefix.
package palette

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fatih/color"
)

var attrs = [...]color.Attribute{
	color.FgBlack,
	color.FgRed,
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgMagenta,
	color.FgCyan,
	color.FgHiBlack,
	color.FgHiRed,
	color.FgHiGreen,
	color.FgHiYellow,
	color.FgHiBlue,
	color.FgHiMagenta,
	color.FgHiCyan,
}

// Size is the number of distinct colors handed out before a reshuffle.
const Size = len(attrs)

// Picker hands out colors from a shuffled palette. A key keeps its color
// for the life of the Picker; once every color of the current shuffle has
// been handed out the order is reshuffled and colors start repeating.
type Picker struct {
	mu       sync.Mutex
	colors   [Size]*color.Color
	order    [Size]int
	next     int
	assigned map[uint64]int
	rng      *rand.Rand
}

type Option func(*Picker)

// WithSeed makes the shuffle deterministic.
func WithSeed(seed uint64) Option {
	return func(p *Picker) { p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithColor forces escapes on or off. By default fatih/color decides
// (off when stdout is not a terminal or NO_COLOR is set).
func WithColor(enabled bool) Option {
	return func(p *Picker) {
		for _, c := range p.colors {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

func New(opts ...Option) *Picker {
	p := &Picker{assigned: map[uint64]int{}}
	for i, a := range attrs {
		p.colors[i] = color.New(a)
		p.order[i] = i
	}
	seed := uint64(time.Now().UnixNano())
	p.rng = rand.New(rand.NewPCG(seed, seed>>1))
	for _, o := range opts {
		o(p)
	}
	p.shuffle()
	return p
}

func (p *Picker) shuffle() {
	p.rng.Shuffle(len(p.order), func(i, j int) { p.order[i], p.order[j] = p.order[j], p.order[i] })
	p.next = 0
}

func (p *Picker) slot(key uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.assigned[key]; ok {
		return s
	}
	if p.next >= len(p.order) {
		p.shuffle()
	}
	s := p.order[p.next]
	p.next++
	p.assigned[key] = s
	return s
}

// Get returns the color assigned to key.
func (p *Picker) Get(key uint64) *color.Color {
	return p.colors[p.slot(key)]
}

// Prefix renders "[id]" in the color assigned to key.
func (p *Picker) Prefix(key uint64, id string) string {
	return p.Get(key).Sprint("[" + id + "]")
}

// Key hashes a job id into a palette key (h = h*31 + b over the bytes).
func Key(id string) uint64 {
	var h uint64
	for i := 0; i < len(id); i++ {
		h = h*31 + uint64(id[i])
	}
	return h
}
