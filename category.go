// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"strings"
	"sync"
)

// category holds the gain layers and muffle override of one category.
// Layers only grow; new layers start at 1.
type category struct {
	mtx    sync.Mutex
	layers []float32
	muffle bool
}

func (c *category) product() float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	g := float32(1)
	for _, l := range c.layers {
		g *= l
	}

	return g
}

func (e *Engine) category(name string) *category {
	c, _ := e.categories.LoadOrCompute(name, func() *category {
		return &category{}
	})

	return c
}

// SetCategoryGainMultiplier sets one gain layer of a category and pushes
// the new gain to its playing channels. Independent systems use separate
// layers; the category gain is the product of all of them.
func (e *Engine) SetCategoryGainMultiplier(cat string, gain float32, layer int) {
	if e.off() || layer < 0 {
		return
	}
	name := strings.ToLower(cat)

	c := e.category(name)
	c.mtx.Lock()
	for len(c.layers) <= layer {
		c.layers = append(c.layers, 1)
	}
	c.layers[layer] = gain
	c.mtx.Unlock()

	e.forPlaying(func(ch *Channel) bool { return ch.category == name }, func(ch *Channel) {
		if err := ch.refreshGain(); err != nil {
			e.log.Errorf("Category %s gain: %v", name, err)
		}
	})
}

// CategoryGainMultiplier returns one layer of a category, or with layer -1
// the product of all layers. Unknown categories and layers are 1; a
// disabled engine reports 0.
func (e *Engine) CategoryGainMultiplier(cat string, layer int) float32 {
	if e.off() {
		return 0
	}

	return e.categoryGain(strings.ToLower(cat), layer)
}

func (e *Engine) categoryGain(name string, layer int) float32 {
	c, ok := e.categories.Load(name)
	if !ok {
		return 1
	}
	if layer < 0 {
		return c.product()
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if layer >= len(c.layers) {
		return 1
	}

	return c.layers[layer]
}

// SetCategoryMuffle sets the muffle override of a category and applies it
// to the category's playing channels.
func (e *Engine) SetCategoryMuffle(cat string, muffle bool) {
	if e.off() {
		return
	}
	name := strings.ToLower(cat)

	c := e.category(name)
	c.mtx.Lock()
	c.muffle = muffle
	c.mtx.Unlock()

	e.forPlaying(func(ch *Channel) bool { return ch.category == name }, func(ch *Channel) {
		if err := ch.SetMuffled(muffle); err != nil {
			e.log.Errorf("Category %s muffle: %v", name, err)
		}
	})
}

func (e *Engine) CategoryMuffle(cat string) bool {
	if e.off() {
		return false
	}

	return e.categoryMuffle(strings.ToLower(cat))
}

func (e *Engine) categoryMuffle(name string) bool {
	c, ok := e.categories.Load(name)
	if !ok {
		return false
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.muffle
}

// forPlaying collects the playing channels that match under the pool locks
// and calls fn on each once the locks are released.
func (e *Engine) forPlaying(match func(*Channel) bool, fn func(*Channel)) {
	var chs []*Channel
	for _, p := range e.pools {
		p.scan(func(ch *Channel) bool {
			if match(ch) && ch.IsPlaying() {
				chs = append(chs, ch)
			}
			return true
		})
	}
	for _, ch := range chs {
		fn(ch)
	}
}
