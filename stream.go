// SPDX-License-Identifier: EPL-2.0

package audspace

import "time"

// InitStreamThread starts the streaming goroutine unless it is running.
// The goroutine feeds streamed channels, fades channels marked with
// FadeOutAndDispose and exits once neither kind is left.
func (e *Engine) InitStreamThread() {
	if e.off() {
		return
	}

	e.streamMtx.Lock()
	defer e.streamMtx.Unlock()

	if e.streamRunning {
		// Make the goroutine take another pass even if it was about to
		// exit.
		e.streamKick = true
		return
	}
	e.streamRunning = true
	e.streamKick = false
	e.streamWG.Add(1)
	go e.runStreaming()
}

// StreamThreadRunning reports whether the streaming goroutine is alive.
func (e *Engine) StreamThreadRunning() bool {
	e.streamMtx.Lock()
	defer e.streamMtx.Unlock()

	return e.streamRunning
}

func (e *Engine) runStreaming() {
	defer e.streamWG.Done()

	e.log.Debugf("Streaming goroutine started")
	defer e.log.Debugf("Streaming goroutine stopped")

	t := time.NewTimer(e.cfg.StreamInterval.D())
	defer t.Stop()

	for {
		active := e.streamPass()

		t.Reset(e.cfg.StreamInterval.D())
		select {
		case <-e.quit:
			e.streamMtx.Lock()
			e.streamRunning = false
			e.streamMtx.Unlock()
			return
		case <-t.C:
		}

		if active {
			continue
		}
		e.streamMtx.Lock()
		if !e.streamKick {
			e.streamRunning = false
			e.streamMtx.Unlock()
			return
		}
		e.streamKick = false
		e.streamMtx.Unlock()
	}
}

// streamPass makes one pass over both pools and reports whether any stream
// is still playing or any channel is still fading.
func (e *Engine) streamPass() bool {
	e.metrics.streamPasses.Inc()

	active := false
	for _, p := range e.pools {
		for _, ch := range p.snapshot() {
			switch {
			case ch.IsStream():
				if ch.IsPlaying() {
					active = true
					ch.updateStream()
				} else {
					ch.Dispose()
				}
			case ch.FadingOutAndDisposing():
				g := ch.Gain() - e.cfg.FadeStep
				if err := ch.SetGain(g); err != nil {
					e.log.Errorf("Fade %s: %v", ch.sound.path, err)
				}
				if g <= 0 {
					ch.Dispose()
				} else {
					active = true
				}
			}
		}
	}

	return active
}
