package graph

import (
	"math"
	"time"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
)

// watchDecay frees a stopped generator node once it is inaudible: from the
// stop time on, whenever the gain has fallen below the threshold, the
// generator is stopped and the node disconnected. The check ends when the
// node is disconnected for any reason. Stopping again restarts the watch.
func (n *base) watchDecay(stopAt, releaseEnd float64, gain stepsynth.Param, gen stepsynth.Generator) {
	if n.decay != nil {
		n.decay.Stop()
		n.decay = nil
	}
	check := func() bool {
		if n.disconnected {
			return true
		}
		now := n.g.ctx.CurrentTime()
		if now < stopAt {
			return false
		}
		if v := gain.Value(); v >= n.g.cfg.DecayThreshold {
			return false
		}
		n.g.log.Debug("node decayed", "kind", n.kind, "id", n.id, "time", now)
		gen.Stop(now)
		n.self.Disconnect()
		return true
	}
	poll := func() {
		var t clock.Timer
		t = n.g.timers.Every(n.g.cfg.DecayInterval, func() {
			if check() {
				t.Stop()
				if n.decay == t {
					n.decay = nil
				}
			}
		})
		n.decay = t
	}
	if n.g.cfg.ScheduledDecay && !math.IsInf(releaseEnd, 1) {
		wait := max(0, releaseEnd-n.g.ctx.CurrentTime())
		n.decay = n.g.timers.AfterFunc(time.Duration(wait*float64(time.Second)), func() {
			n.decay = nil
			if !check() {
				poll()
			}
		})
		return
	}
	poll()
}
