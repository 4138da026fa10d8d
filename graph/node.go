package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/clock"
)

type (
	// Kind tells which of the node variants a Node is.
	Kind int

	// Node is a playable unit of a note: an *Oscillator, a *Filter or a
	// *Sample. A node owns its children, the nodes bound to its parameters
	// (and, for a filter, its inputs): starting, stopping and disconnecting a
	// node does the same to its children. Once disconnected, a node does
	// nothing.
	Node interface {
		ID() int
		Kind() Kind
		// Connect wires the output of the node to a backend node.
		Connect(dest stepsynth.AudioNode)
		// ConnectParam wires the output of the node to a parameter.
		ConnectParam(p stepsynth.Param)
		// Update applies props; parameters not named in props keep their
		// bindings.
		Update(p Props) error
		// Start starts the node and its children at t and begins their
		// envelopes. It returns t.
		Start(t float64) float64
		// Stop releases the envelopes of the node and its children at t and
		// then frees a generator once its gain has decayed.
		Stop(t float64)
		// Disconnect tears down the node and all its children immediately.
		// Calling it again does nothing.
		Disconnect()
		Disconnected() bool
		// Children lists the owned nodes in the order they were bound.
		Children() []Node
		// Sources lists the bindings of a parameter, nil if the node has no
		// such parameter.
		Sources(param string) []Binding

		node() *base
	}

	// base is the state shared by all node variants.
	base struct {
		g            *Graph
		id           int
		kind         Kind
		self         Node
		owner        Node
		params       []*param
		children     []Node
		started      bool
		disconnected bool
		onDisconnect []func()
		decay        clock.Timer
	}

	param struct {
		name     string
		target   stepsynth.Param
		bindings []Binding
	}
)

const (
	OscillatorKind Kind = iota
	FilterKind
	SampleKind
)

func (k Kind) String() string {
	switch k {
	case OscillatorKind:
		return "oscillator"
	case FilterKind:
		return "filter"
	case SampleKind:
		return "sample"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (n *base) init(g *Graph, kind Kind, self Node, params ...*param) {
	n.g = g
	n.id = g.nextID()
	n.kind = kind
	n.self = self
	n.params = params
}

func (n *base) node() *base { return n }

func (n *base) ID() int { return n.id }

func (n *base) Kind() Kind { return n.kind }

func (n *base) Disconnected() bool { return n.disconnected }

func (n *base) Children() []Node { return slices.Clone(n.children) }

func (n *base) Sources(name string) []Binding {
	if p := n.param(name); p != nil {
		return slices.Clone(p.bindings)
	}
	return nil
}

func (n *base) param(name string) *param {
	for _, p := range n.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (n *base) update(params map[string][]Binding) error {
	if n.disconnected {
		return ErrDisconnected
	}
	var errs []error
	for _, p := range n.params {
		bs, ok := params[p.name]
		if !ok {
			continue
		}
		if err := n.bind(p, bs); err != nil {
			errs = append(errs, fmt.Errorf("%v %d %s: %w", n.kind, n.id, p.name, err))
		}
	}
	return errors.Join(errs...)
}

// bind replaces the bindings of p. Nodes bound both before and after keep
// their connection; other previous bindings are detached and previously
// bound nodes are disconnected.
func (n *base) bind(p *param, bs []Binding) error {
	if err := n.check(p, bs); err != nil {
		return err
	}
	for _, old := range p.bindings {
		switch old.kind {
		case CurveBinding:
			old.env.Unbind()
			p.target.CancelScheduledValues(n.g.ctx.CurrentTime())
		case NodeBinding:
			if slices.ContainsFunc(bs, func(b Binding) bool { return b.node == old.node }) {
				continue
			}
			n.children = slices.DeleteFunc(n.children, func(c Node) bool { return c == old.node })
			old.node.node().owner = nil
			old.node.Disconnect()
		case SourceBinding:
			old.source.DisconnectParam(p.target)
		}
	}
	prev := p.bindings
	p.bindings = slices.Clone(bs)
	for _, b := range bs {
		switch b.kind {
		case ConstBinding:
			p.target.SetValue(b.value)
		case CurveBinding:
			b.env.Bind(p.target)
			if n.started {
				b.env.Begin(n.g.ctx.CurrentTime())
			}
		case NodeBinding:
			if slices.ContainsFunc(prev, func(o Binding) bool { return o.node == b.node }) {
				continue
			}
			b.node.node().owner = n.self
			b.node.ConnectParam(p.target)
			n.children = append(n.children, b.node)
			if n.started {
				b.node.Start(n.g.ctx.CurrentTime())
			}
		case SourceBinding:
			b.source.ConnectParam(p.target)
		}
	}
	return nil
}

func (n *base) check(p *param, bs []Binding) error {
	for i, b := range bs {
		switch b.kind {
		case CurveBinding:
			if b.env == nil {
				return ErrNil
			}
			mine := slices.ContainsFunc(p.bindings, func(o Binding) bool { return o.env == b.env })
			if b.env.Bound() && !mine {
				return fmt.Errorf("envelope: %w", ErrOwned)
			}
		case NodeBinding:
			if b.node == nil {
				return ErrNil
			}
			if err := n.adoptable(b.node); err != nil {
				mine := slices.ContainsFunc(p.bindings, func(o Binding) bool { return o.node == b.node })
				if !mine || !errors.Is(err, ErrOwned) {
					return err
				}
			}
			if slices.ContainsFunc(bs[:i], func(o Binding) bool { return o.node == b.node }) {
				return fmt.Errorf("%v %d bound twice: %w", b.node.Kind(), b.node.ID(), ErrOwned)
			}
		case SourceBinding:
			if b.source == nil {
				return ErrNil
			}
		}
	}
	return nil
}

// adoptable checks that c can become a child of n.
func (n *base) adoptable(c Node) error {
	cb := c.node()
	if cb.disconnected {
		return fmt.Errorf("%v %d: %w", cb.kind, cb.id, ErrDisconnected)
	}
	for a := Node(n.self); a != nil; a = a.node().owner {
		if a == c {
			return fmt.Errorf("%v %d: %w", cb.kind, cb.id, ErrCycle)
		}
	}
	if cb.owner != nil {
		return fmt.Errorf("%v %d: %w", cb.kind, cb.id, ErrOwned)
	}
	return nil
}

// startAll starts the children and begins the envelopes.
func (n *base) startAll(t float64) {
	n.started = true
	for _, c := range n.children {
		c.Start(t)
	}
	for _, p := range n.params {
		for _, b := range p.bindings {
			if b.kind == CurveBinding {
				b.env.Begin(t)
			}
		}
	}
}

// stopAll stops the children and releases the envelopes. It returns the time
// the release of the gain parameter completes, Never if it does not.
func (n *base) stopAll(t float64) float64 {
	for _, c := range n.children {
		c.Stop(t)
	}
	end, gain := 0.0, false
	for _, p := range n.params {
		for _, b := range p.bindings {
			if b.kind != CurveBinding {
				continue
			}
			r := b.env.Release(t)
			if p.name == "gain" {
				end, gain = max(end, r), true
			}
		}
	}
	if !gain {
		return Never
	}
	return end
}

// disconnect tears down the node: stops the decay check, disconnects the
// children, detaches the bindings, calls teardown for the backend nodes of
// the variant and finally notifies the observers.
func (n *base) disconnect(teardown func()) {
	if n.disconnected {
		return
	}
	n.disconnected = true
	if n.decay != nil {
		n.decay.Stop()
		n.decay = nil
	}
	for _, c := range n.children {
		c.Disconnect()
	}
	n.children = nil
	for _, p := range n.params {
		for _, b := range p.bindings {
			switch b.kind {
			case CurveBinding:
				b.env.Unbind()
			case SourceBinding:
				b.source.DisconnectParam(p.target)
			}
		}
		p.bindings = nil
	}
	teardown()
	n.g.log.Debug("node disconnected", "kind", n.kind, "id", n.id)
	obs := n.onDisconnect
	n.onDisconnect = nil
	for _, f := range obs {
		f()
	}
}

// Walk calls fn for n and all its descendants, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
