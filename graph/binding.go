package graph

import "github.com/vsariola/stepsynth"

type (
	// BindingKind tags the value of a Binding.
	BindingKind int

	// Binding is one source of a node parameter: a constant, an envelope,
	// another node used as a modulator, or an externally owned backend
	// source such as a shared constant source. Several bindings of one
	// parameter are all connected; the backend sums node outputs into the
	// parameter.
	Binding struct {
		kind   BindingKind
		value  float64
		env    *Envelope
		node   Node
		source stepsynth.AudioNode
	}

	// Props is a partial update of a node. Empty fields are left unchanged.
	Props struct {
		// Type is the waveform of an oscillator or the response of a filter.
		Type string
		// Loop sets whether a sample loops.
		Loop *bool
		// Buffer is the audio of a sample. It can only be set once.
		Buffer stepsynth.Buffer
		// Params maps parameter names to their new bindings, replacing the
		// previous bindings of the parameter. Names the node does not have
		// are ignored.
		Params map[string][]Binding
	}
)

const (
	ConstBinding BindingKind = iota
	CurveBinding
	NodeBinding
	SourceBinding
)

// Const sets the parameter to v.
func Const(v float64) Binding { return Binding{kind: ConstBinding, value: v} }

// Curve automates the parameter with e.
func Curve(e *Envelope) Binding { return Binding{kind: CurveBinding, env: e} }

// Mod feeds the output of n into the parameter. The bound node becomes a
// child of the node owning the parameter.
func Mod(n Node) Binding { return Binding{kind: NodeBinding, node: n} }

// DC feeds the output of an externally owned backend node into the
// parameter. The source is not owned: it is only disconnected from the
// parameter, never torn down.
func DC(src stepsynth.AudioNode) Binding { return Binding{kind: SourceBinding, source: src} }

func (b Binding) Kind() BindingKind           { return b.kind }
func (b Binding) Value() float64              { return b.value }
func (b Binding) Envelope() *Envelope         { return b.env }
func (b Binding) Node() Node                  { return b.node }
func (b Binding) Source() stepsynth.AudioNode { return b.source }

// Set returns props updating a single parameter.
func Set(name string, b ...Binding) Props {
	return Props{Params: map[string][]Binding{name: b}}
}

// Loop returns a pointer to v, for Props.Loop.
func Loop(v bool) *bool { return &v }
