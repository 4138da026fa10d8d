// Package script runs note factories written in Lua. A script defines a
// global function note(ctx) returning a table that describes the node tree
// of a note:
//
//	function note(ctx)
//	  return {
//	    kind = "filter", type = "lowpass", Q = 1,
//	    frequency = {env = {from = 2000, to = 300, attack = ctx.duration / 2}},
//	    inputs = {
//	      {kind = "osc", type = "square", frequency = {110, {kind = "osc", frequency = 5, gain = 3}},
//	       gain = {env = {to = 0.3, attack = 0.01, attackShape = "exp", release = ctx.duration}}},
//	    },
//	  }
//	end
//
// kind is "osc", "filter" or "sample". Every other key is a parameter whose
// value is a number, an envelope table, a node table, the ctx.detune source
// or a list of these. ctx has the fields time, duration, noise (a white noise
// buffer for the buffer key of a sample) and detune.
package script

import (
	"errors"
	"fmt"
	"slices"

	lua "github.com/yuin/gopher-lua"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/tracker"
)

type (
	// Script is a loaded Lua file. It is not safe for concurrent use; like
	// the rest of the note graph it belongs to the control thread.
	Script struct {
		name  string
		state *lua.LState
		noise NoiseFunc
	}

	// NoiseFunc returns the noise buffer handed to the scripts.
	NoiseFunc func(stepsynth.Context) stepsynth.Buffer

	// builder builds the tree of one note and remembers the created nodes
	// to tear them down if building fails.
	builder struct {
		g       *graph.Graph
		created []graph.Node
	}
)

const entry = "note"

var ErrScript = errors.New("invalid note table")

// reserved keys are not parameters
var reserved = []string{"kind", "type", "inputs", "loop", "buffer"}

// Load runs a Lua file and checks that it defines note.
func Load(path string, noise NoiseFunc) (*Script, error) {
	s := newScript(path, noise)
	if err := s.state.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("cannot load script %v: %w", path, err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadString is like Load but runs the source code src; name is used in
// errors.
func LoadString(name, src string, noise NoiseFunc) (*Script, error) {
	s := newScript(name, noise)
	if err := s.state.DoString(src); err != nil {
		s.Close()
		return nil, fmt.Errorf("cannot load script %v: %w", name, err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

func newScript(name string, noise NoiseFunc) *Script {
	return &Script{name: name, state: lua.NewState(), noise: noise}
}

func (s *Script) check() error {
	if s.state.GetGlobal(entry).Type() != lua.LTFunction {
		s.Close()
		return fmt.Errorf("script %v does not define function %s", s.name, entry)
	}
	return nil
}

func (s *Script) Close() { s.state.Close() }

// Factory returns a note factory calling the note function of the script.
func (s *Script) Factory() tracker.Factory {
	return func(c tracker.NoteContext) (graph.Node, error) {
		ret, err := s.call(c)
		if err != nil {
			return nil, fmt.Errorf("script %v: %w", s.name, err)
		}
		b := &builder{g: c.Graph}
		n, err := b.node(ret, "note")
		if err != nil {
			for _, m := range b.created {
				m.Disconnect()
			}
			return nil, fmt.Errorf("script %v: %w", s.name, err)
		}
		return n, nil
	}
}

func (s *Script) call(c tracker.NoteContext) (lua.LValue, error) {
	L := s.state
	ctx := L.NewTable()
	ctx.RawSetString("time", lua.LNumber(c.Time))
	ctx.RawSetString("duration", lua.LNumber(c.Duration))
	if s.noise != nil {
		ud := L.NewUserData()
		ud.Value = s.noise(c.Graph.Context())
		ctx.RawSetString("noise", ud)
	}
	if c.Detune != nil {
		ud := L.NewUserData()
		ud.Value = c.Detune
		ctx.RawSetString("detune", ud)
	}
	if err := L.CallByParam(lua.P{Fn: L.GetGlobal(entry), NRet: 1, Protect: true}, ctx); err != nil {
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func (b *builder) node(v lua.LValue, path string) (graph.Node, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s: expected a node table, got %s: %w", path, v.Type(), ErrScript)
	}
	props := graph.Props{
		Type:   lua.LVAsString(t.RawGetString("type")),
		Params: map[string][]graph.Binding{},
	}
	if lv := t.RawGetString("loop"); lv != lua.LNil {
		loop := lua.LVAsBool(lv)
		props.Loop = &loop
	}
	if lv := t.RawGetString("buffer"); lv != lua.LNil {
		ud, ok := lv.(*lua.LUserData)
		if !ok {
			return nil, fmt.Errorf("%s.buffer: expected a buffer, got %s: %w", path, lv.Type(), ErrScript)
		}
		buf, ok := ud.Value.(stepsynth.Buffer)
		if !ok {
			return nil, fmt.Errorf("%s.buffer: expected a buffer: %w", path, ErrScript)
		}
		props.Buffer = buf
	}
	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok && !slices.Contains(reserved, string(s)) {
			keys = append(keys, string(s))
		}
	})
	slices.Sort(keys)
	for _, k := range keys {
		bs, err := b.bindings(t.RawGetString(k), path+"."+k, true)
		if err != nil {
			return nil, err
		}
		props.Params[k] = bs
	}
	var n graph.Node
	var err error
	switch kind := lua.LVAsString(t.RawGetString("kind")); kind {
	case "osc", "oscillator":
		n, err = graph.NewOscillator(b.g, props)
	case "sample":
		n, err = graph.NewSample(b.g, props)
	case "filter":
		var inputs []graph.Node
		if lv := t.RawGetString("inputs"); lv != lua.LNil {
			list, ok := lv.(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("%s.inputs: expected a list: %w", path, ErrScript)
			}
			for i := 1; i <= list.Len(); i++ {
				in, err := b.node(list.RawGetInt(i), fmt.Sprintf("%s.inputs[%d]", path, i))
				if err != nil {
					return nil, err
				}
				inputs = append(inputs, in)
			}
		}
		n, err = graph.NewFilter(b.g, props, inputs...)
	default:
		return nil, fmt.Errorf("%s: unknown kind %q: %w", path, kind, ErrScript)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.created = append(b.created, n)
	return n, nil
}

// bindings converts a parameter value; lists are only allowed at the top.
func (b *builder) bindings(v lua.LValue, path string, list bool) ([]graph.Binding, error) {
	switch v := v.(type) {
	case lua.LNumber:
		return []graph.Binding{graph.Const(float64(v))}, nil
	case *lua.LUserData:
		if src, ok := v.Value.(stepsynth.ConstantSource); ok {
			return []graph.Binding{graph.DC(src)}, nil
		}
	case *lua.LTable:
		if e := v.RawGetString("env"); e != lua.LNil {
			env, err := envelope(e, path+".env")
			if err != nil {
				return nil, err
			}
			return []graph.Binding{graph.Curve(env)}, nil
		}
		if v.RawGetString("kind") != lua.LNil {
			n, err := b.node(v, path)
			if err != nil {
				return nil, err
			}
			return []graph.Binding{graph.Mod(n)}, nil
		}
		if list && v.Len() > 0 {
			var ret []graph.Binding
			for i := 1; i <= v.Len(); i++ {
				bs, err := b.bindings(v.RawGetInt(i), fmt.Sprintf("%s[%d]", path, i), false)
				if err != nil {
					return nil, err
				}
				ret = append(ret, bs...)
			}
			return ret, nil
		}
	}
	return nil, fmt.Errorf("%s: cannot bind a %s: %w", path, v.Type(), ErrScript)
}

func envelope(v lua.LValue, path string) (*graph.Envelope, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s: expected a table: %w", path, ErrScript)
	}
	num := func(k string) float64 { return float64(lua.LVAsNumber(t.RawGetString(k))) }
	attack, err := graph.ParseShape(lua.LVAsString(t.RawGetString("attackShape")))
	if err != nil {
		return nil, fmt.Errorf("%s.attackShape: %w", path, err)
	}
	release, err := graph.ParseShape(lua.LVAsString(t.RawGetString("releaseShape")))
	if err != nil {
		return nil, fmt.Errorf("%s.releaseShape: %w", path, err)
	}
	env, err := graph.NewEnvelope(graph.EnvelopeConfig{
		From:         num("from"),
		To:           num("to"),
		Attack:       num("attack"),
		AttackShape:  attack,
		Release:      num("release"),
		ReleaseShape: release,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}
