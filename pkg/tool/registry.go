// Package tool declares the device-control operations the model may request
// and dispatches model-issued calls against the live device. Every dispatch
// returns a plain string: tool output is conversation content fed back to the
// model, never an error that unwinds the agent loop.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/droidpilot/droidpilot/pkg/device"
)

// ParamType is the primitive type of one tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeNumber  ParamType = "number"
)

// Parameter describes one argument of a tool.
type Parameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Definition is the model-facing description of one tool.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter

	// RequiresAccessibility marks tools that need a live accessibility
	// service handle; RequiresAppContext marks tools that need the host
	// application context (e.g. to launch intents).
	RequiresAccessibility bool
	RequiresAppContext    bool
}

// Capabilities is the bag of device handles the caller provides at dispatch
// time. Absent handles make the corresponding tools fail fast with an error
// string instead of executing.
type Capabilities struct {
	Accessibility device.Accessibility
	App           device.AppContext
	Overlay       device.Overlay
}

// Args holds decoded, type-checked tool arguments.
type Args map[string]any

// String returns the named string argument ("" when absent).
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Int returns the named integer argument (0 when absent).
func (a Args) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

// Bool returns the named boolean argument and whether it was supplied.
func (a Args) Bool(name string) (value, present bool) {
	v, ok := a[name].(bool)
	return v, ok
}

// Float returns the named number argument (0 when absent).
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Handler executes one tool call. It must return a human/model-readable
// result string and must not panic across the dispatcher boundary (the
// dispatcher contains panics anyway).
type Handler func(ctx context.Context, args Args, caps Capabilities) string

type entry struct {
	def     Definition
	handler Handler
}

// Spec pairs a definition with its handler for registry construction.
type Spec struct {
	Definition Definition
	Handler    Handler
}

// Registry is the immutable table of available tools, built once at startup.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry builds a registry from the given specs. Duplicate tool names
// are a programming error and panic at startup.
func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{entries: make(map[string]entry, len(specs))}
	for _, s := range specs {
		if _, dup := r.entries[s.Definition.Name]; dup {
			panic(fmt.Sprintf("tool: duplicate tool name %q", s.Definition.Name))
		}
		r.entries[s.Definition.Name] = entry{def: s.Definition, handler: s.Handler}
		r.order = append(r.order, s.Definition.Name)
	}
	return r
}

// List returns the tool definitions in registration order.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Dispatch resolves name to a tool and invokes it with the decoded arguments.
// Every failure mode (unknown tool, missing capability, bad arguments, tool
// panic) is reported as the returned string; the string becomes the tool
// message content for the next model call.
func (r *Registry) Dispatch(ctx context.Context, name, argsJSON string, caps Capabilities) (result string) {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	if e.def.RequiresAccessibility && caps.Accessibility == nil {
		return fmt.Sprintf("Error: tool %q requires the accessibility service, which is not available", name)
	}
	if e.def.RequiresAppContext && caps.App == nil {
		return fmt.Sprintf("Error: tool %q requires the app context, which is not available", name)
	}

	args, err := decodeArgs(argsJSON, e.def.Parameters)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	// Hide the status overlay while the tool acts so it cannot sit on top
	// of the gesture target. Cleared even when the tool panics.
	if caps.Overlay != nil {
		caps.Overlay.SetActing(true)
	}
	defer func() {
		if caps.Overlay != nil {
			caps.Overlay.SetActing(false)
		}
		if rec := recover(); rec != nil {
			slog.Error("Tool panicked", "tool", name, "panic", rec)
			result = fmt.Sprintf("Error: tool %q failed: %v", name, rec)
		}
	}()

	return e.handler(ctx, args, caps)
}

// decodeArgs validates presence and primitive types against the declared
// parameters and coerces JSON numbers to the declared type.
func decodeArgs(argsJSON string, params []Parameter) (Args, error) {
	raw := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
			return nil, fmt.Errorf("invalid argument JSON: %v", err)
		}
	}

	args := Args{}
	for _, p := range params {
		v, present := raw[p.Name]
		if !present {
			if p.Required {
				return nil, fmt.Errorf("missing required argument %q", p.Name)
			}
			continue
		}
		coerced, err := coerce(v, p.Type)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %v", p.Name, err)
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func coerce(v any, t ParamType) (any, error) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case TypeInteger:
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		case string:
			// Providers that downgrade integer parameters to string in
			// their schema send the value back as a numeric string.
			var parsed float64
			if _, err := fmt.Sscanf(n, "%g", &parsed); err != nil || parsed != math.Trunc(parsed) {
				return nil, fmt.Errorf("expected integer, got %q", n)
			}
			return int(parsed), nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	case TypeNumber:
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown parameter type %q", t)
}
