package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/droidpilot/droidpilot/pkg/device"
)

func testRegistry(t *testing.T, specs ...Spec) *Registry {
	t.Helper()
	return NewRegistry(specs...)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := testRegistry(t)
	got := r.Dispatch(context.Background(), "teleport", "{}", Capabilities{})
	if !strings.Contains(got, "unknown tool") {
		t.Errorf("Dispatch() = %q, want unknown-tool error", got)
	}
}

func TestDispatchMissingCapability(t *testing.T) {
	executed := false
	r := testRegistry(t, Spec{
		Definition: Definition{Name: "probe", RequiresAccessibility: true},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			executed = true
			return "ok"
		},
	})

	got := r.Dispatch(context.Background(), "probe", "{}", Capabilities{})
	if !strings.Contains(got, "not available") {
		t.Errorf("Dispatch() = %q, want capability error", got)
	}
	if executed {
		t.Error("handler ran despite missing capability")
	}
}

func TestDispatchMissingAppContext(t *testing.T) {
	r := testRegistry(t, Spec{
		Definition: Definition{Name: "launch", RequiresAppContext: true},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			return "ok"
		},
	})
	got := r.Dispatch(context.Background(), "launch", "{}", Capabilities{})
	if !strings.Contains(got, "not available") {
		t.Errorf("Dispatch() = %q, want capability error", got)
	}
}

func TestDispatchArgumentValidation(t *testing.T) {
	r := testRegistry(t, Spec{
		Definition: Definition{
			Name: "move",
			Parameters: []Parameter{
				{Name: "x", Type: TypeInteger, Required: true},
				{Name: "label", Type: TypeString, Required: false},
			},
		},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			return "ok"
		},
	})

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing required", `{}`, `missing required argument "x"`},
		{"wrong type", `{"x": "abc"}`, `invalid argument "x"`},
		{"fractional integer", `{"x": 1.5}`, `invalid argument "x"`},
		{"invalid json", `{`, "invalid argument JSON"},
		{"valid", `{"x": 3}`, "ok"},
		{"numeric string", `{"x": "42"}`, "ok"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Dispatch(context.Background(), "move", tc.args, Capabilities{})
			if !strings.Contains(got, tc.want) {
				t.Errorf("Dispatch(%s) = %q, want substring %q", tc.args, got, tc.want)
			}
		})
	}
}

func TestDispatchContainsPanic(t *testing.T) {
	r := testRegistry(t, Spec{
		Definition: Definition{Name: "explode"},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			panic("boom")
		},
	})
	got := r.Dispatch(context.Background(), "explode", "{}", Capabilities{})
	if !strings.Contains(got, "boom") {
		t.Errorf("Dispatch() = %q, want contained panic message", got)
	}
}

func TestDispatchTogglesOverlay(t *testing.T) {
	overlay := &recordingOverlay{}
	r := testRegistry(t, Spec{
		Definition: Definition{Name: "act"},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			return "done"
		},
	})
	r.Dispatch(context.Background(), "act", "{}", Capabilities{Overlay: overlay})
	want := []bool{true, false}
	if len(overlay.states) != 2 || overlay.states[0] != want[0] || overlay.states[1] != want[1] {
		t.Errorf("overlay states = %v, want %v", overlay.states, want)
	}
}

func TestDispatchClearsOverlayOnPanic(t *testing.T) {
	overlay := &recordingOverlay{}
	r := testRegistry(t, Spec{
		Definition: Definition{Name: "explode"},
		Handler: func(ctx context.Context, args Args, caps Capabilities) string {
			panic("boom")
		},
	})
	r.Dispatch(context.Background(), "explode", "{}", Capabilities{Overlay: overlay})
	if len(overlay.states) != 2 || overlay.states[1] != false {
		t.Errorf("overlay states = %v, want acting cleared after panic", overlay.states)
	}
}

func TestNewRegistryPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewRegistry accepted a duplicate tool name")
		}
	}()
	NewRegistry(
		Spec{Definition: Definition{Name: "dup"}},
		Spec{Definition: Definition{Name: "dup"}},
	)
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := testRegistry(t,
		Spec{Definition: Definition{Name: "c"}},
		Spec{Definition: Definition{Name: "a"}},
		Spec{Definition: Definition{Name: "b"}},
	)
	defs := r.List()
	want := []string{"c", "a", "b"}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, d.Name, want[i])
		}
	}
}

type recordingOverlay struct {
	states []bool
}

func (o *recordingOverlay) SetActing(acting bool) {
	o.states = append(o.states, acting)
}

var _ device.Overlay = (*recordingOverlay)(nil)
