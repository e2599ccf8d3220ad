// Package device defines the boundary to the Android accessibility host and
// application context. The host shell (foreground service, overlay windows,
// permission flow) lives outside this module; the agent only sees the
// primitives below.
package device

import (
	"errors"
	"time"
)

var (
	// ErrAppNotFound is returned when no launch intent exists for a package.
	ErrAppNotFound = errors.New("no launch intent for package")
	// ErrNoFocusedEditable is returned when text entry finds no focused input.
	ErrNoFocusedEditable = errors.New("no focused editable element")
	// ErrNotEditable is returned when the focused element rejects text input.
	ErrNotEditable = errors.New("focused element is not editable")
)

// Rect is a node's on-screen pixel bounds.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Mid returns the midpoint of the rect, the usual tap target.
func (r Rect) Mid() (int, int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Node is an immutable snapshot of one accessibility-tree node.
type Node struct {
	Class       string
	Text        string
	Description string
	ResourceID  string

	Clickable  bool
	Focusable  bool
	Scrollable bool
	Editable   bool
	Disabled   bool
	Focused    bool

	Bounds   Rect
	Children []*Node
}

// Point is a pixel coordinate.
type Point struct {
	X, Y int
}

// Gesture is a straight-line stroke description: a path of points covered in
// Duration. Taps are a single-point path with a short duration.
type Gesture struct {
	Path     []Point
	Duration time.Duration
}

// Tap builds a gesture for a single tap at (x, y).
func Tap(x, y int, duration time.Duration) Gesture {
	return Gesture{Path: []Point{{X: x, Y: y}}, Duration: duration}
}

// Swipe builds a straight-line gesture between two points.
func Swipe(x1, y1, x2, y2 int, duration time.Duration) Gesture {
	return Gesture{Path: []Point{{X: x1, Y: y1}, {X: x2, Y: y2}}, Duration: duration}
}

// GlobalAction is a system-level key event.
type GlobalAction int

const (
	ActionHome GlobalAction = iota
	ActionBack
)

// Accessibility is the handle to a live accessibility service. All methods
// may be called from the agent's worker goroutine only.
type Accessibility interface {
	// Root returns a snapshot of the active window's node tree.
	Root() (*Node, error)

	// DispatchGesture issues a stroke. done is invoked exactly once, with
	// true when the gesture ran to completion and false when the system
	// cancelled it. An error means the gesture was never dispatched.
	DispatchGesture(g Gesture, done func(completed bool)) error

	// PerformGlobalAction issues a system key event (home, back).
	PerformGlobalAction(a GlobalAction) error

	// FocusedEditable returns the currently focused input element.
	// Returns ErrNoFocusedEditable when nothing has input focus and
	// ErrNotEditable when the focused element is not an input.
	FocusedEditable() (*Node, error)

	// SetTextOnFocused replaces the focused element's text.
	SetTextOnFocused(text string) error

	// SendEnterKey emits the IME submit action on the focused element.
	SendEnterKey() error

	// ScreenSize returns the display resolution in pixels.
	ScreenSize() (width, height int)
}

// AppInfo identifies one launchable application.
type AppInfo struct {
	Label   string `json:"label"`
	Package string `json:"package"`
}

// AppContext is the handle to the host application context, used for
// intent-based operations that do not need the accessibility service.
type AppContext interface {
	// LaunchApp starts the package's launch activity with
	// new-task/clear-top flags. Returns ErrAppNotFound when the package has
	// no launch intent.
	LaunchApp(pkg string) error

	// OpenURL opens a URL via a view intent scoped to the given package.
	OpenURL(pkg, url string) error

	// InstalledApps lists launchable applications on the device.
	InstalledApps() []AppInfo
}

// Overlay is the agent-status overlay surface. The dispatcher hides it while
// a tool acts so it cannot obstruct the gesture target.
type Overlay interface {
	SetActing(acting bool)
}

// AwaitGesture dispatches g and blocks until the completion callback fires or
// the timeout elapses. Returns true only when the gesture ran to completion.
// The wait is bounded: a stuck gesture cannot stall the caller past timeout.
func AwaitGesture(a Accessibility, g Gesture, timeout time.Duration) bool {
	done := make(chan bool, 1)
	if err := a.DispatchGesture(g, func(completed bool) { done <- completed }); err != nil {
		return false
	}
	select {
	case ok := <-done:
		return ok
	case <-time.After(timeout):
		return false
	}
}
