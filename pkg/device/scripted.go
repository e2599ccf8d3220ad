package device

import (
	"fmt"
	"sync"
)

// Scripted is an in-memory device used for off-device runs and tests. Every
// gesture completes immediately and every action is recorded.
type Scripted struct {
	mu      sync.Mutex
	root    *Node
	apps    []AppInfo
	width   int
	height  int
	focused *Node
	actions []string

	// GestureOutcome controls what the completion callback reports.
	// Nil callbacks simulate a gesture that never completes.
	GestureOutcome *bool
}

// NewScripted returns a scripted device with the given screen size.
func NewScripted(width, height int) *Scripted {
	completed := true
	return &Scripted{
		width:          width,
		height:         height,
		GestureOutcome: &completed,
	}
}

func (s *Scripted) SetRoot(root *Node)     { s.mu.Lock(); s.root = root; s.mu.Unlock() }
func (s *Scripted) SetFocused(n *Node)     { s.mu.Lock(); s.focused = n; s.mu.Unlock() }
func (s *Scripted) SetApps(apps []AppInfo) { s.mu.Lock(); s.apps = apps; s.mu.Unlock() }

// Actions returns the recorded action log.
func (s *Scripted) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *Scripted) record(format string, args ...any) {
	s.mu.Lock()
	s.actions = append(s.actions, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *Scripted) Root() (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return &Node{Class: "FrameLayout", Bounds: Rect{Right: s.width, Bottom: s.height}}, nil
	}
	return s.root, nil
}

func (s *Scripted) DispatchGesture(g Gesture, done func(completed bool)) error {
	s.record("gesture path=%d duration=%s", len(g.Path), g.Duration)
	s.mu.Lock()
	outcome := s.GestureOutcome
	s.mu.Unlock()
	if outcome != nil && done != nil {
		done(*outcome)
	}
	return nil
}

func (s *Scripted) PerformGlobalAction(a GlobalAction) error {
	s.record("global action %d", a)
	return nil
}

func (s *Scripted) FocusedEditable() (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return nil, ErrNoFocusedEditable
	}
	if !s.focused.Editable {
		return nil, ErrNotEditable
	}
	return s.focused, nil
}

func (s *Scripted) SetTextOnFocused(text string) error {
	if _, err := s.FocusedEditable(); err != nil {
		return err
	}
	s.record("set text %q", text)
	return nil
}

func (s *Scripted) SendEnterKey() error {
	s.record("enter key")
	return nil
}

func (s *Scripted) ScreenSize() (int, int) {
	return s.width, s.height
}

func (s *Scripted) LaunchApp(pkg string) error {
	s.mu.Lock()
	apps := s.apps
	s.mu.Unlock()
	for _, a := range apps {
		if a.Package == pkg {
			s.record("launch %s", pkg)
			return nil
		}
	}
	return ErrAppNotFound
}

func (s *Scripted) OpenURL(pkg, url string) error {
	s.record("view %s in %s", url, pkg)
	return nil
}

func (s *Scripted) InstalledApps() []AppInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps
}

var (
	_ Accessibility = (*Scripted)(nil)
	_ AppContext    = (*Scripted)(nil)
)
