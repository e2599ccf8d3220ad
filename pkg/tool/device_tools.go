package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/droidpilot/droidpilot/pkg/device"
	"github.com/droidpilot/droidpilot/pkg/uistate"
)

// Tool names. ToolGetUIHierarchy is also referenced by transcript compaction.
const (
	ToolHome           = "home"
	ToolStartApp       = "startApp"
	ToolClick          = "click"
	ToolSwipe          = "swipe"
	ToolEnterText      = "enterText"
	ToolGetUIHierarchy = "getUiHierarchy"
	ToolActionView     = "actionView"
)

const (
	tapDuration          = 50 * time.Millisecond
	defaultSwipeDuration = 300 * time.Millisecond
	gestureWait          = 2 * time.Second
)

// DeviceRegistry builds the static tool table for phone control. The table is
// constructed once at process start; there is no dynamic registration.
func DeviceRegistry() *Registry {
	return NewRegistry(
		Spec{
			Definition: Definition{
				Name:                  ToolHome,
				Description:           "Press the system home button to return to the launcher.",
				RequiresAccessibility: true,
			},
			Handler: handleHome,
		},
		Spec{
			Definition: Definition{
				Name:        ToolStartApp,
				Description: "Launch an app by its package name. Faster and more reliable than navigating the launcher.",
				Parameters: []Parameter{
					{Name: "package_name", Type: TypeString, Description: "Android package name of the app to launch, e.g. com.android.settings", Required: true},
				},
				RequiresAppContext: true,
			},
			Handler: handleStartApp,
		},
		Spec{
			Definition: Definition{
				Name:        ToolClick,
				Description: "Tap the screen at the given pixel coordinates. Use the mid point reported by getUiHierarchy to target elements.",
				Parameters: []Parameter{
					{Name: "x", Type: TypeInteger, Description: "Horizontal pixel coordinate", Required: true},
					{Name: "y", Type: TypeInteger, Description: "Vertical pixel coordinate", Required: true},
				},
				RequiresAccessibility: true,
			},
			Handler: handleClick,
		},
		Spec{
			Definition: Definition{
				Name:        ToolSwipe,
				Description: "Swipe in a straight line between two points. Use a longer duration for text-selection drags.",
				Parameters: []Parameter{
					{Name: "start_x", Type: TypeInteger, Description: "Start x coordinate", Required: true},
					{Name: "start_y", Type: TypeInteger, Description: "Start y coordinate", Required: true},
					{Name: "end_x", Type: TypeInteger, Description: "End x coordinate", Required: true},
					{Name: "end_y", Type: TypeInteger, Description: "End y coordinate", Required: true},
					{Name: "duration", Type: TypeInteger, Description: "Gesture duration in milliseconds (default 300)", Required: false},
				},
				RequiresAccessibility: true,
			},
			Handler: handleSwipe,
		},
		Spec{
			Definition: Definition{
				Name:        ToolEnterText,
				Description: "Type text into the currently focused input field. Tap the field first if it is not focused. Unless submit is true, a trailing newline is entered as the conventional submit signal.",
				Parameters: []Parameter{
					{Name: "text", Type: TypeString, Description: "The text to enter", Required: true},
					{Name: "submit", Type: TypeBoolean, Description: "When true, press the submit/enter key after typing instead of appending a newline", Required: false},
				},
				RequiresAccessibility: true,
			},
			Handler: handleEnterText,
		},
		Spec{
			Definition: Definition{
				Name:                  ToolGetUIHierarchy,
				Description:           "Dump the current screen's UI hierarchy as indented text with element attributes, bounds and mid points.",
				RequiresAccessibility: true,
			},
			Handler: handleGetUIHierarchy,
		},
		Spec{
			Definition: Definition{
				Name:        ToolActionView,
				Description: "Open a URL with a view intent scoped to a specific app package.",
				Parameters: []Parameter{
					{Name: "package_name", Type: TypeString, Description: "Package that should handle the URL", Required: true},
					{Name: "url", Type: TypeString, Description: "The URL to open", Required: true},
				},
				RequiresAppContext: true,
			},
			Handler: handleActionView,
		},
	)
}

func handleHome(ctx context.Context, args Args, caps Capabilities) string {
	if err := caps.Accessibility.PerformGlobalAction(device.ActionHome); err != nil {
		return fmt.Sprintf("Error: failed to press home button: %v", err)
	}
	return "Pressed home button"
}

func handleStartApp(ctx context.Context, args Args, caps Capabilities) string {
	pkg := args.String("package_name")
	if err := caps.App.LaunchApp(pkg); err != nil {
		if errors.Is(err, device.ErrAppNotFound) {
			return fmt.Sprintf("App with package name %s not found", pkg)
		}
		return fmt.Sprintf("Error: failed to start %s: %v", pkg, err)
	}
	return fmt.Sprintf("Started app %s", pkg)
}

func handleClick(ctx context.Context, args Args, caps Capabilities) string {
	x, y := args.Int("x"), args.Int("y")
	if !device.AwaitGesture(caps.Accessibility, device.Tap(x, y, tapDuration), gestureWait) {
		return fmt.Sprintf("Failed to click at coordinates (%d, %d)", x, y)
	}
	return fmt.Sprintf("Clicked at coordinates (%d, %d)", x, y)
}

func handleSwipe(ctx context.Context, args Args, caps Capabilities) string {
	x1, y1 := args.Int("start_x"), args.Int("start_y")
	x2, y2 := args.Int("end_x"), args.Int("end_y")
	duration := defaultSwipeDuration
	if ms := args.Int("duration"); ms > 0 {
		duration = time.Duration(ms) * time.Millisecond
	}
	if !device.AwaitGesture(caps.Accessibility, device.Swipe(x1, y1, x2, y2, duration), gestureWait+duration) {
		return fmt.Sprintf("Failed to swipe from (%d, %d) to (%d, %d)", x1, y1, x2, y2)
	}
	return fmt.Sprintf("Swiped from (%d, %d) to (%d, %d)", x1, y1, x2, y2)
}

func handleEnterText(ctx context.Context, args Args, caps Capabilities) string {
	text := args.String("text")
	submit, _ := args.Bool("submit")

	if _, err := caps.Accessibility.FocusedEditable(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	if submit {
		if err := caps.Accessibility.SetTextOnFocused(text); err != nil {
			return fmt.Sprintf("Error: failed to enter text: %v", err)
		}
		if err := caps.Accessibility.SendEnterKey(); err != nil {
			return fmt.Sprintf("Error: failed to submit: %v", err)
		}
		return fmt.Sprintf("Entered text and submitted: %s", text)
	}

	// A trailing newline is the conventional default Enter signal for most
	// input methods.
	if err := caps.Accessibility.SetTextOnFocused(text + "\n"); err != nil {
		return fmt.Sprintf("Error: failed to enter text: %v", err)
	}
	return fmt.Sprintf("Entered text: %s", text)
}

func handleGetUIHierarchy(ctx context.Context, args Args, caps Capabilities) string {
	root, err := caps.Accessibility.Root()
	if err != nil {
		return fmt.Sprintf("Error: failed to read UI hierarchy: %v", err)
	}
	return uistate.Serialize(root)
}

func handleActionView(ctx context.Context, args Args, caps Capabilities) string {
	pkg, url := args.String("package_name"), args.String("url")
	if err := caps.App.OpenURL(pkg, url); err != nil {
		return fmt.Sprintf("Error: failed to open %s in %s: %v", url, pkg, err)
	}
	return fmt.Sprintf("Opened %s in %s", url, pkg)
}
