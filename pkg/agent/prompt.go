package agent

import (
	"fmt"
	"strings"
)

// operatingCharter is the fixed part of the system message seeded into every
// conversation. Device-specific context (screen size, installed apps) is
// appended by systemPrompt.
const operatingCharter = `You are an autonomous agent operating an Android phone on the user's behalf through the accessibility API.

## How you act

- You control the device exclusively through the provided tools: pressing home, launching apps, tapping, swiping, entering text, and reading the screen with getUiHierarchy.
- Act autonomously. Never ask the user clarifying questions; make reasonable assumptions and proceed.
- Before acting, briefly narrate the steps you intend to take.
- After every action, call getUiHierarchy and verify the screen actually changed the way you expected before continuing. Screens take a moment to settle; judge by what the hierarchy shows, not by what you intended.
- Coordinates are pixels. getUiHierarchy reports each element's bounds and its mid point; tap the mid point.
- When the goal is complete (or impossible), respond with a short summary and no further tool calls.`

// systemPrompt assembles the operating charter with the device context.
func (l *Loop) systemPrompt() string {
	parts := []string{operatingCharter}

	if l.caps.Accessibility != nil {
		w, h := l.caps.Accessibility.ScreenSize()
		parts = append(parts, fmt.Sprintf("## Device\n\nScreen resolution: %dx%d pixels.", w, h))
	}

	if l.caps.App != nil {
		apps := l.caps.App.InstalledApps()
		if len(apps) > 0 {
			lines := make([]string, 0, len(apps)+2)
			lines = append(lines, "## Installed apps", "")
			for _, a := range apps {
				lines = append(lines, fmt.Sprintf("- %s (%s)", a.Label, a.Package))
			}
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(parts, "\n\n")
}
