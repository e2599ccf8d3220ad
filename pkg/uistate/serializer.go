// Package uistate renders accessibility-tree snapshots as compact text for
// inclusion in a model prompt. The transformation is pure: the same tree
// always yields the same text.
package uistate

import (
	"fmt"
	"strings"

	"github.com/droidpilot/droidpilot/pkg/device"
)

// Serialize renders the tree rooted at root as indented text, one line per
// meaningful node. Layout-only wrappers (no attributes, exactly one child)
// are elided and replaced by their child, which keeps deeply nested view
// trees from bloating the prompt.
func Serialize(root *device.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *device.Node, depth int) {
	// Collapse chains of attribute-less single-child wrappers.
	for !hasAttributes(n) && len(n.Children) == 1 {
		n = n.Children[0]
	}

	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(shortClass(n.Class))

	if attrs := formatAttributes(n); attrs != "" {
		b.WriteString(" {")
		b.WriteString(attrs)
		b.WriteString("}")
	}

	mx, my := n.Bounds.Mid()
	fmt.Fprintf(b, " bounds=(%d,%d,%d,%d) mid=(%d,%d)\n",
		n.Bounds.Left, n.Bounds.Top, n.Bounds.Right, n.Bounds.Bottom, mx, my)

	for _, child := range n.Children {
		writeNode(b, child, depth+1)
	}
}

func hasAttributes(n *device.Node) bool {
	return n.Text != "" || n.Description != "" || n.ResourceID != "" ||
		n.Clickable || n.Focusable || n.Scrollable || n.Editable || n.Disabled
}

// formatAttributes lists text, description, resource-id, then flags, with
// flags included only when set.
func formatAttributes(n *device.Node) string {
	var parts []string
	if n.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", n.Text))
	}
	if n.Description != "" {
		parts = append(parts, fmt.Sprintf("desc=%q", n.Description))
	}
	if n.ResourceID != "" {
		parts = append(parts, "id="+stripIDPrefix(n.ResourceID))
	}
	for _, f := range []struct {
		set  bool
		name string
	}{
		{n.Clickable, "clickable"},
		{n.Focusable, "focusable"},
		{n.Scrollable, "scrollable"},
		{n.Editable, "editable"},
		{n.Disabled, "disabled"},
	} {
		if f.set {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ", ")
}

// shortClass strips the package from a fully qualified view class name.
// "android.widget.Button" -> "Button".
func shortClass(class string) string {
	if class == "" {
		return "View"
	}
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// stripIDPrefix removes the "package:id/" prefix from a resource id.
// "com.example:id/submit" -> "submit".
func stripIDPrefix(id string) string {
	if i := strings.Index(id, ":id/"); i >= 0 {
		return id[i+len(":id/"):]
	}
	return id
}
