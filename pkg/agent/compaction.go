package agent

import (
	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

// HierarchyPlaceholder replaces historical UI-hierarchy dumps in the
// transcript sent to the model.
const HierarchyPlaceholder = "[UI hierarchy omitted; only the most recent dump is kept]"

// CompactHierarchyDumps replaces the content of every getUiHierarchy tool
// result except the most recent one with a short placeholder. Old dumps
// describe screens that no longer exist and would grow the prompt without
// bound over a long task. The operation is idempotent.
func CompactHierarchyDumps(messages []domain.Message) {
	last := -1
	for i, m := range messages {
		if isHierarchyResult(m) {
			last = i
		}
	}
	for i := range messages {
		if i == last || !isHierarchyResult(messages[i]) {
			continue
		}
		messages[i].Content = []domain.Content{{
			Type: domain.ContentTypeText,
			Text: HierarchyPlaceholder,
		}}
	}
}

func isHierarchyResult(m domain.Message) bool {
	return m.Role == domain.RoleTool && m.Name == tool.ToolGetUIHierarchy
}
