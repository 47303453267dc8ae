package bot

import (
	"fmt"
	"strings"

	"github.com/groupasks/askbot/internal/repo"
)

// formatAssignments renders a user's open-assignments list. Button indexes
// on the accompanying keyboard match the numbering here.
func formatAssignments(assignments []repo.OpenAssignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your open assignments (%d):\n\n", len(assignments))
	for i, a := range assignments {
		fmt.Fprintf(&b, "%d. From %s: %s\n\n", i+1, a.RequesterName, a.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatOpenAsks renders the fan-out view of every open ask in the chat
// scope, with a status marker per assignee.
func formatOpenAsks(asks []repo.OpenAsk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "All open asks (%d):\n\n", len(asks))
	for i, ask := range asks {
		statuses := make([]string, 0, len(ask.Assignees))
		for _, a := range ask.Assignees {
			marker := "⏳"
			if a.Status == "done" {
				marker = "✅"
			}
			statuses = append(statuses, a.Name+" "+marker)
		}
		fmt.Fprintf(&b, "%d. %s\n   └ %s\n\n", i+1, ask.Text, strings.Join(statuses, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
