package prompt

// Resolution sentinels. These are values, not errors: a variable whose data
// is absent renders as one of these strings so the rest of the prompt still
// renders.
const (
	SentinelNA               = "N/A"
	SentinelProjectRequired  = "N/A (project context required)"
	SentinelProjectNotFound  = "N/A (Project not found)"
	SentinelTaskNotFound     = "N/A (Task not found)"
	SentinelSprintNotFound   = "N/A (Sprint not found)"
	SentinelDocumentNotFound = "N/A (Document not found)"
	SentinelUserNotFound     = "N/A (User not found)"
	SentinelNoTasks          = "No tasks found"
	SentinelNoSprints        = "No sprints found"
	SentinelNoDocuments      = "No documents found"
	SentinelNoMembers        = "No members found"
)

var sentinels = map[string]struct{}{
	SentinelNA:               {},
	SentinelProjectRequired:  {},
	SentinelProjectNotFound:  {},
	SentinelTaskNotFound:     {},
	SentinelSprintNotFound:   {},
	SentinelDocumentNotFound: {},
	SentinelUserNotFound:     {},
	SentinelNoTasks:          {},
	SentinelNoSprints:        {},
	SentinelNoDocuments:      {},
	SentinelNoMembers:        {},
}

// IsSentinel reports whether a resolved value is a "nothing to show" marker
// rather than real data. The composer uses this to decide whether a
// variable's default value should take over. Membership is exact so genuine
// data that merely resembles a marker is never swapped out.
func IsSentinel(s string) bool {
	_, ok := sentinels[s]
	return ok
}
