package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Decision string

const (
	DecisionAllow           Decision = "allow"
	DecisionRequireApproval Decision = "require_approval"
	DecisionDeny            Decision = "deny"
)

type ActionType string

const (
	ActionCommandExec ActionType = "CommandExec"
	ActionCodeRun     ActionType = "CodeRun"
	ActionFileRead    ActionType = "FileRead"
	ActionFileWrite   ActionType = "FileWrite"
	ActionURLFetch    ActionType = "URLFetch"
)

type Meta struct {
	RunID string
	Step  int
	Time  time.Time
}

// Action is one privileged operation a collaborator wants to perform
// on behalf of the model. Exactly one of the payload fields is
// meaningful per type: Command for CommandExec, Code for CodeRun, Path
// for FileRead/FileWrite, URL for URLFetch.
type Action struct {
	Type ActionType

	Command string
	Code    string
	Path    string
	URL     string
}

type Result struct {
	RiskLevel RiskLevel
	Decision  Decision
	Reasons   []string

	ApprovalRequestID string
}

func (r Result) Allowed() bool { return r.Decision == DecisionAllow }

// AuditEventType names follow the subsystem.outcome convention so the
// pipe-delimited log stays grep-friendly.
const (
	EventCommandBlocked  = "command.blocked"
	EventCommandExecuted = "command.executed"
	EventCodeFlagged     = "code.flagged"
	EventFileDenied      = "file.denied"
	EventFileWritten     = "file.written"
	EventURLDenied       = "url.denied"
	EventApprovalPending = "approval.pending"
)

func newEventID(meta Meta) string {
	seed := fmt.Sprintf("%s|%d|%s", meta.RunID, meta.Step, meta.Time.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(seed))
	return "evt_" + hex.EncodeToString(sum[:8])
}

// ActionHash is a stable digest of an action's meaningful fields, used
// to correlate an approval record with the action it holds.
func ActionHash(a Action) string {
	var b strings.Builder
	b.WriteString(string(a.Type))
	for _, field := range []string{a.Command, a.Code, a.Path, a.URL} {
		b.WriteByte(0)
		b.WriteString(strings.TrimSpace(field))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
