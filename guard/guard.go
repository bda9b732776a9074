// Package guard is the access-control core of warden: the last check
// between model-generated output and a privileged operation on the
// host. Collaborators (the command executor, the file tools, the URL
// fetcher) submit every privileged action to Evaluate before acting,
// and must treat a deny as final.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyxmori/warden/blocklist"
	"github.com/nyxmori/warden/internal/strutil"
)

const summaryMaxBytes = 512

// Guard composes the blocklist, the file-access guard, the code
// scanner and the network policy into a single decision point, and
// records the decisions that matter through its audit sink. Immutable
// after construction; build a new Guard to reconfigure.
type Guard struct {
	cfg       Config
	cmds      *blocklist.List
	files     *FileGuard
	redactor  *Redactor
	sink      AuditSink
	approvals ApprovalStore

	lookupHost LookupHostFunc
}

// New builds a Guard from cfg. sink and approvals may be nil: without
// a sink decisions are simply not recorded, without a store no action
// can be held for approval (RequireApproval then degrades to allow,
// with a warning).
func New(cfg Config, sink AuditSink, approvals ApprovalStore) *Guard {
	return &Guard{
		cfg:       cfg,
		cmds:      blocklist.Default(cfg.Exec.BlocklistPath),
		files:     NewFileGuard(cfg.WorkingDir, cfg.Enabled),
		redactor:  NewRedactor(cfg.Redaction),
		sink:      sink,
		approvals: approvals,
	}
}

// SetLookupHost overrides DNS resolution for the network policy.
// Intended for tests.
func (g *Guard) SetLookupHost(fn LookupHostFunc) {
	g.lookupHost = fn
}

// Files exposes the file-access guard for collaborators that need
// ProtectedPatternsText or direct path checks.
func (g *Guard) Files() *FileGuard {
	if g == nil {
		return nil
	}
	return g.files
}

// Redactor exposes the configured redactor so the audit log and other
// outputs can share it.
func (g *Guard) Redactor() *Redactor {
	if g == nil {
		return nil
	}
	return g.redactor
}

// Evaluate decides whether action may proceed. It never returns an
// error for a deny; the error return covers only malformed requests
// (unknown action type). Every deny and every sensitive allowed
// operation is emitted to the audit sink.
func (g *Guard) Evaluate(ctx context.Context, meta Meta, action Action) (Result, error) {
	if g == nil || !g.cfg.Enabled {
		return Result{RiskLevel: RiskLow, Decision: DecisionAllow}, nil
	}
	if meta.Time.IsZero() {
		meta.Time = time.Now().UTC()
	}

	switch action.Type {
	case ActionCommandExec:
		return g.evaluateCommand(ctx, meta, action), nil
	case ActionCodeRun:
		return g.evaluateCode(ctx, meta, action), nil
	case ActionFileRead, ActionFileWrite:
		return g.evaluateFile(ctx, meta, action), nil
	case ActionURLFetch:
		return g.evaluateURL(ctx, meta, action), nil
	default:
		return Result{}, fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (g *Guard) evaluateCommand(ctx context.Context, meta Meta, action Action) Result {
	if blocked, pattern := g.cmds.IsBlocked(action.Command); blocked {
		res := deny(RiskCritical, fmt.Sprintf("command matches blocked pattern %q", pattern))
		g.emit(ctx, meta, action, EventCommandBlocked, res)
		return res
	}
	if flagged, reason := ScanCode(action.Command, g.files); flagged {
		res := deny(RiskHigh, reason)
		g.emit(ctx, meta, action, EventCommandBlocked, res)
		return res
	}
	if g.cfg.Exec.RequireApproval {
		if res, ok := g.hold(ctx, meta, action, "command execution requires operator approval"); ok {
			return res
		}
	}
	res := Result{RiskLevel: RiskMedium, Decision: DecisionAllow}
	g.emit(ctx, meta, action, EventCommandExecuted, res)
	return res
}

func (g *Guard) evaluateCode(ctx context.Context, meta Meta, action Action) Result {
	if blocked, pattern := g.cmds.IsBlocked(action.Code); blocked {
		res := deny(RiskCritical, fmt.Sprintf("code matches blocked pattern %q", pattern))
		g.emit(ctx, meta, action, EventCodeFlagged, res)
		return res
	}
	if flagged, reason := ScanCode(action.Code, g.files); flagged {
		res := deny(RiskHigh, reason)
		g.emit(ctx, meta, action, EventCodeFlagged, res)
		return res
	}
	return Result{RiskLevel: RiskLow, Decision: DecisionAllow}
}

func (g *Guard) evaluateFile(ctx context.Context, meta Meta, action Action) Result {
	allowed, reason := g.files.IsPathAllowed(action.Path)
	if !allowed {
		res := deny(RiskHigh, reason)
		g.emit(ctx, meta, action, EventFileDenied, res)
		return res
	}
	res := Result{RiskLevel: RiskLow, Decision: DecisionAllow}
	if action.Type == ActionFileWrite {
		// Writes are the designated sensitive success: record them.
		res.RiskLevel = RiskMedium
		g.emit(ctx, meta, action, EventFileWritten, res)
	}
	return res
}

func (g *Guard) evaluateURL(ctx context.Context, meta Meta, action Action) Result {
	pol := NetworkPolicy{
		AllowedURLPrefixes: g.cfg.Network.URLFetch.AllowedURLPrefixes,
		DenyPrivateIPs:     g.cfg.Network.URLFetch.DenyPrivateIPs,
		ResolveDNS:         g.cfg.Network.URLFetch.ResolveDNS,
		LookupHost:         g.lookupHost,
	}
	if err := pol.CheckURL(action.URL); err != nil {
		res := deny(RiskMedium, err.Error())
		g.emit(ctx, meta, action, EventURLDenied, res)
		return res
	}
	return Result{RiskLevel: RiskLow, Decision: DecisionAllow}
}

// hold creates a pending approval record for action. ok is false when
// no store is configured, in which case the caller falls through to
// its default decision.
func (g *Guard) hold(ctx context.Context, meta Meta, action Action, reason string) (Result, bool) {
	if g.approvals == nil {
		slog.Warn("guard: approval required but no approval store configured, allowing", "action", action.Type)
		return Result{}, false
	}
	id, err := g.approvals.Create(ctx, ApprovalRecord{
		RunID:           meta.RunID,
		ActionType:      action.Type,
		ActionHash:      ActionHash(action),
		RiskLevel:       RiskMedium,
		Reasons:         []string{reason},
		SummaryRedacted: g.summarize(action),
	})
	if err != nil {
		slog.Warn("guard: cannot create approval record, denying", "error", err)
		return deny(RiskMedium, "approval required but approval store failed"), true
	}
	res := Result{
		RiskLevel:         RiskMedium,
		Decision:          DecisionRequireApproval,
		Reasons:           []string{reason},
		ApprovalRequestID: id,
	}
	g.emit(ctx, meta, action, EventApprovalPending, res)
	return res, true
}

func deny(risk RiskLevel, reason string) Result {
	return Result{RiskLevel: risk, Decision: DecisionDeny, Reasons: []string{reason}}
}

func (g *Guard) summarize(action Action) string {
	var payload string
	switch action.Type {
	case ActionCommandExec:
		payload = action.Command
	case ActionCodeRun:
		payload = action.Code
	case ActionFileRead, ActionFileWrite:
		payload = action.Path
	case ActionURLFetch:
		payload = action.URL
	}
	payload = strutil.TruncateUTF8(strutil.FirstLine(payload), summaryMaxBytes)
	if g.redactor != nil {
		payload, _ = g.redactor.RedactString(payload)
	}
	return fmt.Sprintf("%s: %s", action.Type, payload)
}

func (g *Guard) emit(ctx context.Context, meta Meta, action Action, eventType string, res Result) {
	if g.sink == nil {
		return
	}
	e := AuditEvent{
		EventID:         newEventID(meta),
		RunID:           meta.RunID,
		Time:            meta.Time,
		Type:            eventType,
		Decision:        res.Decision,
		Reasons:         res.Reasons,
		SummaryRedacted: g.summarize(action),
	}
	if err := g.sink.Emit(ctx, e); err != nil {
		// Audit failures never interrupt the decision they record.
		slog.Warn("guard: audit emit failed", "event", eventType, "error", err)
	}
}
