package guard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type memorySink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *memorySink) Emit(_ context.Context, e AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) byType(t string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestGuard(t *testing.T, sink AuditSink, approvals ApprovalStore, mut func(*Config)) *Guard {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\nsecrets/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		Enabled:    true,
		WorkingDir: dir,
	}
	if mut != nil {
		mut(&cfg)
	}
	return New(cfg, sink, approvals)
}

func TestEvaluateBlockedCommand(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, nil)

	res, err := g.Evaluate(context.Background(), Meta{RunID: "r1"}, Action{
		Type:    ActionCommandExec,
		Command: "rm -rf /",
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.Decision != DecisionDeny {
		t.Fatalf("expected deny, got %s", res.Decision)
	}
	if res.RiskLevel != RiskCritical {
		t.Fatalf("expected critical risk, got %s", res.RiskLevel)
	}
	events := sink.byType(EventCommandBlocked)
	if len(events) != 1 {
		t.Fatalf("expected one command.blocked event, got %d", len(events))
	}
	if events[0].RunID != "r1" || events[0].EventID == "" {
		t.Fatalf("event not correlated: %+v", events[0])
	}
}

func TestEvaluateAllowedCommandIsAudited(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, nil)

	res, err := g.Evaluate(context.Background(), Meta{RunID: "r1"}, Action{
		Type:    ActionCommandExec,
		Command: "echo hello",
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !res.Allowed() {
		t.Fatalf("expected allow, got %s (%v)", res.Decision, res.Reasons)
	}
	if len(sink.byType(EventCommandExecuted)) != 1 {
		t.Fatal("allowed command executions are a designated sensitive operation and must be audited")
	}
}

func TestEvaluateCommandReferencingProtectedFile(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, nil)

	res, _ := g.Evaluate(context.Background(), Meta{}, Action{
		Type:    ActionCommandExec,
		Command: "cat .env",
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("expected deny for protected reference, got %s", res.Decision)
	}
	if len(res.Reasons) == 0 || !strings.Contains(res.Reasons[0], ".env") {
		t.Fatalf("reason should name the pattern: %v", res.Reasons)
	}
}

func TestEvaluateCodeRun(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, nil)

	res, _ := g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionCodeRun,
		Code: `with open("secrets/api.txt") as f: print(f.read())`,
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("expected deny, got %s", res.Decision)
	}
	if len(sink.byType(EventCodeFlagged)) != 1 {
		t.Fatal("expected a code.flagged audit event")
	}

	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionCodeRun,
		Code: `print("hello")`,
	})
	if !res.Allowed() {
		t.Fatalf("safe code denied: %v", res.Reasons)
	}
}

func TestEvaluateFileAccess(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, nil)
	dir := g.Files().WorkingDir()

	// Read inside: allowed, not audited.
	res, _ := g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionFileRead,
		Path: filepath.Join(dir, "main.go"),
	})
	if !res.Allowed() {
		t.Fatalf("read inside working dir denied: %v", res.Reasons)
	}

	// Write inside: allowed and audited.
	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionFileWrite,
		Path: filepath.Join(dir, "main.go"),
	})
	if !res.Allowed() {
		t.Fatalf("write inside working dir denied: %v", res.Reasons)
	}
	if len(sink.byType(EventFileWritten)) != 1 {
		t.Fatal("file writes must be audited")
	}

	// Outside: denied and audited.
	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionFileRead,
		Path: "/etc/passwd",
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("expected deny, got %s", res.Decision)
	}
	if len(sink.byType(EventFileDenied)) != 1 {
		t.Fatal("denied file access must be audited")
	}
}

func TestEvaluateURLFetch(t *testing.T) {
	sink := &memorySink{}
	g := newTestGuard(t, sink, nil, func(cfg *Config) {
		cfg.Network.URLFetch = URLFetchNetworkPolicy{
			AllowedURLPrefixes: []string{"https://", "http://"},
			DenyPrivateIPs:     true,
			ResolveDNS:         true,
		}
	})
	g.SetLookupHost(func(host string) ([]string, error) {
		if host == "evil.test" {
			return []string{"127.0.0.1"}, nil
		}
		return []string{"93.184.216.34"}, nil
	})

	res, _ := g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionURLFetch,
		URL:  "http://169.254.169.254/latest/meta-data/",
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("metadata endpoint must be denied, got %s", res.Decision)
	}

	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionURLFetch,
		URL:  "https://evil.test/exfil",
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("private-resolving host must be denied, got %s", res.Decision)
	}

	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type: ActionURLFetch,
		URL:  "https://public.example.com/api",
	})
	if !res.Allowed() {
		t.Fatalf("public URL denied: %v", res.Reasons)
	}
	if len(sink.byType(EventURLDenied)) != 2 {
		t.Fatal("denied fetches must be audited")
	}
}

type memoryApprovals struct {
	mu   sync.Mutex
	recs map[string]ApprovalRecord
}

func (s *memoryApprovals) Create(_ context.Context, rec ApprovalRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recs == nil {
		s.recs = map[string]ApprovalRecord{}
	}
	rec.ID = "apr_test"
	rec.Status = ApprovalPending
	s.recs[rec.ID] = rec
	return rec.ID, nil
}

func (s *memoryApprovals) Get(_ context.Context, id string) (ApprovalRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	return rec, ok, nil
}

func (s *memoryApprovals) List(_ context.Context, _ ApprovalStatus, _ int) ([]ApprovalRecord, error) {
	return nil, nil
}

func (s *memoryApprovals) Resolve(_ context.Context, id string, status ApprovalStatus, actor, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recs[id]
	rec.Status = status
	rec.Actor = actor
	rec.Comment = comment
	s.recs[id] = rec
	return nil
}

func TestEvaluateRequireApproval(t *testing.T) {
	sink := &memorySink{}
	store := &memoryApprovals{}
	g := newTestGuard(t, sink, store, func(cfg *Config) {
		cfg.Exec.RequireApproval = true
	})

	res, err := g.Evaluate(context.Background(), Meta{RunID: "r9"}, Action{
		Type:    ActionCommandExec,
		Command: "make test",
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.Decision != DecisionRequireApproval {
		t.Fatalf("expected require_approval, got %s", res.Decision)
	}
	if res.ApprovalRequestID == "" {
		t.Fatal("expected an approval request id")
	}
	rec, ok, _ := store.Get(context.Background(), res.ApprovalRequestID)
	if !ok || rec.Status != ApprovalPending {
		t.Fatalf("expected pending record, got %+v (ok=%v)", rec, ok)
	}
	if len(sink.byType(EventApprovalPending)) != 1 {
		t.Fatal("held actions must be audited")
	}

	// A blocked command is denied outright, never held.
	res, _ = g.Evaluate(context.Background(), Meta{}, Action{
		Type:    ActionCommandExec,
		Command: "rm -rf /",
	})
	if res.Decision != DecisionDeny {
		t.Fatalf("deny must take precedence over approval, got %s", res.Decision)
	}
}

func TestEvaluateDisabledGuard(t *testing.T) {
	g := New(Config{Enabled: false}, nil, nil)
	res, err := g.Evaluate(context.Background(), Meta{}, Action{
		Type:    ActionCommandExec,
		Command: "rm -rf /",
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !res.Allowed() {
		t.Fatal("disabled guard must fail open")
	}
}

func TestEvaluateUnknownAction(t *testing.T) {
	g := newTestGuard(t, nil, nil, nil)
	if _, err := g.Evaluate(context.Background(), Meta{}, Action{Type: "Bogus"}); err == nil {
		t.Fatal("unknown action type must be an error")
	}
}
