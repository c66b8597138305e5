package lists

import (
	"path/filepath"
	"testing"

	"github.com/winspan/boomfilter/pkg/logger"
)

func newTestAudit(t *testing.T, max int) *AuditLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	a, err := OpenAuditLog(path, max, logger.Discard())
	if err != nil {
		t.Fatalf("OpenAuditLog: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAuditRecordAndRecent(t *testing.T) {
	a := newTestAudit(t, 100)

	if err := a.Record(Deny, "ads.example.com", "add"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Record(Deny, "ads.example.com", "remove"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := a.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// 按时间倒序：最新的在前
	if entries[0].Action != "remove" || entries[1].Action != "add" {
		t.Errorf("unexpected order: %v", entries)
	}
	if entries[0].List != "denylist" || entries[0].Entry != "ads.example.com" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestAuditRetention(t *testing.T) {
	a := newTestAudit(t, 5)

	for i := 0; i < 8; i++ {
		if err := a.Record(Allow, "example.com", "add"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := a.Recent(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) > 5 {
		t.Errorf("retention not enforced: %d entries kept", len(entries))
	}
}

func TestManagerRecordsAudit(t *testing.T) {
	env := newTestEnv(t, CompareOptions{})
	env.mgr.audit = newTestAudit(t, 100)

	if err := env.mgr.Add(Deny, "ads.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := env.mgr.Remove(Deny, "ads.example.com"); err != nil {
		t.Fatal(err)
	}

	entries, err := env.mgr.audit.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
}
