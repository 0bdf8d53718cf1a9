package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zester4/fixium/engine/domain"
)

type mockResult struct {
	records []*neo4j.Record
	pos     int
}

func newMockResult(records ...*neo4j.Record) *mockResult {
	return &mockResult{records: records}
}

func (r *mockResult) Next(_ context.Context) bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *mockResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *mockResult) Err() error            { return nil }

// trackingSession records every cypher statement, returning the configured
// result for session-level reads.
type trackingSession struct {
	queries   []string
	params    []map[string]any
	runResult *mockResult
}

func (s *trackingSession) Run(_ context.Context, cypher string, params map[string]any) (CypherResult, error) {
	s.queries = append(s.queries, cypher)
	s.params = append(s.params, params)
	if s.runResult != nil {
		return s.runResult, nil
	}
	return newMockResult(), nil
}

func (s *trackingSession) ExecuteWrite(_ context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return work(s)
}

func (s *trackingSession) Close(_ context.Context) error { return nil }

type mockOpener struct {
	session *trackingSession
}

func (o *mockOpener) OpenSession(_ context.Context) CypherSession { return o.session }

func newTrackingStore(result *mockResult) (*GraphStore, *trackingSession) {
	sess := &trackingSession{runResult: result}
	return NewWithOpener(&mockOpener{session: sess}), sess
}

func TestSaveGuide(t *testing.T) {
	gs, sess := newTrackingStore(nil)

	guide := domain.RepairGuide{
		ID: "g-1",
		DeviceInfo: domain.DeviceInfo{
			Category:  domain.DevicePhone,
			Model:     "Pixel 8",
			Condition: "cracked screen",
		},
		Diagnosis: domain.DiagnosisResult{
			Damages: []domain.DamageFinding{
				{Type: "Cracked Screen", Description: "spiderweb crack", Severity: domain.SeverityModerate},
			},
			Difficulty:    domain.DifficultyIntermediate,
			Repairability: domain.RepairabilityHigh,
			Confidence:    85,
		},
		Parts: []domain.Part{{ID: "p1", Name: "Replacement Display", IsRequired: true}},
		Tools: []domain.Tool{{ID: "t1", Name: "Spudger", IsRequired: true}},
	}

	if err := gs.SaveGuide(context.Background(), guide); err != nil {
		t.Fatalf("save guide: %v", err)
	}

	// guide node + 1 damage + 1 part + 1 tool
	if len(sess.queries) != 4 {
		t.Fatalf("queries = %d:\n%s", len(sess.queries), strings.Join(sess.queries, "\n---\n"))
	}
	if !strings.Contains(sess.queries[0], "MERGE (d:Device {category: $category})") {
		t.Errorf("guide query missing device merge:\n%s", sess.queries[0])
	}
	if sess.params[1]["type"] != "cracked screen" {
		t.Errorf("damage type not normalized: %v", sess.params[1]["type"])
	}
	if !strings.Contains(sess.queries[1], "OBSERVED_ON") {
		t.Errorf("damage query missing OBSERVED_ON:\n%s", sess.queries[1])
	}
	if sess.params[2]["name"] != "replacement display" {
		t.Errorf("part name not normalized: %v", sess.params[2]["name"])
	}
	if !strings.Contains(sess.queries[3], "NEEDS_TOOL") {
		t.Errorf("tool query missing NEEDS_TOOL:\n%s", sess.queries[3])
	}
}

func TestCommonIssues(t *testing.T) {
	result := newMockResult(
		&neo4j.Record{
			Keys:   []string{"type", "description", "count"},
			Values: []any{"cracked screen", "display damage", int64(12)},
		},
		&neo4j.Record{
			Keys:   []string{"type", "description", "count"},
			Values: []any{"battery swelling", "", int64(1)},
		},
	)
	gs, sess := newTrackingStore(result)

	issues, err := gs.CommonIssues(context.Background(), domain.DevicePhone, 5)
	if err != nil {
		t.Fatalf("common issues: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0] != "cracked screen (seen in 12 past repairs)" {
		t.Errorf("issues[0] = %q", issues[0])
	}
	if issues[1] != "battery swelling" {
		t.Errorf("single observation must not carry a count: %q", issues[1])
	}
	if sess.params[0]["category"] != "phone" || sess.params[0]["limit"] != 5 {
		t.Errorf("params = %v", sess.params[0])
	}
}

func TestCommonIssuesDefaultLimit(t *testing.T) {
	gs, sess := newTrackingStore(nil)
	if _, err := gs.CommonIssues(context.Background(), domain.DeviceLaptop, 0); err != nil {
		t.Fatal(err)
	}
	if sess.params[0]["limit"] != 5 {
		t.Errorf("limit = %v, want default 5", sess.params[0]["limit"])
	}
}

func TestPartsForDamage(t *testing.T) {
	result := newMockResult(
		&neo4j.Record{Keys: []string{"name", "uses"}, Values: []any{"replacement display", int64(7)}},
	)
	gs, sess := newTrackingStore(result)

	parts, err := gs.PartsForDamage(context.Background(), domain.DevicePhone, "Cracked  Screen", 3)
	if err != nil {
		t.Fatalf("parts for damage: %v", err)
	}
	if len(parts) != 1 || parts[0] != "replacement display" {
		t.Fatalf("parts = %v", parts)
	}
	if sess.params[0]["type"] != "cracked screen" {
		t.Errorf("damage type not normalized: %v", sess.params[0]["type"])
	}
}

func TestNodeCounts(t *testing.T) {
	result := newMockResult(
		&neo4j.Record{Keys: []string{"label", "count"}, Values: []any{"Guide", int64(3)}},
		&neo4j.Record{Keys: []string{"label", "count"}, Values: []any{"Device", int64(2)}},
	)
	gs, _ := newTrackingStore(result)

	counts, err := gs.NodeCounts(context.Background())
	if err != nil {
		t.Fatalf("node counts: %v", err)
	}
	if counts["Guide"] != 3 || counts["Device"] != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Cracked Screen", "cracked screen"},
		{"  battery   SWELLING  ", "battery swelling"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeKey(tt.in); got != tt.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
