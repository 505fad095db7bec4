package campaign

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"accessgov/internal/domain/access"
)

func TestExportCSVRoundTripsAwkwardNotes(t *testing.T) {
	h := newHarness(t)
	_, items := seedDecidableCampaign(t, h, 1)

	notes := `kept for audit, per "SOX" control owner`
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionApproved, notes, "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	c, _ := h.store.GetReviewItem(context.Background(), "t1", items[0].ID)
	out, err := h.svc.ExportCSV(context.Background(), "t1", c.CampaignID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	raw := string(out)
	if !strings.Contains(raw, `"kept for audit, per ""SOX"" control owner"`) {
		t.Fatalf("notes must be quoted with doubled internal quotes, got:\n%s", raw)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}

	notesIdx := -1
	for i, col := range records[0] {
		if col == "decision_notes" {
			notesIdx = i
		}
	}
	if notesIdx < 0 {
		t.Fatal("decision_notes column missing from header")
	}
	if records[1][notesIdx] != notes {
		t.Fatalf("round-trip mismatch: %q", records[1][notesIdx])
	}
}

func TestExportCSVEmptyCampaign(t *testing.T) {
	h := newHarness(t)
	c := h.draftCampaign(t, ScopeAll, ScopeConfig{})

	out, err := h.svc.ExportCSV(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}

func TestExportCSVUnknownCampaign(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.ExportCSV(context.Background(), "t1", "nope"); err == nil {
		t.Fatal("expected an error for an unknown campaign")
	}
}

func TestExportCSVIncludesGrantSnapshot(t *testing.T) {
	h := newHarness(t)
	h.addUser("u1", "Engineering")
	h.addApp("a1", 80)
	h.access.grants = append(h.access.grants, access.Grant{
		UserID:     "u1",
		AppID:      "a1",
		AccessType: access.TypeAdmin,
		GrantedAt:  h.now.AddDate(0, 0, -200),
	})

	c := h.draftCampaign(t, ScopeAll, ScopeConfig{})
	if _, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	out, err := h.svc.ExportCSV(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	raw := string(out)
	for _, want := range []string{"App a1", access.TypeAdmin, "critical"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("export missing %q:\n%s", want, raw)
		}
	}
}
