package deptrisk

import (
	"context"
	"errors"
	"testing"
	"time"

	"accessgov/internal/domain/risk"
	"accessgov/internal/platform/events"
)

type deptSignals struct {
	compliance     int
	overprivileged int
	sod            int
	dormant        int
	oauth          int
	anomalies      int
	fail           map[string]bool
}

type fakeSignals struct {
	byDept map[string]deptSignals
}

func (f *fakeSignals) get(dept, factor string) (deptSignals, error) {
	s, ok := f.byDept[dept]
	if !ok {
		return deptSignals{}, errors.New("unknown department")
	}
	if s.fail[factor] {
		return deptSignals{}, errors.New(factor + " source unavailable")
	}
	return s, nil
}

func (f *fakeSignals) CampaignCompliance(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorCompliance)
	return s.compliance, err
}

func (f *fakeSignals) OverprivilegedCount(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorOverprivileged)
	return s.overprivileged, err
}

func (f *fakeSignals) OpenSoDViolations(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorSoD)
	return s.sod, err
}

func (f *fakeSignals) DormantGrants(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorDormant)
	return s.dormant, err
}

func (f *fakeSignals) HighRiskOAuthGrants(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorOAuth)
	return s.oauth, err
}

func (f *fakeSignals) RecentAnomalies(_ context.Context, _, dept string) (int, error) {
	s, err := f.get(dept, FactorAnomalies)
	return s.anomalies, err
}

func newTestService(signals *fakeSignals) (*Service, *events.Recorder) {
	sink := events.NewRecorder()
	svc := NewService(signals, sink)
	svc.Now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	return svc, sink
}

func TestSummarizeDegradesFailedSignalToZero(t *testing.T) {
	// No SoD data available, 4 overprivileged accounts (sub-score 40), fully
	// compliant, everything else quiet.
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Finance": {
			compliance:     100,
			overprivileged: 4,
			fail:           map[string]bool{FactorSoD: true},
		},
	}}
	svc, _ := newTestService(signals)

	summary, err := svc.Summarize(context.Background(), "t1", "Finance")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.SoDScore != 0 {
		t.Fatalf("failed SoD source must contribute zero, got %d", summary.SoDScore)
	}
	if summary.OverprivilegedScore != 40 {
		t.Fatalf("expected overprivileged sub-score 40, got %d", summary.OverprivilegedScore)
	}
	if summary.OverallScore != 8 {
		t.Fatalf("expected round(0.20*40) = 8, got %d", summary.OverallScore)
	}
	if summary.RiskLevel != risk.LevelLow {
		t.Fatalf("expected low, got %s", summary.RiskLevel)
	}
	if len(summary.DegradedFactors) != 1 || summary.DegradedFactors[0] != FactorSoD {
		t.Fatalf("expected the SoD factor flagged as degraded, got %v", summary.DegradedFactors)
	}
}

func TestSummarizeWeighting(t *testing.T) {
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Engineering": {
			compliance:     60, // contributes 0.20*40 = 8
			overprivileged: 5,  // 50 -> 10
			sod:            2,  // 40 -> 10
			dormant:        20, // 40 -> 4
			oauth:          2,  // 30 -> 4.5
			anomalies:      3,  // 30 -> 3
		},
	}}
	svc, _ := newTestService(signals)

	summary, err := svc.Summarize(context.Background(), "t1", "Engineering")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	// 8 + 10 + 10 + 4 + 4.5 + 3 = 39.5, rounds to 40.
	if summary.OverallScore != 40 {
		t.Fatalf("expected 40, got %d", summary.OverallScore)
	}
	if summary.RiskLevel != risk.LevelMedium {
		t.Fatalf("expected medium, got %s", summary.RiskLevel)
	}
}

func TestSummarizeEmitsHighRiskEvent(t *testing.T) {
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Sales": {
			compliance:     0,  // 20
			overprivileged: 10, // 100 -> 20
			sod:            5,  // 100 -> 25
			dormant:        50, // 100 -> 10
			oauth:          7,  // 100 -> 15
			anomalies:      10, // 100 -> 10
		},
	}}
	svc, sink := newTestService(signals)

	summary, err := svc.Summarize(context.Background(), "t1", "Sales")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.OverallScore != 100 {
		t.Fatalf("expected 100, got %d", summary.OverallScore)
	}
	if summary.RiskLevel != risk.LevelCritical {
		t.Fatalf("expected critical, got %s", summary.RiskLevel)
	}
	if len(sink.Named(events.DepartmentHighRisk)) != 1 {
		t.Fatal("high-risk department must emit an event")
	}
}

func TestSummarizeFailedComplianceContributesZero(t *testing.T) {
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Legal": {fail: map[string]bool{FactorCompliance: true}},
	}}
	svc, _ := newTestService(signals)

	summary, err := svc.Summarize(context.Background(), "t1", "Legal")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.OverallScore != 0 {
		t.Fatalf("a degraded compliance signal must contribute zero, got %d", summary.OverallScore)
	}
}

func TestCompareDepartmentsRanksAscending(t *testing.T) {
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Finance":     {compliance: 100, overprivileged: 1},
		"Engineering": {compliance: 100, overprivileged: 6},
		"Sales":       {compliance: 40, overprivileged: 10, sod: 3},
	}}
	svc, _ := newTestService(signals)

	cmp, err := svc.CompareDepartments(context.Background(), "t1", []string{"Sales", "Finance", "Engineering"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Rankings) != 3 {
		t.Fatalf("expected 3 rankings, got %d", len(cmp.Rankings))
	}
	if cmp.Rankings[0].Department != "Finance" || cmp.Rankings[2].Department != "Sales" {
		t.Fatalf("expected Finance best and Sales worst, got %+v", cmp.Rankings)
	}
	for i, r := range cmp.Rankings {
		if r.Rank != i+1 {
			t.Fatalf("rank %d out of order: %+v", i, r)
		}
	}
	if cmp.BestPractices[FactorOverprivileged] != "Finance" {
		t.Fatalf("expected Finance as overprivileged best practice, got %s", cmp.BestPractices[FactorOverprivileged])
	}
}

func TestCompareDepartmentsReportsLargeGapsOnly(t *testing.T) {
	signals := &fakeSignals{byDept: map[string]deptSignals{
		"Finance":     {compliance: 100},                     // overprivileged 0
		"Engineering": {compliance: 100, overprivileged: 1},  // 10: within threshold
		"Sales":       {compliance: 100, overprivileged: 10}, // 100: reported
	}}
	svc, _ := newTestService(signals)

	cmp, err := svc.CompareDepartments(context.Background(), "t1", []string{"Finance", "Engineering", "Sales"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	var overprivGaps []Gap
	for _, g := range cmp.Gaps {
		if g.Factor == FactorOverprivileged {
			overprivGaps = append(overprivGaps, g)
		}
	}
	if len(overprivGaps) != 1 {
		t.Fatalf("only gaps above 20 points are reported, got %+v", overprivGaps)
	}
	if overprivGaps[0].Department != "Sales" || overprivGaps[0].Points != 100 {
		t.Fatalf("unexpected gap: %+v", overprivGaps[0])
	}
}

func TestCompareDepartmentsCapsGapList(t *testing.T) {
	byDept := map[string]deptSignals{
		"Best": {compliance: 100},
	}
	for _, dept := range []string{"A", "B", "C", "D", "E"} {
		byDept[dept] = deptSignals{compliance: 0, overprivileged: 9, sod: 4, oauth: 5}
	}
	svc, _ := newTestService(&fakeSignals{byDept: byDept})

	cmp, err := svc.CompareDepartments(context.Background(), "t1",
		[]string{"Best", "A", "B", "C", "D", "E"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	// 5 departments x 4 qualifying factors would be 20 gaps; only the top 10
	// by size are returned.
	if len(cmp.Gaps) != 10 {
		t.Fatalf("expected the gap list capped at 10, got %d", len(cmp.Gaps))
	}
	for i := 1; i < len(cmp.Gaps); i++ {
		if cmp.Gaps[i].Points > cmp.Gaps[i-1].Points {
			t.Fatal("gaps must be sorted by size descending")
		}
	}
}
