package campaign

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/directory"
	"accessgov/internal/platform/events"
)

type memStore struct {
	campaigns map[string]Campaign
	items     map[string]ReviewItem
	decisions []Decision
	nextID    int
}

func newMemStore() *memStore {
	return &memStore{campaigns: map[string]Campaign{}, items: map[string]ReviewItem{}}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) CreateCampaign(_ context.Context, _ string, c Campaign) (string, error) {
	c.ID = m.id("c")
	m.campaigns[c.ID] = c
	return c.ID, nil
}

func (m *memStore) GetCampaign(_ context.Context, _, campaignID string) (Campaign, error) {
	c, ok := m.campaigns[campaignID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) UpdateCampaign(_ context.Context, _ string, c Campaign) error {
	if _, ok := m.campaigns[c.ID]; !ok {
		return ErrNotFound
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m *memStore) ListCampaigns(_ context.Context, _, status string) ([]Campaign, error) {
	var out []Campaign
	for _, c := range m.campaigns {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateReviewItem(_ context.Context, _ string, item ReviewItem) (string, error) {
	item.ID = m.id("i")
	m.items[item.ID] = item
	return item.ID, nil
}

func (m *memStore) GetReviewItem(_ context.Context, _, itemID string) (ReviewItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return ReviewItem{}, ErrNotFound
	}
	return item, nil
}

func (m *memStore) UpdateReviewItem(_ context.Context, _ string, item ReviewItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return ErrNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *memStore) ListReviewItems(_ context.Context, _, campaignID string) ([]ReviewItem, error) {
	var out []ReviewItem
	for _, item := range m.items {
		if item.CampaignID == campaignID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) AppendDecision(_ context.Context, _ string, d Decision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *memStore) ListDecisions(_ context.Context, _, campaignID string) ([]Decision, error) {
	var out []Decision
	for _, d := range m.decisions {
		if d.CampaignID == campaignID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeAccess struct {
	grants       []access.Grant
	revoked      []string
	failRevokeOn map[string]bool
}

func (f *fakeAccess) ListAll(_ context.Context, _ string) ([]access.Grant, error) {
	return f.grants, nil
}

func (f *fakeAccess) ListForUser(_ context.Context, _, userID string) ([]access.Grant, error) {
	var out []access.Grant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeAccess) Revoke(_ context.Context, _, userID, appID string) error {
	if f.failRevokeOn[appID] {
		return errors.New("revoke endpoint unavailable")
	}
	f.revoked = append(f.revoked, userID+":"+appID)
	return nil
}

type fakeDirectory struct {
	users    map[string]directory.User
	apps     map[string]directory.App
	managers map[string]directory.User
}

func (f *fakeDirectory) User(_ context.Context, _, userID string) (directory.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return directory.User{}, directory.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) App(_ context.Context, _, appID string) (directory.App, error) {
	a, ok := f.apps[appID]
	if !ok {
		return directory.App{}, directory.ErrNotFound
	}
	return a, nil
}

func (f *fakeDirectory) ManagerOf(_ context.Context, _, userID string) (directory.User, error) {
	m, ok := f.managers[userID]
	if !ok {
		return directory.User{}, directory.ErrNotFound
	}
	return m, nil
}

type fakeNotifier struct {
	sent   []string
	failOn map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, _, userID, ntype, _, _ string) error {
	if f.failOn[userID] {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, userID+":"+ntype)
	return nil
}

type harness struct {
	svc      *Service
	store    *memStore
	access   *fakeAccess
	dir      *fakeDirectory
	notifier *fakeNotifier
	sink     *events.Recorder
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		access:   &fakeAccess{failRevokeOn: map[string]bool{}},
		dir:      &fakeDirectory{users: map[string]directory.User{}, apps: map[string]directory.App{}, managers: map[string]directory.User{}},
		notifier: &fakeNotifier{failOn: map[string]bool{}},
		sink:     events.NewRecorder(),
		now:      time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(h.store, h.access, h.dir, h.notifier, h.sink, t.TempDir())
	h.svc.Now = func() time.Time { return h.now }
	return h
}

func (h *harness) addGrant(userID, appID, accessType string, justification string) {
	h.access.grants = append(h.access.grants, access.Grant{
		UserID:                userID,
		AppID:                 appID,
		AccessType:            accessType,
		GrantedAt:             h.now.AddDate(0, 0, -10),
		BusinessJustification: justification,
	})
}

func (h *harness) addUser(userID, department string) {
	h.dir.users[userID] = directory.User{ID: userID, FirstName: "User", LastName: userID, Email: userID + "@corp.test", Department: department, Active: true}
}

func (h *harness) addApp(appID string, riskScore int) {
	h.dir.apps[appID] = directory.App{ID: appID, Name: "App " + appID, RiskScore: riskScore}
}

func (h *harness) draftCampaign(t *testing.T, scopeType string, scope ScopeConfig) Campaign {
	t.Helper()
	c, err := h.svc.CreateCampaign(context.Background(), "t1", Campaign{
		Name:         "Q2 certification",
		CampaignType: "quarterly",
		ScopeType:    scopeType,
		Scope:        scope,
		StartDate:    h.now,
		DueDate:      h.now.AddDate(0, 0, 14),
	}, "admin-1")
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func TestCreateCampaignValidation(t *testing.T) {
	h := newHarness(t)
	base := Campaign{
		Name:         "Review",
		CampaignType: "quarterly",
		ScopeType:    ScopeAll,
		StartDate:    h.now,
		DueDate:      h.now.AddDate(0, 0, 7),
	}

	cases := []struct {
		name   string
		mutate func(*Campaign)
	}{
		{"missing name", func(c *Campaign) { c.Name = "" }},
		{"missing type", func(c *Campaign) { c.CampaignType = "" }},
		{"due before start", func(c *Campaign) { c.DueDate = c.StartDate.AddDate(0, 0, -1) }},
		{"unknown scope", func(c *Campaign) { c.ScopeType = "everything" }},
		{"department scope without department", func(c *Campaign) { c.ScopeType = ScopeDepartment }},
		{"apps scope without apps", func(c *Campaign) { c.ScopeType = ScopeApps }},
		{"users scope without users", func(c *Campaign) { c.ScopeType = ScopeUsers }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			if _, err := h.svc.CreateCampaign(context.Background(), "t1", c, "admin-1"); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(h.store.campaigns) != 0 {
		t.Fatal("rejected campaigns must not be persisted")
	}
}

func TestGenerateSkipsUnresolvableAndActivates(t *testing.T) {
	h := newHarness(t)
	h.addUser("u1", "Engineering")
	h.addApp("a1", 10)
	h.addGrant("u1", "a1", access.TypeMember, "build pipeline")
	h.addGrant("u1", "ghost-app", access.TypeMember, "")

	c := h.draftCampaign(t, ScopeAll, ScopeConfig{})
	summary, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.ItemsCreated != 1 || summary.Skipped != 1 {
		t.Fatalf("expected 1 created and 1 skipped, got %+v", summary)
	}

	got, _ := h.store.GetCampaign(context.Background(), "t1", c.ID)
	if got.Status != StatusActive {
		t.Fatalf("generation must activate the campaign, got %s", got.Status)
	}
	if got.TotalItems != 1 {
		t.Fatalf("expected totalItems 1, got %d", got.TotalItems)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		userID := fmt.Sprintf("u%d", i)
		appID := fmt.Sprintf("a%d", i)
		h.addUser(userID, "Finance")
		h.addApp(appID, 10)
		h.addGrant(userID, appID, access.TypeMember, "monthly close")
	}

	c := h.draftCampaign(t, ScopeAll, ScopeConfig{})
	first, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first.ItemsCreated != 3 || second.ItemsCreated != 0 {
		t.Fatalf("expected 3 then 0 items created, got %d then %d", first.ItemsCreated, second.ItemsCreated)
	}
	if second.TotalItems != 3 {
		t.Fatalf("totalItems must be stable across generations, got %d", second.TotalItems)
	}
}

func TestGenerateDepartmentScope(t *testing.T) {
	h := newHarness(t)
	h.addUser("u1", "Engineering")
	h.addUser("u2", "Finance")
	h.addApp("a1", 10)
	h.addGrant("u1", "a1", access.TypeMember, "x")
	h.addGrant("u2", "a1", access.TypeMember, "x")

	c := h.draftCampaign(t, ScopeDepartment, ScopeConfig{Department: "engineering"})
	summary, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.ItemsCreated != 1 {
		t.Fatalf("department scope should match case-insensitively, got %d items", summary.ItemsCreated)
	}
}

func TestItemRiskScoring(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	granted := now.AddDate(0, 0, -400)

	// Admin on a critical-risk app, unused for 200 days, no justification.
	worst := access.Grant{AccessType: access.TypeOwner, GrantedAt: granted}
	if got := itemRisk(worst, 80, 200); got != 95 {
		t.Fatalf("expected 25+30+30+10 = 95, got %d", got)
	}
	// Member on a low-risk app, used this week, justified.
	benign := access.Grant{AccessType: access.TypeMember, GrantedAt: granted, BusinessJustification: "payroll"}
	if got := itemRisk(benign, 10, 3); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func seedDecidableCampaign(t *testing.T, h *harness, grantCount int) (Campaign, []ReviewItem) {
	t.Helper()
	for i := 0; i < grantCount; i++ {
		userID := fmt.Sprintf("u%d", i)
		appID := fmt.Sprintf("a%d", i)
		h.addUser(userID, "Engineering")
		h.addApp(appID, 10)
		h.addGrant(userID, appID, access.TypeMember, "needed")
	}
	c := h.draftCampaign(t, ScopeAll, ScopeConfig{})
	if _, err := h.svc.GenerateReviewItems(context.Background(), "t1", c.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	items, _ := h.store.ListReviewItems(context.Background(), "t1", c.ID)
	if len(items) != grantCount {
		t.Fatalf("expected %d items, got %d", grantCount, len(items))
	}
	return c, items
}

func TestSubmitDecisionCountersAndAudit(t *testing.T) {
	h := newHarness(t)
	c, items := seedDecidableCampaign(t, h, 3)

	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionApproved, "looks right", "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[1].ID, DecisionDeferred, "need context", "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, _ := h.store.GetCampaign(context.Background(), "t1", c.ID)
	if got.ReviewedItems != 2 || got.ApprovedItems != 1 || got.DeferredItems != 1 || got.RevokedItems != 0 {
		t.Fatalf("counter mismatch: %+v", got)
	}
	if got.ReviewedItems != got.ApprovedItems+got.RevokedItems+got.DeferredItems {
		t.Fatal("reviewed must equal approved+revoked+deferred")
	}
	if len(h.store.decisions) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(h.store.decisions))
	}
}

func TestSubmitDecisionRejectsSecondSubmission(t *testing.T) {
	h := newHarness(t)
	_, items := seedDecidableCampaign(t, h, 1)

	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionApproved, "", "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionRevoked, "", "mgr-2", "Sam Kay"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	item, _ := h.store.GetReviewItem(context.Background(), "t1", items[0].ID)
	if item.Decision != DecisionApproved {
		t.Fatalf("first decision must stand, got %s", item.Decision)
	}
	if len(h.store.decisions) != 1 {
		t.Fatal("rejected resubmission must not append an audit record")
	}
}

func TestSubmitDecisionRejectsUnknownValue(t *testing.T) {
	h := newHarness(t)
	_, items := seedDecidableCampaign(t, h, 1)
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, "escalate", "", "mgr-1", "Morgan Lee"); !errors.Is(err, ErrBadDecision) {
		t.Fatalf("expected ErrBadDecision, got %v", err)
	}
}

func TestRevocationExecutionOutcomes(t *testing.T) {
	h := newHarness(t)
	_, items := seedDecidableCampaign(t, h, 2)
	h.access.failRevokeOn[items[1].AppID] = true

	ok, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionRevoked, "unused", "mgr-1", "Morgan Lee")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok.ExecutionStatus != ExecutionCompleted || ok.ExecutedAt == nil {
		t.Fatalf("expected completed execution, got %+v", ok)
	}
	if len(h.access.revoked) != 1 {
		t.Fatalf("expected 1 revocation call, got %v", h.access.revoked)
	}

	failed, err := h.svc.SubmitDecision(context.Background(), "t1", items[1].ID, DecisionRevoked, "unused", "mgr-1", "Morgan Lee")
	if err != nil {
		t.Fatalf("a failed execution is still a recorded decision: %v", err)
	}
	if failed.ExecutionStatus != ExecutionFailed || failed.ExecutionError == "" {
		t.Fatalf("expected failed execution with error, got %+v", failed)
	}
	if failed.Decision != DecisionRevoked {
		t.Fatal("the decision stands even when execution fails")
	}
}

func TestBulkDecisionIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	_, items := seedDecidableCampaign(t, h, 2)

	result, err := h.svc.SubmitBulkDecision(context.Background(), "t1", BulkDecision{
		ItemIDs:      []string{items[0].ID, "missing-item", items[1].ID},
		Decision:     DecisionApproved,
		ReviewerID:   "mgr-1",
		ReviewerName: "Morgan Lee",
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("expected 2 applied, got %d", result.Applied)
	}
	if len(result.Failures) != 1 || result.Failures[0].ItemID != "missing-item" {
		t.Fatalf("expected one failure for missing-item, got %+v", result.Failures)
	}
}

func TestProgress(t *testing.T) {
	h := newHarness(t)
	c, items := seedDecidableCampaign(t, h, 10)
	for i := 0; i < 8; i++ {
		if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[i].ID, DecisionApproved, "", "mgr-1", "Morgan Lee"); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	p, err := h.svc.Progress(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.PercentComplete != 80 {
		t.Fatalf("expected 80%%, got %d", p.PercentComplete)
	}
	if p.IsOverdue {
		t.Fatal("campaign due in 14 days must not be overdue")
	}

	h.now = h.now.AddDate(0, 0, 20)
	p, _ = h.svc.Progress(context.Background(), "t1", c.ID)
	if !p.IsOverdue || p.DaysRemaining >= 0 {
		t.Fatalf("expected overdue with negative days remaining, got %+v", p)
	}
}

func TestAutoApprovePendingItems(t *testing.T) {
	h := newHarness(t)
	c, items := seedDecidableCampaign(t, h, 3)
	cam := h.store.campaigns[c.ID]
	cam.AutoApproveOnTimeout = true
	h.store.campaigns[c.ID] = cam

	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionRevoked, "", "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	approved, err := h.svc.AutoApprovePendingItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("auto-approve: %v", err)
	}
	if approved != 2 {
		t.Fatalf("expected 2 auto-approvals, got %d", approved)
	}

	got, _ := h.store.GetCampaign(context.Background(), "t1", c.ID)
	if got.ReviewedItems != 3 || got.ApprovedItems != 2 || got.RevokedItems != 1 {
		t.Fatalf("counter mismatch after auto-approve: %+v", got)
	}
	for _, item := range h.store.items {
		if item.Decision == DecisionApproved && item.ReviewerID != SystemReviewerID {
			t.Fatalf("auto-approvals must be attributed to the system reviewer, got %s", item.ReviewerID)
		}
	}
}

func TestAutoApproveRespectsOptOut(t *testing.T) {
	h := newHarness(t)
	c, _ := seedDecidableCampaign(t, h, 2)

	approved, err := h.svc.AutoApprovePendingItems(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("auto-approve: %v", err)
	}
	if approved != 0 {
		t.Fatalf("campaign without opt-in must not auto-approve, got %d", approved)
	}
}

func TestCompleteCampaign(t *testing.T) {
	h := newHarness(t)
	c, items := seedDecidableCampaign(t, h, 2)
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[0].ID, DecisionRevoked, "stale", "mgr-1", "Morgan Lee"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.svc.SubmitDecision(context.Background(), "t1", items[1].ID, DecisionApproved, "fine", "mgr-2", "Sam Kay"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	report, err := h.svc.CompleteCampaign(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if report.UniqueReviewers != 2 {
		t.Fatalf("expected 2 unique reviewers, got %d", report.UniqueReviewers)
	}
	if report.ExecutionSuccessRate != 1.0 {
		t.Fatalf("expected full execution success, got %f", report.ExecutionSuccessRate)
	}
	if report.ReportURL == "" {
		t.Fatal("expected a report artifact reference")
	}

	got, _ := h.store.GetCampaign(context.Background(), "t1", c.ID)
	if got.Status != StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("campaign must be completed, got %+v", got)
	}
	if len(h.sink.Named(events.AccessReviewCompleted)) != 1 {
		t.Fatal("completion must emit access_review.completed")
	}

	if _, err := h.svc.CompleteCampaign(context.Background(), "t1", c.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if len(h.sink.Named(events.AccessReviewCompleted)) != 1 {
		t.Fatal("a rejected completion must not emit a second event")
	}
}

func TestSendRemindersGroupsByReviewer(t *testing.T) {
	h := newHarness(t)
	h.dir.managers["u0"] = directory.User{ID: "mgr-1", FirstName: "Morgan", LastName: "Lee"}
	h.dir.managers["u1"] = directory.User{ID: "mgr-1", FirstName: "Morgan", LastName: "Lee"}
	h.dir.managers["u2"] = directory.User{ID: "mgr-2", FirstName: "Sam", LastName: "Kay"}
	c, _ := seedDecidableCampaign(t, h, 3)

	notified, err := h.svc.SendReminders(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if notified != 2 {
		t.Fatalf("two distinct reviewers expected one reminder each, got %d", notified)
	}
}

func TestSendRemindersSkipsReviewerlessItems(t *testing.T) {
	h := newHarness(t)
	c, _ := seedDecidableCampaign(t, h, 2)

	notified, err := h.svc.SendReminders(context.Background(), "t1", c.ID)
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if notified != 0 || len(h.notifier.sent) != 0 {
		t.Fatalf("items without reviewers must be skipped, got %d sent", notified)
	}
}

func TestEscalateOverdueReviews(t *testing.T) {
	h := newHarness(t)
	h.dir.managers["u0"] = directory.User{ID: "mgr-1", FirstName: "Morgan", LastName: "Lee"}
	h.dir.managers["mgr-1"] = directory.User{ID: "dir-1", FirstName: "Dana", LastName: "Ito"}
	c, _ := seedDecidableCampaign(t, h, 1)

	// Before the due date nothing escalates.
	escalated, err := h.svc.EscalateOverdueReviews(context.Background(), "t1", c.ID, 0)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("no escalation expected before the due date, got %d", escalated)
	}

	h.now = h.now.AddDate(0, 0, 21)

	// A grace window past the due date holds escalation back.
	escalated, err = h.svc.EscalateOverdueReviews(context.Background(), "t1", c.ID, 30)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("no escalation expected inside the grace window, got %d", escalated)
	}

	escalated, err = h.svc.EscalateOverdueReviews(context.Background(), "t1", c.ID, 0)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("expected 1 escalation, got %d", escalated)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0] != "dir-1:access_review_escalation" {
		t.Fatalf("escalation must go to the reviewer's manager, got %v", h.notifier.sent)
	}
}
