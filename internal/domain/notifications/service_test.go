package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeStore struct {
	created []string
	emails  map[string]string
}

func (f *fakeStore) CreateNotification(_ context.Context, _, userID, ntype, _, _ string) error {
	f.created = append(f.created, userID+":"+ntype)
	return nil
}

func (f *fakeStore) ListNotifications(_ context.Context, _, _ string, _, _ int) ([]Notification, error) {
	return nil, nil
}

func (f *fakeStore) CountUnread(_ context.Context, _, _ string) (int, error) { return 0, nil }

func (f *fakeStore) MarkRead(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeStore) UserEmail(_ context.Context, _, userID string) (string, error) {
	return f.emails[userID], nil
}

type fakeMailer struct {
	text string
	html string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, _, _, _, text, html string) error {
	f.text = text
	f.html = html
	return f.err
}

func TestNotifySendsTextAndHTMLParts(t *testing.T) {
	store := &fakeStore{emails: map[string]string{"u1": "dana@example.com"}}
	mailer := &fakeMailer{}
	svc := New(store, mailer, "no-reply@example.com")

	err := svc.Notify(context.Background(), "t1", "u1", "access_review_reminder",
		"Reminder: Q3 review", "You have 2 items pending & due soon.")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(store.created))
	}
	if mailer.text != "You have 2 items pending & due soon." {
		t.Fatalf("unexpected text part %q", mailer.text)
	}
	if !strings.Contains(mailer.html, "<h3>Reminder: Q3 review</h3>") {
		t.Fatalf("expected title in html part, got %q", mailer.html)
	}
	if !strings.Contains(mailer.html, "pending &amp; due soon") {
		t.Fatalf("html part must escape the body, got %q", mailer.html)
	}
}

func TestNotifySurvivesMailFailure(t *testing.T) {
	store := &fakeStore{emails: map[string]string{"u1": "dana@example.com"}}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := New(store, mailer, "no-reply@example.com")

	if err := svc.Notify(context.Background(), "t1", "u1", "x", "t", "b"); err != nil {
		t.Fatalf("mail failure must not fail the notification: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatal("notification must still be stored")
	}
}
