package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(t *testing.T, s string) datatypes.Date {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return datatypes.Date(parsed)
}

func seedUser(t *testing.T, store *UserStore, username, email string) *User {
	t.Helper()
	user := &User{Username: username, Email: email, PasswordHash: "hash"}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestUserStore_UniqueUsernameAndEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	seedUser(t, store, "alice", "alice@x.com")

	err := store.Create(ctx, &User{Username: "alice", Email: "other@x.com", PasswordHash: "h"})
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	err = store.Create(ctx, &User{Username: "bob", Email: "alice@x.com", PasswordHash: "h"})
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestUserStore_FindByIdentifier(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	alice := seedUser(t, store, "alice", "alice@x.com")

	byName, err := store.FindByIdentifier(ctx, "alice")
	if err != nil || byName.ID != alice.ID {
		t.Fatalf("lookup by username: user=%+v err=%v", byName, err)
	}
	byEmail, err := store.FindByIdentifier(ctx, "Alice@X.com")
	if err != nil || byEmail.ID != alice.ID {
		t.Fatalf("lookup by email: user=%+v err=%v", byEmail, err)
	}
	if _, err := store.FindByIdentifier(ctx, "nobody"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUserStore_ResetTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	user := seedUser(t, store, "alice", "alice@x.com")
	now := time.Now().UTC()

	if err := store.SetResetToken(ctx, user.ID, "digest", now.Add(time.Hour)); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	found, err := store.FindByResetToken(ctx, "digest", now)
	if err != nil || found.ID != user.ID {
		t.Fatalf("find by reset token: user=%+v err=%v", found, err)
	}

	ok, err := store.ConsumeResetToken(ctx, user.ID, "digest", now, "new-hash")
	if err != nil || !ok {
		t.Fatalf("first consume: ok=%v err=%v", ok, err)
	}
	ok, err = store.ConsumeResetToken(ctx, user.ID, "digest", now, "other-hash")
	if err != nil || ok {
		t.Fatalf("second consume should not apply: ok=%v err=%v", ok, err)
	}

	reloaded, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PasswordHash != "new-hash" || reloaded.ResetToken != nil || reloaded.ResetTokenExpires != nil {
		t.Fatalf("unexpected user state after reset: %+v", reloaded)
	}
}

func TestUserStore_ExpiredResetToken(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	user := seedUser(t, store, "alice", "alice@x.com")
	now := time.Now().UTC()

	if err := store.SetResetToken(ctx, user.ID, "digest", now.Add(-time.Minute)); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	if _, err := store.FindByResetToken(ctx, "digest", now); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected expired token to be invisible, got %v", err)
	}

	if err := store.ClearExpiredResetToken(ctx, "digest", now); err != nil {
		t.Fatalf("clear expired token: %v", err)
	}
	reloaded, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ResetToken != nil || reloaded.ResetTokenExpires != nil {
		t.Fatalf("expected expired token to be cleared, got %+v", reloaded)
	}
}

func TestUserStore_ClearExpiredKeepsLiveToken(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	user := seedUser(t, store, "alice", "alice@x.com")
	now := time.Now().UTC()

	if err := store.SetResetToken(ctx, user.ID, "digest", now.Add(time.Hour)); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	if err := store.ClearExpiredResetToken(ctx, "digest", now); err != nil {
		t.Fatalf("clear expired token: %v", err)
	}
	if _, err := store.FindByResetToken(ctx, "digest", now); err != nil {
		t.Fatalf("expected live token to survive, got %v", err)
	}
}

func TestJobStore_OwnerScopingAndOrdering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserStore(db)
	store := NewJobStore(db)
	alice := seedUser(t, users, "alice", "alice@x.com")
	bob := seedUser(t, users, "bob", "bob@x.com")

	older := &Job{UserID: alice.ID, CompanyName: "Acme", JobTitle: "Engineer", DateApplied: date(t, "2024-01-15"), ApplicationStatus: "Applied"}
	newer := &Job{UserID: alice.ID, CompanyName: "Globex", JobTitle: "SRE", DateApplied: date(t, "2024-03-01"), ApplicationStatus: "Offer"}
	foreign := &Job{UserID: bob.ID, CompanyName: "Initech", JobTitle: "Dev", DateApplied: date(t, "2024-02-01"), ApplicationStatus: "Wishlist"}
	for _, job := range []*Job{older, newer, foreign} {
		if err := store.Create(ctx, job); err != nil {
			t.Fatalf("create job: %v", err)
		}
	}

	list, err := store.ListByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("unexpected list order: %+v", list)
	}

	if _, err := store.FindForOwner(ctx, alice.ID, foreign.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected foreign job to be hidden, got %v", err)
	}
	if _, err := store.DeleteForOwner(ctx, alice.ID, foreign.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected foreign delete to fail, got %v", err)
	}

	removed, err := store.DeleteForOwner(ctx, alice.ID, older.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.CompanyName != "Acme" {
		t.Fatalf("expected prior state, got %+v", removed)
	}
	if _, err := store.FindForOwner(ctx, alice.ID, older.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected deleted job to be gone, got %v", err)
	}
}

func TestJobStore_ReplaceKeepsOwnerAndAttachment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserStore(db)
	store := NewJobStore(db)
	alice := seedUser(t, users, "alice", "alice@x.com")

	notes := "first call went well"
	job := &Job{UserID: alice.ID, CompanyName: "Acme", JobTitle: "Engineer", DateApplied: date(t, "2024-01-15"), ApplicationStatus: "Applied", Notes: &notes, CoverLetterSent: true}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	key := "resumes/1/1/cv.pdf"
	if _, err := store.SetResumeObjectKey(ctx, alice.ID, job.ID, &key); err != nil {
		t.Fatalf("set resume key: %v", err)
	}

	replacement := &Job{ID: job.ID, UserID: alice.ID, CompanyName: "Acme Corp", JobTitle: "Senior Engineer", DateApplied: date(t, "2024-01-16"), ApplicationStatus: "Interviewing"}
	if err := store.Replace(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.FindForOwner(ctx, alice.ID, job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.CompanyName != "Acme Corp" || got.ApplicationStatus != "Interviewing" {
		t.Fatalf("fields not replaced: %+v", got)
	}
	if got.Notes != nil || got.CoverLetterSent {
		t.Fatalf("omitted fields should be cleared on full replacement: %+v", got)
	}
	if got.ResumeObjectKey == nil || *got.ResumeObjectKey != key {
		t.Fatalf("attachment key lost: %+v", got.ResumeObjectKey)
	}

	if err := store.Replace(ctx, &Job{ID: job.ID, UserID: alice.ID + 1, CompanyName: "x", JobTitle: "y", DateApplied: date(t, "2024-01-01"), ApplicationStatus: "Applied"}); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected foreign replace to fail, got %v", err)
	}
}
