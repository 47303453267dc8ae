package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/groupasks/askbot/internal/domain"
)

// newAskDB creates a file-backed sqlite DB in a temp dir with the ask schema.
func newAskDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asks.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := db.AutoMigrate(&domain.User{}, &domain.Ask{}, &domain.AskAssignee{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustCreateAsk(t *testing.T, db *gorm.DB, scope int64, text string, assignees ...Assignee) *domain.Ask {
	t.Helper()
	ask, err := CreateAskWithAssignees(context.Background(), db, scope, 100, "Alice", text, assignees)
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	return ask
}

func TestCreateAskWithAssignees_Atomic(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()

	ask := mustCreateAsk(t, db, -500, "Take out the trash",
		Assignee{UserID: 200, Name: "Bob"},
		Assignee{UserID: 300, Name: "Carol"},
	)
	if ask.ID == "" || ask.Status != domain.AskStatusOpen || ask.ClosedAt != nil {
		t.Fatalf("unexpected ask: %+v", ask)
	}

	var rows []domain.AskAssignee
	if err := db.WithContext(ctx).Where("ask_id = ?", ask.ID).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		t.Fatalf("load assignees: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("assignee rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Status != domain.AssigneeStatusOpen || r.DoneAt != nil {
			t.Fatalf("assignee row not open: %+v", r)
		}
	}
}

func TestMarkAssignmentDone_GuardsOwnershipAndState(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ask := mustCreateAsk(t, db, -500, "Buy milk", Assignee{UserID: 200, Name: "Bob"})

	var row domain.AskAssignee
	if err := db.Where("ask_id = ?", ask.ID).First(&row).Error; err != nil {
		t.Fatalf("load assignment: %v", err)
	}

	// A different user cannot complete Bob's assignment.
	if _, err := MarkAssignmentDone(ctx, db, row.ID, 300, now); err != ErrNotFound {
		t.Fatalf("foreign actor: err = %v, want ErrNotFound", err)
	}

	// Unknown assignment id.
	if _, err := MarkAssignmentDone(ctx, db, "no-such-id", 200, now); err != ErrNotFound {
		t.Fatalf("missing row: err = %v, want ErrNotFound", err)
	}

	// The owner succeeds and gets the ask context back.
	done, err := MarkAssignmentDone(ctx, db, row.ID, 200, now)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if done.AskID != ask.ID || done.RequesterID != 100 || done.RequesterName != "Alice" || done.Text != "Buy milk" {
		t.Fatalf("unexpected context: %+v", done)
	}

	// Repeating is a no-op failure: the row is already done.
	if _, err := MarkAssignmentDone(ctx, db, row.ID, 200, now); err != ErrNotFound {
		t.Fatalf("second mark: err = %v, want ErrNotFound", err)
	}

	var after domain.AskAssignee
	if err := db.First(&after, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Status != domain.AssigneeStatusDone || after.DoneAt == nil {
		t.Fatalf("row not done: %+v", after)
	}
}

func TestCloseAskIfComplete_IdempotentClosure(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ask := mustCreateAsk(t, db, -500, "Plan trip",
		Assignee{UserID: 200, Name: "Bob"},
		Assignee{UserID: 300, Name: "Carol"},
	)

	// Nothing done yet: no closure.
	closed, err := CloseAskIfComplete(ctx, db, ask.ID, now)
	if err != nil || closed {
		t.Fatalf("premature close: closed=%v err=%v", closed, err)
	}

	var rows []domain.AskAssignee
	if err := db.Where("ask_id = ?", ask.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}

	if _, err := MarkAssignmentDone(ctx, db, rows[0].ID, rows[0].AssigneeID, now); err != nil {
		t.Fatalf("first done: %v", err)
	}
	closed, err = CloseAskIfComplete(ctx, db, ask.ID, now)
	if err != nil || closed {
		t.Fatalf("close with one open left: closed=%v err=%v", closed, err)
	}

	if _, err := MarkAssignmentDone(ctx, db, rows[1].ID, rows[1].AssigneeID, now); err != nil {
		t.Fatalf("second done: %v", err)
	}
	closed, err = CloseAskIfComplete(ctx, db, ask.ID, now)
	if err != nil || !closed {
		t.Fatalf("final close: closed=%v err=%v", closed, err)
	}

	// Re-checking a closed ask never signals closure again.
	closed, err = CloseAskIfComplete(ctx, db, ask.ID, now.Add(time.Minute))
	if err != nil || closed {
		t.Fatalf("second close signal: closed=%v err=%v", closed, err)
	}

	got, err := GetAsk(ctx, db, ask.ID)
	if err != nil {
		t.Fatalf("get ask: %v", err)
	}
	if got.Status != domain.AskStatusClosed || got.ClosedAt == nil {
		t.Fatalf("ask not closed: %+v", got)
	}
	if got.ClosedAt.Sub(now) > time.Second || now.Sub(*got.ClosedAt) > time.Second {
		t.Fatalf("closed_at restamped: %v != %v", got.ClosedAt, now)
	}
}

func TestListOpenAssignments_OrderAndFilter(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := mustCreateAsk(t, db, -500, "older task", Assignee{UserID: 200, Name: "Bob"})
	// Space out created_at so ordering is deterministic.
	if err := db.Model(&domain.Ask{}).Where("id = ?", first.ID).
		Update("created_at", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	second := mustCreateAsk(t, db, -500, "newer task",
		Assignee{UserID: 200, Name: "Bob"},
		Assignee{UserID: 300, Name: "Carol"},
	)

	got, err := ListOpenAssignments(ctx, db, 200)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2", len(got))
	}
	if got[0].AskID != second.ID || got[1].AskID != first.ID {
		t.Fatalf("wrong order: %+v", got)
	}
	if got[0].Text != "newer task" || got[0].RequesterName != "Alice" {
		t.Fatalf("bad row: %+v", got[0])
	}

	// Completing Bob's newer assignment removes it from his view only.
	if _, err := MarkAssignmentDone(ctx, db, got[0].AssignmentID, 200, now); err != nil {
		t.Fatalf("done: %v", err)
	}
	got, err = ListOpenAssignments(ctx, db, 200)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if len(got) != 1 || got[0].AskID != first.ID {
		t.Fatalf("unexpected remaining: %+v", got)
	}

	// Carol still sees hers.
	carol, err := ListOpenAssignments(ctx, db, 300)
	if err != nil || len(carol) != 1 {
		t.Fatalf("carol view: %+v err=%v", carol, err)
	}
}

func TestListOpenAsks_GroupsAndScopes(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a1 := mustCreateAsk(t, db, -500, "task one",
		Assignee{UserID: 200, Name: "Bob"},
		Assignee{UserID: 300, Name: "Carol"},
	)
	if err := db.Model(&domain.Ask{}).Where("id = ?", a1.ID).
		Update("created_at", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	a2 := mustCreateAsk(t, db, -500, "task two", Assignee{UserID: 300, Name: "Carol"})
	// A different chat scope must never leak in.
	mustCreateAsk(t, db, -999, "other group", Assignee{UserID: 200, Name: "Bob"})

	// Mark one of task one's assignments done to see a mixed status view.
	var row domain.AskAssignee
	if err := db.Where("ask_id = ? AND assignee_id = ?", a1.ID, 200).First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if _, err := MarkAssignmentDone(ctx, db, row.ID, 200, now); err != nil {
		t.Fatalf("done: %v", err)
	}

	got, err := ListOpenAsks(ctx, db, -500)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("asks = %d, want 2", len(got))
	}
	if got[0].AskID != a2.ID || got[1].AskID != a1.ID {
		t.Fatalf("wrong order: %+v", got)
	}
	if len(got[1].Assignees) != 2 {
		t.Fatalf("task one assignees = %d, want 2", len(got[1].Assignees))
	}
	// Bob was picked first and is done; Carol second and still open.
	if got[1].Assignees[0].Name != "Bob" || got[1].Assignees[0].Status != domain.AssigneeStatusDone {
		t.Fatalf("bad first assignee: %+v", got[1].Assignees[0])
	}
	if got[1].Assignees[1].Name != "Carol" || got[1].Assignees[1].Status != domain.AssigneeStatusOpen {
		t.Fatalf("bad second assignee: %+v", got[1].Assignees[1])
	}
}

func TestListOpenAsks_AssigneesKeepPickOrder(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()

	assignees := make([]Assignee, 0, 8)
	for i := 0; i < 8; i++ {
		assignees = append(assignees, Assignee{
			UserID: int64(200 + i),
			Name:   fmt.Sprintf("person-%02d", i),
		})
	}
	mustCreateAsk(t, db, -500, "big fanout", assignees...)

	got, err := ListOpenAsks(ctx, db, -500)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || len(got[0].Assignees) != len(assignees) {
		t.Fatalf("unexpected view: %+v", got)
	}
	for i, a := range got[0].Assignees {
		if a.Name != assignees[i].Name {
			t.Fatalf("assignee %d = %q, want %q (full: %+v)", i, a.Name, assignees[i].Name, got[0].Assignees)
		}
	}
}

func TestOpenAsksStats_TracksCountAndLatest(t *testing.T) {
	db := newAskDB(t)
	ctx := context.Background()

	count, maxTS, err := OpenAsksStats(ctx, db, -500)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats: count=%d maxTS=%v err=%v", count, maxTS, err)
	}

	ask := mustCreateAsk(t, db, -500, "stat me", Assignee{UserID: 200, Name: "Bob"})
	count, maxTS, err = OpenAsksStats(ctx, db, -500)
	if err != nil || count != 1 || maxTS == nil {
		t.Fatalf("stats after create: count=%d maxTS=%v err=%v", count, maxTS, err)
	}

	// Closing removes it from the open stats.
	var row domain.AskAssignee
	if err := db.Where("ask_id = ?", ask.ID).First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	now := time.Now().UTC()
	if _, err := MarkAssignmentDone(ctx, db, row.ID, 200, now); err != nil {
		t.Fatalf("done: %v", err)
	}
	if _, err := CloseAskIfComplete(ctx, db, ask.ID, now); err != nil {
		t.Fatalf("close: %v", err)
	}
	count, _, err = OpenAsksStats(ctx, db, -500)
	if err != nil || count != 0 {
		t.Fatalf("stats after close: count=%d err=%v", count, err)
	}
}
