// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/slotenwacht/slotenbot/lib/clock"
	"github.com/slotenwacht/slotenbot/report"
)

var storeEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testColumns() []string {
	return []string{"client_name", "address"}
}

func openStore(t *testing.T, path string, columns []string, clk clock.Clock) *report.Store {
	t.Helper()
	store, err := report.Open(report.Config{
		Path:    path,
		Columns: columns,
		Clock:   clk,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestInsertAndListRoundTrip(t *testing.T) {
	ctx := context.Background()
	fakeClock := clock.Fake(storeEpoch)
	store := openStore(t, filepath.Join(t.TempDir(), "reports.db"), testColumns(), fakeClock)

	first, err := store.Insert(ctx, 100, map[string]string{
		"client_name": "Dupont",
		"address":     "12 Rue de Paris",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if first.ID != 1 {
		t.Errorf("first id = %d, want 1", first.ID)
	}
	if first.Status != report.StatusPending {
		t.Errorf("status = %q, want pending", first.Status)
	}
	if !first.CreatedAt.Equal(storeEpoch) {
		t.Errorf("created_at = %v, want %v", first.CreatedAt, storeEpoch)
	}

	fakeClock.Advance(time.Hour)
	second, err := store.Insert(ctx, 200, map[string]string{
		"client_name": "Janssens",
		"address":     "1 Kerkstraat",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("second id = %d, want 2", second.ID)
	}
	if !second.CreatedAt.Equal(storeEpoch.Add(time.Hour)) {
		t.Errorf("created_at = %v, want epoch+1h", second.CreatedAt)
	}

	reports, err := store.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("listed %d reports, want 2", len(reports))
	}
	if reports[0].ID != 2 || reports[1].ID != 1 {
		t.Errorf("order = [%d %d], want newest first [2 1]", reports[0].ID, reports[1].ID)
	}
	if reports[1].Values["client_name"] != "Dupont" || reports[1].Values["address"] != "12 Rue de Paris" {
		t.Errorf("report 1 values = %v", reports[1].Values)
	}
	if reports[1].AuthorID != 100 {
		t.Errorf("report 1 author = %d, want 100", reports[1].AuthorID)
	}
}

func TestListRecentHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "reports.db"), testColumns(), clock.Fake(storeEpoch))

	for i := 0; i < 4; i++ {
		_, err := store.Insert(ctx, 100, map[string]string{
			"client_name": "Dupont",
			"address":     "12 Rue de Paris",
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	reports, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("listed %d reports, want 2", len(reports))
	}
	if reports[0].ID != 4 {
		t.Errorf("first listed id = %d, want 4", reports[0].ID)
	}
}

func TestInsertRejectsMissingColumn(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "reports.db"), testColumns(), clock.Fake(storeEpoch))

	_, err := store.Insert(ctx, 100, map[string]string{
		"client_name": "Dupont",
		"address":     "   ",
	})
	if err == nil {
		t.Fatal("Insert accepted a blank column value")
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (rejected insert must not write)", count)
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "reports.db"), testColumns(), clock.Fake(storeEpoch))

	inserted, err := store.Insert(ctx, 100, map[string]string{
		"client_name": "Dupont",
		"address":     "12 Rue de Paris",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := store.SetStatus(ctx, inserted.ID, report.StatusDone); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	reports, err := store.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if reports[0].Status != report.StatusDone {
		t.Errorf("status = %q, want done", reports[0].Status)
	}

	if err := store.SetStatus(ctx, 999, report.StatusDone); err == nil {
		t.Error("SetStatus accepted an unknown report id")
	}
	if err := store.SetStatus(ctx, inserted.ID, "archived"); err == nil {
		t.Error("SetStatus accepted an unknown status")
	}
}

func TestReopenPreservesReports(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.db")

	first, err := report.Open(report.Config{Path: path, Columns: testColumns()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Insert(ctx, 100, map[string]string{
		"client_name": "Dupont",
		"address":     "12 Rue de Paris",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := report.Open(report.Config{Path: path, Columns: testColumns()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	reports, err := second.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(reports) != 1 || reports[0].Values["client_name"] != "Dupont" {
		t.Fatalf("after reopen reports = %+v, want the original row", reports)
	}
}

func TestReopenWithExtraColumnMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.db")

	old, err := report.Open(report.Config{Path: path, Columns: testColumns()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := old.Insert(ctx, 100, map[string]string{
		"client_name": "Dupont",
		"address":     "12 Rue de Paris",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := old.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err := report.Open(report.Config{
		Path:    path,
		Columns: append(testColumns(), "material"),
	})
	if err != nil {
		t.Fatalf("reopen with extra column: %v", err)
	}
	defer store.Close()

	reports, err := store.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if reports[0].Values["material"] != "" {
		t.Errorf("old row material = %q, want empty default", reports[0].Values["material"])
	}

	inserted, err := store.Insert(ctx, 200, map[string]string{
		"client_name": "Janssens",
		"address":     "1 Kerkstraat",
		"material":    "cilinderslot",
	})
	if err != nil {
		t.Fatalf("Insert with new column: %v", err)
	}
	if inserted.Values["material"] != "cilinderslot" {
		t.Errorf("material = %q, want cilinderslot", inserted.Values["material"])
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")

	if _, err := report.Open(report.Config{Columns: testColumns()}); err == nil {
		t.Error("Open accepted an empty path")
	}
	if _, err := report.Open(report.Config{Path: path}); err == nil {
		t.Error("Open accepted an empty column list")
	}

	bad := [][]string{
		{"client_name", "DROP TABLE"},
		{"client_name", "client_name"},
		{"status"},
		{"1starts_with_digit"},
	}
	for _, columns := range bad {
		if _, err := report.Open(report.Config{Path: path, Columns: columns}); err == nil {
			t.Errorf("Open accepted columns %v", columns)
		}
	}
}
