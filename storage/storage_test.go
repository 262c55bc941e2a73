package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"lianjia-rentals/models"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "rentals.db")
	s, err := OpenSQLStore(context.Background(), DriverSQLite, dsn, 1, nil)
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(link, price string) models.ListingRecord {
	return models.ListingRecord{
		Title:     "整租·阳光花园 2室1厅 南",
		LeaseType: models.Str("整租"),
		Location:  models.Str("浦东-张江"),
		Name:      models.Str("阳光花园"),
		Area:      models.Str("75㎡"),
		Price:     models.Str(price),
		Brand:     models.Str("链家"),
		Link:      link,
	}
}

func TestInsertBatchIgnoresDuplicateLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.InsertBatch(ctx, []models.ListingRecord{
		record("https://sh.lianjia.com/zufang/SH1.html", "5000元/月"),
		record("https://sh.lianjia.com/zufang/SH2.html", "6000元/月"),
	})
	if err != nil {
		t.Fatalf("first InsertBatch: %v", err)
	}
	if n != 2 {
		t.Errorf("first batch inserted %d, want 2", n)
	}

	n, err = s.InsertBatch(ctx, []models.ListingRecord{
		record("https://sh.lianjia.com/zufang/SH1.html", "9999元/月"),
		record("https://sh.lianjia.com/zufang/SH3.html", "7000元/月"),
	})
	if err != nil {
		t.Fatalf("second InsertBatch: %v", err)
	}
	if n != 1 {
		t.Errorf("second batch inserted %d, want 1", n)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("LoadAll returned %d rows, want 3", len(all))
	}
	if got := models.Deref(all[0].Price); got != "5000元/月" {
		t.Errorf("duplicate link overwrote the stored price: got %q", got)
	}
}

func TestLoadAllKeepsNulls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := record("https://sh.lianjia.com/zufang/SH9.html", "4200元/月")
	r.Floor = nil
	r.Decoration = nil
	if _, err := s.InsertBatch(ctx, []models.ListingRecord{r}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("LoadAll returned %d rows, want 1", len(all))
	}
	got := all[0]
	if got.ID == 0 {
		t.Error("expected a surrogate id to be assigned")
	}
	if got.Floor != nil || got.Decoration != nil {
		t.Errorf("absent values should load as nil, got floor=%v decoration=%v", got.Floor, got.Decoration)
	}
	if models.Deref(got.Location) != "浦东-张江" {
		t.Errorf("location: got %q", models.Deref(got.Location))
	}
}

func TestInsertBatchEmpty(t *testing.T) {
	s := openTestStore(t)
	n, err := s.InsertBatch(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("InsertBatch(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rentals.db")
	ctx := context.Background()

	s, err := OpenSQLStore(ctx, DriverSQLite, dsn, 1, nil)
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}
	if _, err := s.InsertBatch(ctx, []models.ListingRecord{record("https://sh.lianjia.com/zufang/A.html", "1元/月")}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	_ = s.Close()

	s, err = OpenSQLStore(ctx, DriverSQLite, dsn, 1, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	n, err := s.InsertBatch(ctx, []models.ListingRecord{record("https://sh.lianjia.com/zufang/A.html", "1元/月")})
	if err != nil {
		t.Fatalf("InsertBatch after reopen: %v", err)
	}
	if n != 0 {
		t.Errorf("link from a previous run inserted again")
	}
}

func TestOpenDedupsLegacyTable(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE rentals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT, lease_type TEXT, location TEXT, name TEXT, area TEXT, price TEXT,
			style TEXT, orientation TEXT, floor TEXT, decoration TEXT, transportation TEXT,
			pay_type TEXT, first_rent TEXT, brand TEXT, link TEXT
		)`,
		`INSERT INTO rentals (title, price, link) VALUES ('整租·甲', '5000元/月', 'https://sh.lianjia.com/zufang/L1.html')`,
		`INSERT INTO rentals (title, price, link) VALUES ('整租·乙', '3000元/月', 'https://sh.lianjia.com/zufang/L2.html')`,
		`INSERT INTO rentals (title, price, link) VALUES ('整租·甲', '5100元/月', 'https://sh.lianjia.com/zufang/L1.html')`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed legacy table: %v", err)
		}
	}
	_ = db.Close()

	s, err := OpenSQLStore(ctx, DriverSQLite, dsn, 1, nil)
	if err != nil {
		t.Fatalf("OpenSQLStore on legacy table: %v", err)
	}
	defer s.Close()

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LoadAll returned %d rows, want 2", len(all))
	}
	if got := models.Deref(all[0].Price); got != "5000元/月" {
		t.Errorf("first copy of a repeated link should be kept, got price %q", got)
	}

	n, err := s.InsertBatch(ctx, []models.ListingRecord{record("https://sh.lianjia.com/zufang/L2.html", "1元/月")})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != 0 {
		t.Errorf("legacy link inserted again after migration")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenSQLStore(context.Background(), "mysql", "x", 1, nil); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rentals.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	r := record("https://sh.lianjia.com/zufang/SH1.html", "5000元/月")
	r.Floor = nil
	if err := w.WriteRecords([]models.ListingRecord{r}); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if len(rows[0]) != len(Columns) || rows[0][0] != "title" || rows[0][14] != "link" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][8] != "" {
		t.Errorf("nil floor should be an empty cell, got %q", rows[1][8])
	}
	if rows[1][14] != r.Link {
		t.Errorf("link cell: got %q", rows[1][14])
	}
}
