package merge

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/klytics/thunderbolt/internal/store"
	"github.com/klytics/thunderbolt/internal/table"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

func src(name string, lines ...string) Source {
	return Source{Name: name, Data: []byte(strings.Join(lines, "\n") + "\n")}
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMergeLastWriteWins(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX", "2024-01-01 00:00,10")
	b := src("b_Steamfield.csv", "Timestamp,metricX,metricY", "2024-01-01 00:00,99,5")

	// Input order must not matter; enumeration is by name.
	ds, stats, err := Merge([]Source{b, a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", ds.Len())
	}
	rec := ds.Records[0]
	if !rec.Time.Equal(at("2024-01-01 00:00")) {
		t.Errorf("time = %v", rec.Time)
	}
	if v, _ := rec.Value("metricX"); v != "99" {
		t.Errorf("metricX = %q, want 99", v)
	}
	if v, _ := rec.Value("metricY"); v != "5" {
		t.Errorf("metricY = %q, want 5", v)
	}
	if stats.Duplicates != 1 || stats.Tables != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMergeKeepFirst(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX", "2024-01-01 00:00,10")
	b := src("b_Steamfield.csv", "Timestamp,metricX,metricY", "2024-01-01 00:00,99,5")

	ds, _, err := Merge([]Source{a, b}, Options{Duplicates: KeepFirst})
	if err != nil {
		t.Fatal(err)
	}
	rec := ds.Records[0]
	if v, _ := rec.Value("metricX"); v != "10" {
		t.Errorf("metricX = %q, want 10", v)
	}
	if _, ok := rec.Value("metricY"); ok {
		t.Error("metricY should be null under keep-first")
	}
}

func TestMergeRejectDuplicates(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX", "2024-01-01 00:00,10")
	b := src("b_Steamfield.csv", "Timestamp,metricX", "01-01-2024 0000H,99")

	_, _, err := Merge([]Source{a, b}, Options{Duplicates: Reject})
	if !errors.Is(err, ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp, got %v", err)
	}
	if !strings.Contains(err.Error(), "b_Steamfield.csv") {
		t.Errorf("error should name the conflicting table: %v", err)
	}
}

func TestMergeDuplicateWithinTable(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX",
		"2024-01-01 00:00,1",
		"2024-01-01 00:00,2",
	)
	ds, stats, err := Merge([]Source{a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 || ds.Records[0].Values["metricX"] != "2" {
		t.Errorf("records = %+v", ds.Records)
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d", stats.Duplicates)
	}
}

func TestMergeHarmonizesColumns(t *testing.T) {
	x := src("x_Steamfield.csv", "ts,metricX", "2024-01-01 00:00,1")
	y := src("y_Steamfield.csv", "ts,metricY", "2024-01-01 01:00,2")

	ds, _, err := Merge([]Source{x, y}, Options{TimestampColumn: "ts"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ts", "metricX", "metricY"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("columns = %v, want %v", ds.Columns, want)
	}
	if _, ok := ds.Records[0].Value("metricY"); ok {
		t.Error("row from x should have null metricY")
	}
	if _, ok := ds.Records[1].Value("metricX"); ok {
		t.Error("row from y should have null metricX")
	}

	out, err := ds.Marshal("%Y-%m-%d %H:%M")
	if err != nil {
		t.Fatal(err)
	}
	want := "ts,metricX,metricY\n2024-01-01 00:00,1,\n2024-01-01 01:00,,2\n"
	if string(out) != want {
		t.Errorf("csv = %q, want %q", out, want)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	ds, stats, err := Merge(nil, Options{})
	if err != nil {
		t.Fatalf("empty input should not fail: %v", err)
	}
	if ds.Len() != 0 || len(ds.Columns) != 0 || !ds.Empty() {
		t.Errorf("expected empty dataset, got %+v", ds)
	}
	if stats.Tables != 0 {
		t.Errorf("tables = %d", stats.Tables)
	}
	out, err := ds.Marshal(timestamp.DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("empty dataset encoded as %q", out)
	}
}

func TestMergeSkipsCorruptTables(t *testing.T) {
	good := src("a_Steamfield.csv", "Timestamp,metricX", "2024-01-01 00:00,1")
	ragged := src("b_Steamfield.csv", "Timestamp,metricX", "2024-01-01 01:00,1,2")
	empty := Source{Name: "c_Steamfield.csv"}
	noTimes := src("d_Steamfield.csv", "Timestamp,metricX", "not a time,1", "later,2")

	ds, stats, err := Merge([]Source{good, ragged, empty, noTimes}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Errorf("expected 1 row, got %d", ds.Len())
	}
	if stats.Tables != 1 || len(stats.Skipped) != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	var names []string
	for _, s := range stats.Skipped {
		names = append(names, s.Table)
	}
	if want := []string{"b_Steamfield.csv", "c_Steamfield.csv", "d_Steamfield.csv"}; !reflect.DeepEqual(names, want) {
		t.Errorf("skipped = %v", names)
	}
}

func TestMergeAllCorruptIsEmpty(t *testing.T) {
	ds, stats, err := Merge([]Source{{Name: "a_Steamfield.csv", Data: []byte("")}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Empty() || len(ds.Columns) != 0 || len(stats.Skipped) != 1 {
		t.Errorf("ds = %+v stats = %+v", ds, stats)
	}
}

func TestMergeDropsUnparseableRows(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX",
		"2024-01-01 02:00,3",
		"Total,6",
		"2024-01-01 00:00,1",
	)
	ds, stats, err := Merge([]Source{a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 2 || stats.RowsDropped != 1 || stats.RowsRead != 3 {
		t.Errorf("len=%d stats=%+v", ds.Len(), stats)
	}
}

func TestMergeSortOrderIndependentOfFormat(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,v",
		"2024-02-01 00:00,3",
		"15-01-2024 1200H,2",
		"2023-12-31 23:00,1",
	)
	ds, _, err := Merge([]Source{a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < ds.Len(); i++ {
		if !ds.Records[i-1].Time.Before(ds.Records[i].Time) {
			t.Fatalf("records not ascending at %d", i)
		}
	}
	for _, f := range timestamp.Formats {
		tbl, err := ds.Table(f)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for i := range tbl.Rows {
			v, _ := tbl.Value(i, "v")
			got = append(got, v)
		}
		if want := []string{"1", "2", "3"}; !reflect.DeepEqual(got, want) {
			t.Errorf("format %q: order %v", f, got)
		}
		for i, row := range tbl.Rows {
			back, err := timestamp.ParseDisplay(f, row[0])
			if err != nil {
				t.Fatalf("format %q: %v", f, err)
			}
			if !back.Equal(ds.Records[i].Time) {
				t.Errorf("format %q row %d: %v != %v", f, i, back, ds.Records[i].Time)
			}
		}
	}
}

func TestMergeTimestampColumnDetection(t *testing.T) {
	a := src("a_Steamfield.csv", "Well,Date Time,Flow", "A,2024-01-01 00:00,5")
	ds, _, err := Merge([]Source{a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Timestamp", "Well", "Flow"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("columns = %v", ds.Columns)
	}
}

func TestDatasetUnsupportedFormat(t *testing.T) {
	ds := &Dataset{}
	if _, err := ds.Marshal("%H"); !errors.Is(err, timestamp.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDatasetHead(t *testing.T) {
	ds := &Dataset{Columns: []string{"Timestamp"}, Records: make([]Record, 5)}
	if got := ds.Head(2).Len(); got != 2 {
		t.Errorf("Head(2) = %d", got)
	}
	if got := ds.Head(50).Len(); got != 5 {
		t.Errorf("Head(50) = %d", got)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": KeepLast, "keep-last": KeepLast, "keep-first": KeepFirst, "error": Reject} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("newest"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

type failingStore struct {
	store.Store
	fail string
}

func (f failingStore) Download(ctx context.Context, id string) ([]byte, error) {
	if strings.HasSuffix(id, f.fail) {
		return nil, &store.RemoteIOError{Op: "download", Name: id, Err: errors.New("connection reset")}
	}
	return f.Store.Download(ctx, id)
}

func TestRunFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewLocal(t.TempDir())
	put := func(name, body string) {
		if _, err := st.Upload(ctx, "out", []byte(body), name, store.MimeCSV); err != nil {
			t.Fatal(err)
		}
	}
	put("a_Steamfield.csv", "Timestamp,x\n2024-01-01 00:00,1\n")
	put("b_Steamfield.csv", "Timestamp,x\n2024-01-01 00:00,2\n")
	put("c_Steamfield.csv", "Timestamp,x\n2024-01-01 01:00,3\n")
	put(MasterName, "Timestamp,x\n1999-01-01 00:00,0\n")
	put("notes.txt", "hello")

	ds, stats, err := Run(ctx, failingStore{Store: st, fail: "c_Steamfield.csv"}, "out", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 || ds.Records[0].Values["x"] != "2" {
		t.Errorf("records = %+v", ds.Records)
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0].Table != "c_Steamfield.csv" {
		t.Errorf("skipped = %+v", stats.Skipped)
	}
}

func TestRunEmptyFolder(t *testing.T) {
	ds, _, err := Run(context.Background(), store.NewLocal(t.TempDir()), "missing", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Empty() || len(ds.Columns) != 0 {
		t.Errorf("expected empty dataset, got %+v", ds)
	}
}

func TestMergeSameInstantDifferentSpelling(t *testing.T) {
	a := src("a_Steamfield.csv", "Timestamp,metricX", "2024-01-01 00:00,10")
	b := src("b_Steamfield.csv", "Timestamp,metricX", "2024-01-01T00:00:00+00:00,99")
	c := src("c_Steamfield.csv", "Timestamp,metricX", "2024-01-01T02:00:00+02:00,7")

	ds, stats, err := Merge([]Source{a, b}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 || stats.Duplicates != 1 {
		t.Fatalf("len=%d duplicates=%d, want one row", ds.Len(), stats.Duplicates)
	}
	if v, _ := ds.Records[0].Value("metricX"); v != "99" {
		t.Errorf("metricX = %q, want 99", v)
	}

	ds, stats, err = Merge([]Source{a, b, c}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 || stats.Duplicates != 2 {
		t.Fatalf("len=%d duplicates=%d with offset spelling", ds.Len(), stats.Duplicates)
	}
	if v, _ := ds.Records[0].Value("metricX"); v != "7" {
		t.Errorf("metricX = %q, want 7", v)
	}

	if _, _, err := Merge([]Source{a, b}, Options{Duplicates: Reject}); !errors.Is(err, ErrDuplicateTimestamp) {
		t.Errorf("expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestTimestampIndexByValues(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{"unnamed first column beats time-like metric", []string{"Unnamed_0,Runtime Hours", "01-01-2024 00:00,12", "01-01-2024 01:00,13"}, 0},
		{"named column in the middle", []string{"Well,Date Time,Flow", "A,2024-01-01 00:00,5"}, 1},
		{"mostly timestamps", []string{"Timestamp,Downtime", "2024-01-01 00:00,3", "Total,6", "2024-01-01 01:00,1"}, 0},
		{"time-like name breaks tie", []string{"Flow,Logged,Update Time", "5,2024-01-01 00:00,2024-01-01 00:05"}, 2},
		{"no textual timestamps falls back to name", []string{"Flow,Date", "5,45292"}, 1},
		{"nothing to go on", []string{"Flow,Pressure", "5,6"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := table.Unmarshal([]byte(strings.Join(tt.lines, "\n") + "\n"))
			if err != nil {
				t.Fatal(err)
			}
			if got := TimestampIndex(tbl); got != tt.want {
				t.Errorf("TimestampIndex = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMergeTimeLikeMetricStaysMetric(t *testing.T) {
	a := src("a_Steamfield.csv", "Unnamed_0,Runtime Hours", "01-01-2024 00:00,12", "01-01-2024 01:00,13")
	ds, stats, err := Merge([]Source{a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Timestamp", "Runtime Hours"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Fatalf("columns = %v, want %v", ds.Columns, want)
	}
	if ds.Len() != 2 || stats.RowsDropped != 0 {
		t.Fatalf("len=%d stats=%+v", ds.Len(), stats)
	}
	if !ds.Records[0].Time.Equal(at("2024-01-01 00:00")) {
		t.Errorf("time = %v", ds.Records[0].Time)
	}
	if v, _ := ds.Records[0].Value("Runtime Hours"); v != "12" {
		t.Errorf("Runtime Hours = %q, want 12", v)
	}
}
