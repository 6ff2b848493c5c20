package table

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New([]string{"Timestamp", "Flow", "Flow"}, nil); err == nil {
		t.Error("expected duplicate column error")
	}
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	if err == nil {
		t.Fatal("expected ragged row error")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error should name the row: %v", err)
	}
}

func TestValueAndRecord(t *testing.T) {
	tbl, err := New([]string{"Timestamp", "Flow"}, [][]string{{"2024-01-01 00:00", "10"}})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := tbl.Value(0, "Flow"); !ok || v != "10" {
		t.Errorf("Value(0, Flow) = %q, %v", v, ok)
	}
	if _, ok := tbl.Value(0, "Missing"); ok {
		t.Error("expected missing column to report false")
	}
	if tbl.Index("Timestamp") != 0 {
		t.Errorf("Index(Timestamp) = %d", tbl.Index("Timestamp"))
	}

	rec := tbl.Record(0)
	if rec["Timestamp"] != "2024-01-01 00:00" || rec["Flow"] != "10" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	tbl, err := New(
		[]string{"Timestamp", "Well A / Flow", "Note"},
		[][]string{
			{"2024-01-01 00:00", "10", "ok"},
			{"2024-01-01 01:00", "", "has, comma"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	first, err := Marshal(tbl)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("Marshal is not deterministic")
	}

	want := "Timestamp,Well A / Flow,Note\n" +
		"2024-01-01 00:00,10,ok\n" +
		"2024-01-01 01:00,,\"has, comma\"\n"
	if string(first) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", first, want)
	}
}

func TestUnmarshal(t *testing.T) {
	data := "\xEF\xBB\xBFTimestamp,Flow\n2024-01-01 00:00,10\n2024-01-01 01:00,\n"
	tbl, err := Unmarshal([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Columns[0] != "Timestamp" {
		t.Errorf("BOM not stripped: %q", tbl.Columns[0])
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if v, _ := tbl.Value(1, "Flow"); v != "" {
		t.Errorf("expected empty cell, got %q", v)
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	_, err := Unmarshal(nil)
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestUnmarshalRagged(t *testing.T) {
	if _, err := Unmarshal([]byte("a,b\n1,2,3\n")); err == nil {
		t.Error("expected error for ragged CSV")
	}
}

func TestEncodeNoColumns(t *testing.T) {
	data, err := Marshal(&Table{})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected no output, got %q", data)
	}
}
