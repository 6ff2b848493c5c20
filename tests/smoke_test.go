// Package tests runs the thunderbolt command tree end to end against a local
// store in a temporary directory. No credentials or network access are needed.
package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/thunderbolt/cmd"
	"github.com/klytics/thunderbolt/internal/formats/xlsx"
)

// workspace writes a config file pointing the local store at a fresh
// directory and returns the config path and the store root.
func workspace(t *testing.T) (string, string) {
	t.Helper()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "ws")
	cfg := filepath.Join(tmp, "config.yaml")
	body := fmt.Sprintf(`store:
  backend: local
  root: %s
folders:
  source: excels
  dest: steamfield_csvs
merge:
  timestamp_format: "%%Y-%%m-%%d %%H:%%M"
log:
  level: error
history:
  path: %s
`, filepath.ToSlash(root), filepath.ToSlash(filepath.Join(tmp, "runs.log")))
	if err := os.WriteFile(cfg, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("THUNDERBOLT_NO_PROGRESS", "1")
	return cfg, root
}

// run executes the root command in-process and returns its error.
func run(t *testing.T, args ...string) error {
	t.Helper()
	root := cmd.NewRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	wb := &xlsx.Workbook{Sheets: []xlsx.Sheet{
		{Name: "Cover", Rows: [][]string{{"Daily generation report"}}},
		{Name: "Steamfield", Rows: rows},
	}}
	if err := xlsx.WriteFile(wb, path); err != nil {
		t.Fatal(err)
	}
}

func TestAllCommandsExist(t *testing.T) {
	root := cmd.NewRootCommand()
	want := []string{"convert", "merge", "inspect", "ls", "put", "watch", "history", "config", "doctor", "completion", "version"}
	have := map[string]bool{}
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestHelpExitsCleanly(t *testing.T) {
	for _, args := range [][]string{
		{"--help"},
		{"convert", "--help"},
		{"merge", "--help"},
		{"config", "--help"},
	} {
		if err := run(t, args...); err != nil {
			t.Errorf("%v: %v", args, err)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(t, "frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestConvertThenMerge(t *testing.T) {
	cfg, root := workspace(t)
	src := filepath.Join(root, "excels")
	writeWorkbook(t, filepath.Join(src, "day1.xlsx"), [][]string{
		{"Timestamp", "Flow"},
		{"2024-01-01 00:00", "10"},
		{"2024-01-01 01:00", "11"},
	})
	writeWorkbook(t, filepath.Join(src, "day2.xlsx"), [][]string{
		{"Timestamp", "Flow", "Pressure"},
		{"2024-01-01 01:00", "99", "7"},
		{"2024-01-01 02:00", "12", "8"},
	})

	if err := run(t, "--config", cfg, "convert"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	for _, name := range []string{"day1_Steamfield.csv", "day2_Steamfield.csv"} {
		if _, err := os.Stat(filepath.Join(root, "steamfield_csvs", name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	// A second run finds nothing new and must not fail.
	if err := run(t, "--config", cfg, "convert"); err != nil {
		t.Fatalf("second convert: %v", err)
	}

	master := filepath.Join(t.TempDir(), "master.csv")
	if err := run(t, "--config", cfg, "merge", "-o", master); err != nil {
		t.Fatalf("merge: %v", err)
	}
	data, err := os.ReadFile(master)
	if err != nil {
		t.Fatal(err)
	}
	want := "Timestamp,Flow,Pressure\n" +
		"2024-01-01 00:00,10,\n" +
		"2024-01-01 01:00,99,7\n" +
		"2024-01-01 02:00,12,8\n"
	if string(data) != want {
		t.Errorf("master.csv:\n%s\nwant:\n%s", data, want)
	}

	runs, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "runs.log"))
	if err != nil {
		t.Fatalf("run history not written: %v", err)
	}
	if n := strings.Count(string(runs), "\n"); n != 3 {
		t.Errorf("expected 3 recorded runs, got %d", n)
	}
	if err := run(t, "--config", cfg, "history"); err != nil {
		t.Errorf("history: %v", err)
	}
}

func TestMergeUpload(t *testing.T) {
	cfg, root := workspace(t)
	writeWorkbook(t, filepath.Join(root, "excels", "day1.xlsx"), [][]string{
		{"Timestamp", "Flow"},
		{"2024-01-01 00:00", "10"},
	})
	if err := run(t, "--config", cfg, "convert"); err != nil {
		t.Fatal(err)
	}
	if err := run(t, "--config", cfg, "merge", "--upload"); err != nil {
		t.Fatalf("merge --upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "steamfield_csvs", "master.csv")); err != nil {
		t.Fatalf("master.csv not stored: %v", err)
	}

	// master.csv is not an input table, and an existing master is never replaced.
	err := run(t, "--config", cfg, "merge", "--upload")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already-exists error, got %v", err)
	}
}

func TestMergeEmptyFolder(t *testing.T) {
	cfg, _ := workspace(t)
	if err := run(t, "--config", cfg, "merge"); err != nil {
		t.Errorf("merge of an empty folder should succeed, got %v", err)
	}
}

func TestMergeRejectsBadPolicy(t *testing.T) {
	cfg, _ := workspace(t)
	if err := run(t, "--config", cfg, "merge", "--duplicates", "average"); err == nil {
		t.Error("expected error for unknown duplicate policy")
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	writeWorkbook(t, path, [][]string{
		{"Timestamp", "Flow"},
		{"2024-01-01 00:00", "10"},
	})
	if err := run(t, "inspect", path, "--rows", "1"); err != nil {
		t.Errorf("inspect: %v", err)
	}
	if err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("expected error for a missing workbook")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg, _ := workspace(t)
	if err := run(t, "--config", cfg, "config", "validate"); err != nil {
		t.Errorf("config validate: %v", err)
	}
}

func TestVersion(t *testing.T) {
	if err := run(t, "version"); err != nil {
		t.Errorf("version: %v", err)
	}
}
