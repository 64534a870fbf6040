package erdgen

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createFixtureDatabase(t *testing.T, dir string) string {
	t.Helper()

	dbPath := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id), total REAL)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("create fixture table: %v", err)
		}
	}
	return dbPath
}

func generateConfig(dbPath, outputFile, format string) Config {
	return Config{
		Mode:       modeGenerate,
		DBType:     "sqlite",
		DBURL:      dbPath,
		OutputFile: outputFile,
		Format:     format,
		MaxTables:  100,
		Timeout:    30 * time.Second,
		NoHistory:  true,
	}
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fnErr := fn()

	if err := w.Close(); err != nil {
		t.Fatalf("close pipe writer: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	return string(out), fnErr
}

func TestRunGeneratePrintsConfirmationLine(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "schema.d2")

	out, err := captureStdout(t, func() error {
		return runGenerate(generateConfig(dbPath, outputFile, "d2"))
	})
	if err != nil {
		t.Fatalf("runGenerate returned error: %v", err)
	}

	want := "ER diagram has been generated and saved as " + outputFile + "\n"
	if out != want {
		t.Fatalf("expected stdout %q, got %q", want, out)
	}
}

func TestRunGenerateFailurePrintsNoConfirmation(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "schema.d2")

	out, err := captureStdout(t, func() error {
		return runGenerate(generateConfig(filepath.Join(dir, "nope.db"), outputFile, "d2"))
	})
	if err == nil {
		t.Fatal("expected error for missing sqlite database")
	}
	if out != "" {
		t.Fatalf("expected no stdout on failure, got %q", out)
	}
}

func TestRunGenerateWritesDiagramSource(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "schema.d2")

	if err := runGenerate(generateConfig(dbPath, outputFile, "d2")); err != nil {
		t.Fatalf("runGenerate returned error: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "shape: sql_table") {
		t.Fatalf("output missing sql_table shape:\n%s", out)
	}
	if !strings.Contains(out, `"orders"."user_id" -> "users"."id"`) {
		t.Fatalf("output missing foreign key edge:\n%s", out)
	}
}

func TestRunGenerateWritesSVG(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "schema.svg")

	if err := runGenerate(generateConfig(dbPath, outputFile, "svg")); err != nil {
		t.Fatalf("runGenerate returned error: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Fatalf("output does not look like svg: %.80s", data)
	}
}

func TestRunGenerateOverwritesOutput(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "schema.d2")

	cfg := generateConfig(dbPath, outputFile, "d2")
	if err := runGenerate(cfg); err != nil {
		t.Fatalf("first runGenerate returned error: %v", err)
	}
	first, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}

	if err := runGenerate(cfg); err != nil {
		t.Fatalf("second runGenerate returned error: %v", err)
	}
	second, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read output file after rerun: %v", err)
	}

	if string(first) != string(second) {
		t.Fatal("rerun with unchanged database should produce identical output")
	}
}

func TestRunGenerateMissingOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "missing", "schema.d2")

	err := runGenerate(generateConfig(dbPath, outputFile, "d2"))
	if err == nil {
		t.Fatal("expected error for missing output directory")
	}
	if !strings.Contains(err.Error(), "write output file") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(outputFile); !os.IsNotExist(statErr) {
		t.Fatalf("no output file should exist, stat err: %v", statErr)
	}
}

func TestRunGenerateMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "schema.d2")

	err := runGenerate(generateConfig(filepath.Join(dir, "nope.db"), outputFile, "d2"))
	if err == nil {
		t.Fatal("expected error for missing sqlite database")
	}
	if !strings.Contains(err.Error(), "open database") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunGenerateRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := createFixtureDatabase(t, dir)
	outputFile := filepath.Join(dir, "schema.d2")
	historyFile := filepath.Join(dir, "history.jsonl")

	cfg := generateConfig(dbPath, outputFile, "d2")
	cfg.NoHistory = false
	cfg.HistoryFile = historyFile

	if err := runGenerate(cfg); err != nil {
		t.Fatalf("runGenerate returned error: %v", err)
	}

	entries, err := readHistoryEntries(historyFile)
	if err != nil {
		t.Fatalf("readHistoryEntries returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Output != outputFile || entry.Format != "d2" {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
	if entry.Tables != 2 || entry.Relations != 1 {
		t.Fatalf("unexpected history counts: %+v", entry)
	}
	if entry.Error != "" {
		t.Fatalf("expected no error in history entry, got %q", entry.Error)
	}
}
