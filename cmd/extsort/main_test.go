package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfig points the config lookup at an empty directory so a
// developer's own config file cannot leak into tests.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_SortsTree(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out")
	writeFiles(t, src, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
		"sub/c.jpg": "jpeg",
		"README":    "readme",
	})

	code, _, stderr := runCLI(t, src, dst)
	require.Equal(t, 0, code, stderr)

	for rel, want := range map[string]string{
		"txt/a.txt":      "hello",
		"txt/b.txt":      "world",
		"jpg/c.jpg":      "jpeg",
		"unknown/README": "readme",
	} {
		got, err := os.ReadFile(filepath.Join(dst, rel))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(got))
	}

	assert.Contains(t, stderr, "msg=copied")
	assert.Contains(t, stderr, "run=")
	assert.Contains(t, stderr, "files 4")
	assert.Contains(t, stderr, "errors 0")
}

func TestRun_RelativePaths(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "src"), map[string]string{"x.go": "package x"})
	t.Chdir(dir)

	code, _, stderr := runCLI(t, "src", "out")
	require.Equal(t, 0, code, stderr)

	// Records carry absolute paths.
	assert.Contains(t, stderr, filepath.Join(dir, "out", "go", "x.go"))
	_, err := os.Stat(filepath.Join(dir, "out", "go", "x.go"))
	assert.NoError(t, err)
}

func TestRun_MissingSource(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	dst := filepath.Join(dir, "out")

	code, _, stderr := runCLI(t, filepath.Join(dir, "nope"), dst)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "source must be an existing directory")
	assert.Equal(t, 1, strings.Count(stderr, "level=ERROR"), stderr)
	assert.NotContains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "starting sort")

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "output must not be created")
}

func TestRun_SourceIsFile(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.txt": "x"})

	code, _, _ := runCLI(t, filepath.Join(dir, "file.txt"), filepath.Join(dir, "out"))
	assert.Equal(t, 2, code)
}

func TestRun_WrongArgCount(t *testing.T) {
	isolateConfig(t)

	code, _, stderr := runCLI(t, "only-one")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "extsort dev\n", stdout)
}

// failingTree returns a source whose .txt bucket cannot be created because
// a regular file occupies that path in the output.
func failingTree(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out")
	writeFiles(t, src, map[string]string{"a.txt": "a", "b.md": "b"})
	writeFiles(t, dst, map[string]string{"txt": "blocker"})
	return src, dst
}

func TestRun_ErrorsExitZeroByDefault(t *testing.T) {
	isolateConfig(t)
	src, dst := failingTree(t)

	code, _, stderr := runCLI(t, src, dst)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "error copying file")
	assert.Contains(t, stderr, "errors 1")

	got, err := os.ReadFile(filepath.Join(dst, "md", "b.md"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestRun_StrictExitsOne(t *testing.T) {
	isolateConfig(t)
	src, dst := failingTree(t)

	code, _, _ := runCLI(t, "--strict", src, dst)
	assert.Equal(t, 1, code)
}

func TestRun_StrictFromConfig(t *testing.T) {
	cfgDir := isolateConfig(t)
	writeFiles(t, cfgDir, map[string]string{"extsort/config.toml": "[defaults]\nstrict = true\n"})
	src, dst := failingTree(t)

	code, _, _ := runCLI(t, src, dst)
	assert.Equal(t, 1, code)

	// The flag wins over the config.
	code, _, _ = runCLI(t, "--strict=false", src, dst)
	assert.Equal(t, 0, code)
}

func TestRun_FoldCaseFromConfig(t *testing.T) {
	cfgDir := isolateConfig(t)
	writeFiles(t, cfgDir, map[string]string{"extsort/config.toml": "[defaults]\nfold_case = true\n"})
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out")
	writeFiles(t, src, map[string]string{"IMG.JPG": "a", "img2.jpg": "b"})

	code, _, stderr := runCLI(t, src, dst)
	require.Equal(t, 0, code, stderr)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "jpg", entries[0].Name())
}

func TestRun_BadConfigBWLimit(t *testing.T) {
	cfgDir := isolateConfig(t)
	writeFiles(t, cfgDir, map[string]string{"extsort/config.toml": "[defaults]\nbwlimit = \"lots\"\n"})
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "src"), map[string]string{"a.txt": "a"})

	code, _, stderr := runCLI(t, filepath.Join(dir, "src"), filepath.Join(dir, "out"))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "config bwlimit")
}

func TestRun_BadBWLimitFlag(t *testing.T) {
	isolateConfig(t)

	code, _, stderr := runCLI(t, "--bwlimit", "fast", "a", "b")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "invalid size")
}

func TestRun_DryRun(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out")
	writeFiles(t, src, map[string]string{"a.txt": "a"})

	code, _, stderr := runCLI(t, "--dry-run", src, dst)
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "would copy")

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_QuietHidesInfo(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFiles(t, src, map[string]string{"a.txt": "a"})

	code, _, stderr := runCLI(t, "-q", src, filepath.Join(dir, "out"))
	require.Equal(t, 0, code)
	assert.Empty(t, stderr)
}

func TestRun_JSONLogTee(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	logPath := filepath.Join(dir, "run.jsonl")
	writeFiles(t, src, map[string]string{"a.txt": "a", "b.csv": "b"})

	code, _, stderr := runCLI(t, "-q", "--log", logPath, src, filepath.Join(dir, "out"))
	require.Equal(t, 0, code, stderr)

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	runIDs := make(map[string]bool)
	copied := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		runIDs[rec["run"].(string)] = true
		if rec["msg"] == "copied" {
			copied++
		}
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, 2, copied)
	assert.Len(t, runIDs, 1)
}

// readJSONLog decodes every record of a --log file.
func readJSONLog(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var recs []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.NoError(t, scanner.Err())
	return recs
}

func findRecord(recs []map[string]any, msg string) map[string]any {
	for _, rec := range recs {
		if rec["msg"] == msg {
			return rec
		}
	}
	return nil
}

func TestRun_EmptySourceLogsStartAndCompletion(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out")
	logPath := filepath.Join(dir, "run.jsonl")
	require.NoError(t, os.MkdirAll(src, 0o755))

	code, _, stderr := runCLI(t, "-q", "--log", logPath, src, dst)
	require.Equal(t, 0, code, stderr)

	recs := readJSONLog(t, logPath)

	start := findRecord(recs, "starting sort")
	require.NotNil(t, start, "start record missing")
	assert.Equal(t, "INFO", start["level"])
	assert.Equal(t, src, start["src"])
	assert.Equal(t, dst, start["dst"])

	done := findRecord(recs, "sort completed")
	require.NotNil(t, done, "completion record missing")
	assert.Equal(t, "INFO", done["level"])
	assert.Equal(t, float64(0), done["files"])
	assert.Equal(t, float64(0), done["errors"])
	assert.NotEmpty(t, done["time"])

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "empty source must not create buckets")
}

func TestRun_CompletionLoggedWithErrors(t *testing.T) {
	isolateConfig(t)
	src, dst := failingTree(t)

	code, _, stderr := runCLI(t, src, dst)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "level=INFO msg=\"starting sort\"")
	assert.Contains(t, stderr, "level=INFO msg=\"sort completed\"")
	assert.Contains(t, stderr, "errors=1")
	assert.Less(t,
		strings.Index(stderr, "sort completed"),
		strings.Index(stderr, "completed with errors"))
}

func TestRun_NoColorWhenStderrIsNotTerminal(t *testing.T) {
	isolateConfig(t)
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	src, dst := failingTree(t)
	code, _, stderr := runCLI(t, src, dst)
	assert.Equal(t, 0, code)

	assert.True(t, color.NoColor)
	assert.Contains(t, stderr, "done ✗")
	assert.NotContains(t, stderr, "\x1b[")
}

func TestInsideTree(t *testing.T) {
	assert.True(t, insideTree("/a", "/a"))
	assert.True(t, insideTree("/a", "/a/b"))
	assert.False(t, insideTree("/a", "/ab"))
	assert.False(t, insideTree("/a/b", "/a"))
	assert.True(t, insideTree("/a", "/a/..b"))
}

func TestGenDocs(t *testing.T) {
	for format, file := range map[string]string{
		"man":      "extsort.1",
		"markdown": "extsort.md",
		"rest":     "extsort.rst",
	} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()

			code, _, stderr := runCLI(t, "gen-docs", "--format", format, "--dir", dir)
			require.Equal(t, 0, code, stderr)

			data, err := os.ReadFile(filepath.Join(dir, file))
			require.NoError(t, err)
			assert.Contains(t, string(data), "exits")
		})
	}
}

func TestGenDocs_UnknownFormat(t *testing.T) {
	code, _, stderr := runCLI(t, "gen-docs", "--format", "pdf", "--dir", t.TempDir())
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown format "pdf"`)
}

func TestRun_HelpDocumentsExitCodes(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "exits\nwith code 2")
	assert.Contains(t, stdout, "--strict")
}
