package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestListHidesManagedFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"allWorkData.json":  "{}",
		"portfolioMap.json": "{}",
		"experience.csv":    "a,b",
		"publish.csv":       "a,b",
		"notes.csv":         "a,b",
		"README.md":         "x",
		"skillsData.json":   "{}",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	got, err := NewFileStore(dir, nil).List()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"allWorkData.json", "notes.csv", "skillsData.json"}, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestValidName(t *testing.T) {
	for _, name := range []string{
		"", "..", "../secret.json", "a..b.json", "dir/x.json", `dir\x.json`,
		".journal.db", ".journal.db-wal", ".hidden.json", "notes.txt", "run.sh", "json",
	} {
		require.ErrorIs(t, ValidName(name), ErrInvalidName, name)
	}
	require.NoError(t, ValidName("allWorkData.json"))
	require.NoError(t, ValidName("notes.csv"))
}

func TestReadReturnsETag(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.json": `{"x":1}`})
	s := NewFileStore(dir, nil)

	f, err := s.Read("a.json")
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, string(f.Content))
	require.Equal(t, ETag([]byte(`{"x":1}`)), f.ETag)
	require.Regexp(t, `^W/"[0-9a-f]{64}"$`, f.ETag)

	_, err = s.Read("missing.json")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Read("../a.json")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestWriteChecksIfMatch(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.json": "old"})
	s := NewFileStore(dir, nil)
	ctx := context.Background()
	oldTag := ETag([]byte("old"))

	_, err := s.Write(ctx, "a.json", []byte("new"), `W/"stale"`)
	require.ErrorIs(t, err, ErrVersionMismatch)
	data, _ := os.ReadFile(filepath.Join(dir, "a.json"))
	require.Equal(t, "old", string(data))

	res, err := s.Write(ctx, "a.json", []byte("new"), oldTag)
	require.NoError(t, err)
	require.Equal(t, oldTag, res.PrevETag)
	require.Equal(t, ETag([]byte("new")), res.ETag)
	require.Equal(t, 3, res.Size)

	// strong form of the same validator also matches
	strong := res.ETag[2:]
	_, err = s.Write(ctx, "a.json", []byte("newer"), strong)
	require.NoError(t, err)

	// no precondition means last write wins
	_, err = s.Write(ctx, "a.json", []byte("last"), "")
	require.NoError(t, err)

	_, err = s.Write(ctx, "b.json", []byte("x"), "*")
	require.ErrorIs(t, err, ErrVersionMismatch)
	_, err = s.Write(ctx, "a.json", []byte("y"), "*")
	require.NoError(t, err)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.json": "{}"})
	s := NewFileStore(dir, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Write(context.Background(), "a.json", []byte(`{"n":1}`), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSavingWorkDataSyncsPortfolioMap(t *testing.T) {
	dir := writeFiles(t, map[string]string{"allWorkData.json": "{}"})
	s := NewFileStore(dir, nil)

	body := `{
  "b": {"fullName": "Full B"},
  "a": {"tableName": "  Table\nA  ", "fullName": "ignored"},
  "c": {}
}`
	res, err := s.Write(context.Background(), "allWorkData.json", []byte(body), "")
	require.NoError(t, err)
	require.True(t, res.MapSynced)

	got, err := os.ReadFile(filepath.Join(dir, "portfolioMap.json"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"a\": \"Table A\",\n  \"b\": \"Full B\",\n  \"c\": \"c\"\n}\n", string(got))
}

func TestWorkDataWithLooseFieldsStillSyncsMap(t *testing.T) {
	dir := writeFiles(t, map[string]string{"portfolioMap.json": "{\"mc5\": \"old\"}\n"})
	s := NewFileStore(dir, nil)

	body := `{"mc5": {"tableName": "MC5\nNew", "tags": "vr, mocap"}}`
	res, err := s.Write(context.Background(), "allWorkData.json", []byte(body), "")
	require.NoError(t, err)
	require.True(t, res.MapSynced)

	got, err := os.ReadFile(filepath.Join(dir, "portfolioMap.json"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"mc5\": \"MC5 New\"\n}\n", string(got))
}

func TestMalformedWorkDataStillSaves(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	dir := writeFiles(t, map[string]string{"portfolioMap.json": "{\"keep\": \"me\"}\n"})
	s := NewFileStore(dir, zap.New(core))

	res, err := s.Write(context.Background(), "allWorkData.json", []byte("{broken"), "")
	require.NoError(t, err)
	require.False(t, res.MapSynced)
	require.Equal(t, 1, logs.FilterMessage("portfolio map sync failed").Len())

	data, _ := os.ReadFile(filepath.Join(dir, "allWorkData.json"))
	require.Equal(t, "{broken", string(data))
	kept, _ := os.ReadFile(filepath.Join(dir, "portfolioMap.json"))
	require.Equal(t, "{\"keep\": \"me\"}\n", string(kept))
}

func TestJournalRecordsAndLists(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	j.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, res := range []WriteResult{
		{Name: "a.json", ETag: `W/"1"`, Size: 1},
		{Name: "b.json", ETag: `W/"2"`, Size: 2},
		{Name: "a.json", PrevETag: `W/"1"`, ETag: `W/"3"`, Size: 3},
	} {
		rev, err := j.Record(ctx, res)
		require.NoError(t, err)
		require.Len(t, rev.ID, 26)
	}

	all, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, `W/"3"`, all[0].ETag)

	onlyA, err := j.List(ctx, "a.json", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	require.Equal(t, `W/"1"`, onlyA[0].PrevETag)
	require.True(t, onlyA[0].CreatedAt.Equal(base.Add(3*time.Second)))
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	rev, err := j.Record(context.Background(), WriteResult{Name: "a.json"})
	require.NoError(t, err)
	require.Empty(t, rev.ID)
	revs, err := j.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Empty(t, revs)
	require.NoError(t, j.Close())
}

func TestValidData(t *testing.T) {
	require.True(t, validData("a.json", []byte(`{"a":1}`)))
	require.False(t, validData("a.json", []byte(`{"a":`)))
	require.True(t, validData("a.csv", []byte("a,b\n1,2\n")))
	require.False(t, validData("a.csv", []byte("a,b\n1,2,3\n")))
	require.True(t, validData("notes.txt", []byte("{")))
}

func TestSaveOutcome(t *testing.T) {
	require.Equal(t, "ok", saveOutcome(nil))
	require.Equal(t, "conflict", saveOutcome(fmt.Errorf("wrap: %w", ErrVersionMismatch)))
	require.Equal(t, "invalid", saveOutcome(ValidName("..")))
	require.Equal(t, "error", saveOutcome(os.ErrPermission))
}
