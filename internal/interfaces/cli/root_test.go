package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/patentdb/internal/application/ingestion"
	"github.com/turtacn/patentdb/internal/config"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

const patentLines = `{"patent":{"number":"7000001","country":"US","kind":"B2","date":"20060214","title":"Widget"},"inventors":[{"entity":{"uuid":"inv-1","name_first":"Ann","name_last":"Lee","sequence":0},"location":{"city":"Austin","state":"TX","country":"US"}}],"citations":[{"citation_id":"5000001","sequence":0}],"other_references":[{"text":"Smith et al.","sequence":0}]}
not json
{"patent":{"number":"7000002","country":"US","kind":"B2","date":"20060221","title":"Gadget"},"inventors":[{"entity":{"uuid":"inv-2","name_first":"Ann","name_last":"Lee","sequence":0}},{"entity":{"uuid":"inv-3","name_first":"Bo","name_last":"Chen","sequence":1}}],"citations":[{"citation_id":"5000002","sequence":0}]}
`

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "patentdb.yaml")
	content := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "patentdb.sqlite") + "\n" +
		"log:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grants.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memUploader) Upload(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func stubUploader(t *testing.T) *memUploader {
	t.Helper()
	up := &memUploader{objects: map[string][]byte{}}
	orig := newUploader
	newUploader = func(context.Context, config.MinIOConfig, logging.Logger) (ingestion.Uploader, func() error, error) {
		return up, nil, nil
	}
	t.Cleanup(func() { newUploader = orig })
	return up
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "patentdb", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"ingest", "match", "export-staging", "schema", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
}

func TestVersion_SkipsInitialisation(t *testing.T) {
	out, err := run(t, "", "--config", "/nonexistent/patentdb.yaml", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "patentdb dev")

	out, err = run(t, "", "version", "--json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
}

func TestRoot_BadConfig(t *testing.T) {
	_, err := run(t, "", "--config", "/nonexistent/patentdb.yaml", "schema")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRoot_BadOutputFormat(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "--output", "xml", "schema")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRoot_BadLogLevel(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "--log-level", "loud", "schema")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRoot_UnknownFlagIsInputError(t *testing.T) {
	_, err := run(t, "", "schema", "--bogus")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(errors.InvalidParam("x")))
	assert.Equal(t, 3, ExitCode(errors.New(errors.ErrCodeDatabaseError, "x")))
	assert.Equal(t, 1, ExitCode(errors.New(errors.ErrCodeFeatureDisabled, "x")))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"KEY", "ID"}, [][]string{{"lee", "inv-1"}, {"chen-bo", "inv-3"}})
	assert.Equal(t, "KEY      ID\n-------  -----\nlee      inv-1\nchen-bo  inv-3\n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Subcommands
// ─────────────────────────────────────────────────────────────────────────────

func TestSchema_ListsTables(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := run(t, "", "--config", cfg, "-o", "json", "schema")
	require.NoError(t, err)

	var res schemaResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.Tables, "patent")
	assert.Contains(t, res.Tables, "rawinventor")
}

func TestIngest_File(t *testing.T) {
	cfg := writeConfig(t, "")
	input := writeInput(t, patentLines)

	out, err := run(t, "", "--config", cfg, "-o", "json", "ingest", input)
	require.NoError(t, err)

	var res ingestResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total.Created)
	assert.Equal(t, 1, res.Total.Rejected)
	require.Len(t, res.Inputs, 1)
	require.Len(t, res.Inputs[0].Failures, 1)
	assert.Equal(t, 2, res.Inputs[0].Failures[0].Line)

	out, err = run(t, "", "--config", cfg, "ingest", "--keep-existing", input)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 0 replaced, 2 skipped, 1 rejected, 0 failed")
}

func TestIngest_Stdin(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := run(t, patentLines, "--config", cfg, "-o", "table", "ingest", "--decoders", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "INPUT")
	assert.Contains(t, out, "TOTAL")
}

func TestIngest_BadDecoders(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "ingest", "--decoders", "0")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestIngest_MissingFile(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "ingest", filepath.Join(t.TempDir(), "missing.ndjson"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestIngest_WritesMetricsTextfile(t *testing.T) {
	prom := filepath.Join(t.TempDir(), "patentdb.prom")
	cfg := writeConfig(t, "metrics:\n  enabled: true\n  textfile: "+prom+"\n")

	_, err := run(t, "", "--config", cfg, "ingest", writeInput(t, patentLines))
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `patentdb_patent_ingest_total{outcome="created"} 2`)
	assert.Contains(t, string(data), `patentdb_patent_ingest_total{outcome="rejected"} 1`)
}

func TestMatch_IDs(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "ingest", writeInput(t, patentLines))
	require.NoError(t, err)

	out, err := run(t, "", "--config", cfg, "-o", "json", "match", "inventor", "inv-2", "inv-1", "--set", "name_first=Anne")
	require.NoError(t, err)

	var res struct {
		Kind    string            `json:"kind"`
		ID      string            `json:"id"`
		Fields  map[string]string `json:"fields"`
		Members []string          `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "inventor", res.Kind)
	assert.Equal(t, "inv-1", res.ID)
	assert.Equal(t, []string{"inv-1", "inv-2"}, res.Members)
	assert.Equal(t, "Anne", res.Fields["name_first"])
	assert.Equal(t, "Lee", res.Fields["name_last"])
}

func TestMatch_GroupsFromStdin(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "ingest", writeInput(t, patentLines))
	require.NoError(t, err)

	groups := `{"key":"lee-ann","ids":["inv-1","inv-2"]}
{"key":"chen-bo","ids":["inv-3"]}
`
	out, err := run(t, groups, "--config", cfg, "match", "inventor", "--groups", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "inventor: 2 groups merged, 0 failed")
}

func TestMatch_GroupFailureIsReported(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "ingest", writeInput(t, patentLines))
	require.NoError(t, err)

	groups := `{"key":"ghost","ids":["inv-404"]}`
	out, err := run(t, groups, "--config", cfg, "match", "inventor", "--groups", "-")
	require.Error(t, err)
	assert.Contains(t, out, "0 groups merged, 1 failed")
	assert.Contains(t, out, "inv-404")
}

func TestMatch_ArgumentErrors(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, "", "--config", cfg, "match", "inventor")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = run(t, "", "--config", cfg, "match", "inventor", "inv-1", "--groups", "-")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = run(t, "", "--config", cfg, "match", "planet", "p-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEntityKindUnknown))
	assert.Equal(t, 2, ExitCode(err))
}

func TestExportStaging(t *testing.T) {
	up := stubUploader(t)
	cfg := writeConfig(t, "minio:\n  enabled: true\n  endpoint: localhost:9000\n  bucket: staging\n")

	_, err := run(t, "", "--config", cfg, "ingest", "--staging", writeInput(t, patentLines))
	require.NoError(t, err)

	out, err := run(t, "", "--config", cfg, "-o", "json", "export-staging")
	require.NoError(t, err)

	var res ingestion.ExportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Citations)
	assert.Equal(t, 1, res.OtherReferences)
	assert.Len(t, res.Objects, 2)
	assert.Len(t, up.objects, 2)

	out, err = run(t, "", "--config", cfg, "export-staging")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing staged")
}

func TestExportStaging_Disabled(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, "", "--config", cfg, "export-staging")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

//Personal.AI order the ending
