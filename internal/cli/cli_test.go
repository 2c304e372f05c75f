package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
storage:
  driver: sqlite
  path: %DB%
logging:
  level: error
  format: text
search:
  defaultDomain: travel
records:
  - name: pages
    type: static
    tag: page
    documents:
      - title: Berlin Travel Guide
        content: ["Visit Berlin for amazing sights"]
        path: /berlin
      - title: Museums
        content: ["The best museums in Berlin"]
        path: /museums
      - title: Berlin news
        tag: news
        content: ["Election results from Berlin"]
domains:
  - name: travel
    languages: [en]
    recordIndexers: [pages]
    sites:
      - id: main
        baseUrl: https://example.org/
    tags:
      - id: news
        label: News
      - id: page
        label: Pages
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := strings.ReplaceAll(testConfigYAML, "%DB%", filepath.Join(dir, "index.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes rootCmd with fresh flag state and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	lookupOpts.domain, lookupOpts.site, lookupOpts.language = "", "", ""
	lookupOpts.tags = nil
	lookupOpts.limit, lookupOpts.offset, lookupOpts.maxTagItems, lookupOpts.matchLength = 0, 0, 0, 0
	lookupOpts.where = ""
	indexPublish = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := run(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Nil(t, tagsCmd.Flags().Lookup("limit"))
}

func TestIndexThenLookup(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "index", "travel")
	require.NoError(t, err)
	assert.Contains(t, out, "travel: 3 nodes")

	out, err = run(t, "--config", cfg, "--json", "search", "sights")
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Berlin Travel Guide", results[0]["title"])

	out, err = run(t, "--config", cfg, "--json", "counts", "berlin")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, map[string]int{"page": 2, "news": 1, "_total": 3}, counts)

	out, err = run(t, "--config", cfg, "counts", "berlin", "--tags", "news")
	require.NoError(t, err)
	assert.Contains(t, out, "news")
	assert.NotContains(t, out, "page")

	out, err = run(t, "--config", cfg, "autocomplete", "berl")
	require.NoError(t, err)
	assert.Contains(t, out, "berlin")

	out, err = run(t, "--config", cfg, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "News")
	assert.Contains(t, out, "Pages")

	out, err = run(t, "--config", cfg, "sitemap")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.org/berlin")
	assert.Contains(t, out, "https://example.org/museums")
}

func TestSearchBeforeIndexIsEmpty(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "search", "berlin")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestUnknownDomainFails(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "search", "berlin", "--domain", "nope")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "storage ready (sqlite)")
}

func TestRequestReindexNeedsKafka(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "request-reindex", "travel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka is disabled")
}

func TestIndexPublishNeedsKafka(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "index", "--publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires kafka")
}
