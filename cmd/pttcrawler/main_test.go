package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt_crawler/internal/config"
	"ptt_crawler/internal/domain"
	"ptt_crawler/internal/storage/sqldb"
)

const articlePath = "/bbs/Soft_Job/M.1181801925.A.86E.html"

// newPTTServer serves a one-page Soft_Job board holding a single article.
func newPTTServer(t *testing.T) *httptest.Server {
	t.Helper()
	article, err := os.ReadFile(filepath.Join("..", "..", "internal", "parser", "testdata", "Soft_Job_M.1181801925.A.86E.html"))
	require.NoError(t, err)

	listing := fmt.Sprintf(`<html><body>
<div class="btn-group btn-group-paging"><a class="btn wide disabled">‹ 上頁</a></div>
<div class="r-ent"><div class="title"><a href="%s">[公告] Soft_Job 板試閱</a></div></div>
</body></html>`, articlePath)

	mux := http.NewServeMux()
	mux.HandleFunc("/ask/over18", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "over18", Value: "1", Path: "/"})
	})
	for _, path := range []string{"/bbs/Soft_Job/index.html", "/bbs/Soft_Job/index1.html"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(listing))
		})
	}
	mux.HandleFunc(articlePath, func(w http.ResponseWriter, r *http.Request) {
		w.Write(article)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTestConfig(t *testing.T, baseURL, dbPath string) string {
	t.Helper()
	content := fmt.Sprintf("crawler:\n  base_url: %s\n  timeout: 5s\n  retry:\n    max_attempts: 1\n", baseURL)
	if dbPath != "" {
		content += fmt.Sprintf("storage:\n  driver: sqlite\n  path: %s\n", dbPath)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decodeArticles(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var articles []map[string]any
	require.NoError(t, json.Unmarshal(data, &articles))
	return articles
}

func articleID(article map[string]any) string {
	meta, _ := article["meta"].(map[string]any)
	id, _ := meta["id"].(string)
	return id
}

func TestRun_NoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "Usage: pttcrawler")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"crawl"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `unknown command "crawl"`)
}

func TestRun_Boards(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"boards"}, &stdout, &stderr)

	require.Equal(t, exitOK, code)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, len(domain.Boards()))
	assert.Contains(t, lines, "Soft_Job")
	assert.Contains(t, lines, "Gossiping")
	assert.NotContains(t, lines, domain.BoardUnknown.String())
}

func TestRun_BoardUnknownName(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"board", "NoSuchBoard"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `unknown board "NoSuchBoard"`)
	assert.Empty(t, stdout.String())
}

func TestRun_BoardBadRange(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"board", "-range", "1,x", "Soft_Job"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
}

func TestRun_URLMissingArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"url"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
}

func TestRun_RunsWithoutStorage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"runs", "Soft_Job"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "storage.driver")
}

func TestRun_MissingConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "boards"}, &stdout, &stderr)

	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "read config file")
}

func TestRun_URL(t *testing.T) {
	server := newPTTServer(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"-config", writeTestConfig(t, server.URL, ""),
		"url", server.URL + articlePath,
	}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	articles := decodeArticles(t, stdout.Bytes())
	require.Len(t, articles, 1)
	assert.Equal(t, "M.1181801925.A.86E", articleID(articles[0]))
}

func TestRun_URLNotFound(t *testing.T) {
	server := newPTTServer(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"-config", writeTestConfig(t, server.URL, ""),
		"url", server.URL + "/bbs/Soft_Job/M.0000000000.A.000.html",
	}, &stdout, &stderr)

	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "command failed")
}

func TestRun_BoardToFileAndStorage(t *testing.T) {
	server := newPTTServer(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ptt.db")
	outPath := filepath.Join(dir, "out.json")
	configPath := writeTestConfig(t, server.URL, dbPath)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"-config", configPath,
		"-output", outPath,
		"board", "-range", "1", "Soft_Job",
	}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	articles := decodeArticles(t, data)
	require.Len(t, articles, 1)
	assert.Equal(t, "M.1181801925.A.86E", articleID(articles[0]))

	db, err := sqldb.Open(context.Background(), config.StorageConfig{Driver: config.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	defer db.Close()

	var saved int
	require.NoError(t, db.Get(&saved, "SELECT COUNT(*) FROM articles"))
	assert.Equal(t, 1, saved)
	var replies int
	require.NoError(t, db.Get(&replies, "SELECT COUNT(*) FROM replies"))
	assert.Equal(t, 5, replies)

	stdout.Reset()
	code = run(context.Background(), []string{"-config", configPath, "runs", "Soft_Job"}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	var runs []domain.CrawlStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "Soft_Job", runs[0].Board)
	assert.Equal(t, 1, runs[0].Articles)
	assert.Equal(t, 1, runs[0].Saved)
	assert.Equal(t, 1, runs[0].FirstPage)
	assert.Equal(t, 1, runs[0].LastPage)
}

func TestPageRange_Set(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    pageRange
		wantErr bool
	}{
		{name: "single", input: "3", want: pageRange{3}},
		{name: "pair", input: "5,2", want: pageRange{5, 2}},
		{name: "spaces", input: "1, 4", want: pageRange{1, 4}},
		{name: "not a number", input: "a", wantErr: true},
		{name: "too many", input: "1,2,3", wantErr: true},
		{name: "empty part", input: "1,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r pageRange
			err := r.Set(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
			assert.Equal(t, strings.ReplaceAll(tt.input, " ", ""), r.String())
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}
