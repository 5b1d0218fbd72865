package ptt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ptt_crawler/internal/parser"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func articleHTML(board, id, title string) string {
	return fmt.Sprintf(`<html><head>
<link rel="canonical" href="https://www.ptt.cc/bbs/%[1]s/%[2]s.html">
<meta property="og:title" content="%[3]s">
</head><body><div id="main-content" class="bbs-screen bbs-content"><div class="article-metaline"><span class="article-meta-tag">作者</span><span class="article-meta-value">tester (測試)</span></div><div class="article-metaline-right"><span class="article-meta-tag">看板</span><span class="article-meta-value">%[1]s</span></div><div class="article-metaline"><span class="article-meta-tag">標題</span><span class="article-meta-value">%[3]s</span></div><div class="article-metaline"><span class="article-meta-tag">時間</span><span class="article-meta-value">Thu Jun 14 14:18:43 2007</span></div>
body of %[2]s
--
<span class="f2">※ 發信站: 批踢踢實業坊(ptt.cc), 來自: 1.2.3.4
</span><div class="push"><span class="hl push-tag">推 </span><span class="f3 hl push-userid">alice</span><span class="f3 push-content">: 推</span><span class="push-ipdatetime"> 06/14 14:20
</span></div></div></body></html>`, board, id, title)
}

const deletedHTML = `<html><body><div class="bbs-screen bbs-content">404 - Not Found.</div></body></html>`

// listingHTML renders a board index page. An empty href renders a removed
// row without a link; prev is the "previous page" href, omitted when empty.
func listingHTML(prev string, hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="btn-group btn-group-paging">`)
	b.WriteString(`<a class="btn wide" href="/bbs/Soft_Job/index1.html">最舊</a>`)
	if prev != "" {
		fmt.Fprintf(&b, `<a class="btn wide" href="%s">‹ 上頁</a>`, prev)
	} else {
		b.WriteString(`<a class="btn wide disabled">‹ 上頁</a>`)
	}
	b.WriteString(`</div><div class="r-list-container">`)
	for _, href := range hrefs {
		if href == "" {
			b.WriteString(`<div class="r-ent"><div class="title">(本文已被刪除) [someone]</div></div>`)
			continue
		}
		fmt.Fprintf(&b, `<div class="r-ent"><div class="title"><a href="%s">[閒聊] %s</a></div></div>`, href, href)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// boardServer serves fixed pages by path and counts requests per path.
type boardServer struct {
	*httptest.Server

	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	delay  map[string]time.Duration
	hits   map[string]int
}

func newBoardServer(t *testing.T) *boardServer {
	t.Helper()
	s := &boardServer{
		pages:  map[string]string{},
		status: map[string]int{},
		delay:  map[string]time.Duration{},
		hits:   map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *boardServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.pages[r.URL.Path]
	status := s.status[r.URL.Path]
	delay := s.delay[r.URL.Path]
	s.mu.Unlock()

	if r.URL.Path == "/ask/over18" {
		http.SetCookie(w, &http.Cookie{Name: "over18", Value: "1", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, body)
}

func (s *boardServer) setPage(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = body
}

func (s *boardServer) setStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = status
}

func (s *boardServer) setDelay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[path] = d
}

func (s *boardServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *boardServer) config() Config {
	return Config{
		BaseURL:         s.URL,
		UserAgent:       "pttcrawler-test",
		Timeout:         5 * time.Second,
		Concurrency:     4,
		PageConcurrency: 2,
		MaxAttempts:     1,
	}
}

func newTestCrawler(t *testing.T, s *boardServer, cfg Config) *Crawler {
	t.Helper()
	client, err := NewClient(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	crawler, err := NewCrawler(client, parser.New(discardLogger()), cfg, discardLogger())
	require.NoError(t, err)
	return crawler
}
