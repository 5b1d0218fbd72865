package parser

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ptt_crawler/internal/domain"
)

// TimeZone is the fixed UTC+8 offset every PTT timestamp is written in.
var TimeZone = time.FixedZone("UTC+8", 8*60*60)

const dateLayout = "Mon Jan _2 15:04:05 2006"

var (
	titleRe      = regexp.MustCompile(`^(?:[\[［](?P<category>[\p{L}\p{N}_]+)[\]］]\s*)?(?P<title>.+)$`)
	authorRe     = regexp.MustCompile(`(?P<id>\w+)\s\((?P<name>.+)\)`)
	rawTitleRe   = regexp.MustCompile(`標題:([^\n]*)`)
	rawAuthorRe  = regexp.MustCompile(`作者:([^\n]*)`)
	rawBoardRe   = regexp.MustCompile(`看板:\s*([^\s]+)`)
	rawDateRe    = regexp.MustCompile(`\w{3} \w{3} +\d{1,2} \d{2}:\d{2}:\d{2} \d{4}`)
	ipv4Re       = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	originLabels = []string{"來自:", "From:"}
)

// strategy locates the raw text of one field. Strategies for a field are
// tried in order and the first one reporting ok wins.
type strategy func(doc *goquery.Document) (string, bool)

func firstOf(doc *goquery.Document, chain ...strategy) (string, bool) {
	for _, locate := range chain {
		if v, ok := locate(doc); ok {
			return v, true
		}
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func metaValue(n int) strategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find("span.article-meta-value").Eq(n)
		if sel.Length() == 0 {
			return "", false
		}
		return nonEmpty(sel.Text())
	}
}

func ogTitle(doc *goquery.Document) (string, bool) {
	content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if !ok {
		return "", false
	}
	return nonEmpty(content)
}

// labeledField finds a span whose text is exactly label and returns the
// text of the element right after it.
func labeledField(label string) strategy {
	return func(doc *goquery.Document) (string, bool) {
		tag := doc.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == label
		}).First()
		if tag.Length() == 0 {
			return "", false
		}
		return nonEmpty(tag.Next().Text())
	}
}

// rawMarker scans the main content text with re and returns its first group.
func rawMarker(re *regexp.Regexp) strategy {
	return func(doc *goquery.Document) (string, bool) {
		text, ok := mainContent(doc)
		if !ok {
			return "", false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			return nonEmpty(m[1])
		}
		return nonEmpty(m[0])
	}
}

func mainContent(doc *goquery.Document) (string, bool) {
	sel := doc.Find("div#main-content").First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// articleExists reports false when a content block carries the site's
// not-found notice.
func articleExists(doc *goquery.Document) bool {
	deleted := doc.Find(".bbs-content").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "404 - Not Found.")
	})
	return deleted.Length() == 0
}

// parseID takes the basename of the canonical URL without its .html suffix.
func parseID(doc *goquery.Document) (string, error) {
	href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	if !ok {
		return "", fieldNotFound("id")
	}
	segment := href[strings.LastIndex(href, "/")+1:]
	if i := strings.Index(segment, ".html"); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return "", fieldNotFound("id")
	}
	return segment, nil
}

func parseTitle(doc *goquery.Document) (category, title string, err error) {
	raw, ok := firstOf(doc,
		ogTitle,
		labeledField("標題"),
		rawMarker(rawTitleRe),
	)
	if !ok {
		return "", "", fieldNotFound("title")
	}
	category, title = splitTitle(raw)
	return category, title, nil
}

// splitTitle separates an optional bracketed category prefix from the title.
func splitTitle(raw string) (category, title string) {
	raw = strings.TrimSpace(raw)
	m := titleRe.FindStringSubmatch(raw)
	if m == nil {
		return "", raw
	}
	return m[titleRe.SubexpIndex("category")], m[titleRe.SubexpIndex("title")]
}

func parseAuthor(doc *goquery.Document) (id string, name *string, err error) {
	raw, ok := firstOf(doc,
		metaValue(0),
		labeledField("作者"),
		rawAuthor,
	)
	if !ok {
		return "", nil, fieldNotFound("author")
	}
	id, name = splitAuthor(raw)
	return id, name, nil
}

// rawAuthor reads the legacy inline header, where the board label may share
// the author line.
func rawAuthor(doc *goquery.Document) (string, bool) {
	raw, ok := rawMarker(rawAuthorRe)(doc)
	if !ok {
		return "", false
	}
	raw, _, _ = strings.Cut(raw, "看板")
	return nonEmpty(raw)
}

func splitAuthor(raw string) (string, *string) {
	raw = strings.TrimSpace(raw)
	m := authorRe.FindStringSubmatch(raw)
	if m == nil {
		return raw, nil
	}
	name := m[authorRe.SubexpIndex("name")]
	return m[authorRe.SubexpIndex("id")], &name
}

// parseBoard returns ok=false only when no strategy located a board at all.
// Unrecognized names resolve to BoardUnknown.
func parseBoard(doc *goquery.Document) (domain.BoardName, bool) {
	raw, ok := firstOf(doc,
		metaValue(1),
		labeledField("看板"),
		rawMarker(rawBoardRe),
	)
	if !ok {
		return domain.BoardUnknown, false
	}
	return domain.ParseBoardName(raw), true
}

func parseDate(doc *goquery.Document) (time.Time, error) {
	raw, ok := firstOf(doc,
		metaValue(3),
		rawMarker(rawDateRe),
	)
	if !ok {
		return time.Time{}, fieldNotFound("date")
	}
	return parseDateString(raw)
}

func parseDateString(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	t, err := time.ParseInLocation(dateLayout, s, TimeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidFormat, s, err)
	}
	return t, nil
}

func parseIP(doc *goquery.Document) (netip.Addr, error) {
	raw, ok := firstOf(doc,
		originLine,
		originInContent,
	)
	if !ok {
		return netip.Addr{}, fieldNotFound("ip")
	}
	return parseIPv4(raw)
}

// originLine finds the small metadata line that names where the post was
// sent from. Edit annotations carry addresses too and are skipped.
func originLine(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find("span.f2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, "編輯") || !containsOriginLabel(text) {
			return true
		}
		found = text
		return false
	})
	return nonEmpty(found)
}

func originInContent(doc *goquery.Document) (string, bool) {
	text, ok := mainContent(doc)
	if !ok {
		return "", false
	}
	for _, label := range originLabels {
		if i := strings.Index(text, label); i >= 0 {
			return nonEmpty(text[i:])
		}
	}
	return nonEmpty(text)
}

func containsOriginLabel(s string) bool {
	for _, label := range originLabels {
		if strings.Contains(s, label) {
			return true
		}
	}
	return false
}

// parseIPv4 extracts the first IPv4-shaped token of s and validates it.
func parseIPv4(s string) (netip.Addr, error) {
	token := ipv4Re.FindString(s)
	if token == "" {
		return netip.Addr{}, fieldNotFound("ip")
	}
	addr, err := netip.ParseAddr(token)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: ip %q", ErrInvalidFormat, token)
	}
	return addr, nil
}

// parseContent keeps the text between the header line and the first
// trailing "※" quote marker.
func parseContent(doc *goquery.Document) (string, error) {
	text, ok := mainContent(doc)
	if !ok {
		return "", fieldNotFound("content")
	}
	start := strings.Index(text, "\n")
	if start < 0 {
		return "", fmt.Errorf("%w: start of content not found", ErrInvalidFormat)
	}
	body := text[start+1:]
	end := strings.Index(body, "\n※")
	if end < 0 {
		return "", fmt.Errorf("%w: end of content not found", ErrInvalidFormat)
	}
	return strings.TrimSpace(body[:end]), nil
}
