package parser

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ptt_crawler/internal/domain"
)

// oversizeNotice replaces the tail of replies on threads too large to render.
const oversizeNotice = "檔案過大！部分文章無法顯示"

var ipDateTimeRe = regexp.MustCompile(
	`(?P<ip>\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})?\s?(?P<month>\d{2})/(?P<day>\d{2})(?:\s*(?P<hour>\d{2}):(?P<min>\d{2}))?`,
)

// replyStamp is the origin address and the partial timestamp printed next
// to a reply. The year is never printed.
type replyStamp struct {
	ip     *netip.Addr
	month  int
	day    int
	hour   int
	minute int
}

func (p *Parser) parseReplies(doc *goquery.Document, articleDate *time.Time) []domain.Reply {
	replies := []domain.Reply{}
	doc.Find("div.push").Each(func(i int, s *goquery.Selection) {
		reply, err := parseReply(s, articleDate)
		if err != nil {
			p.logger.Warn("dropped reply",
				"index", i,
				"text", strings.TrimSpace(s.Text()),
				"error", err,
			)
			return
		}
		replies = append(replies, reply)
	})
	return replies
}

func parseReply(s *goquery.Selection, articleDate *time.Time) (domain.Reply, error) {
	if strings.TrimSpace(s.Text()) == oversizeNotice {
		return domain.Reply{}, fmt.Errorf("%w: oversize notice", ErrInvalidFormat)
	}

	tag := s.Find("span.push-tag").First()
	if tag.Length() == 0 {
		return domain.Reply{}, fieldNotFound("push-tag")
	}
	replyType, err := domain.ParseReplyType(strings.TrimSpace(tag.Text()))
	if err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	authorID := strings.TrimSpace(s.Find("span.push-userid").First().Text())
	content := strings.TrimSpace(strings.TrimLeft(s.Find("span.push-content").First().Text(), ": "))
	ipDateTime := strings.TrimSpace(s.Find("span.push-ipdatetime").First().Text())

	stamp, ok := matchStamp(ipDateTime)
	if !ok {
		// Older pages print the stamp inside the message itself.
		loc := ipDateTimeRe.FindStringIndex(content)
		if loc == nil {
			return domain.Reply{}, fmt.Errorf("%w: reply time not found", ErrInvalidFormat)
		}
		stamp, _ = matchStamp(content[loc[0]:loc[1]])
		content = strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	}

	return domain.Reply{
		Type:     replyType,
		AuthorID: authorID,
		IP:       stamp.ip,
		Date:     InferReplyDate(articleDate, stamp.month, stamp.day, stamp.hour, stamp.minute),
		Content:  content,
	}, nil
}

func matchStamp(s string) (replyStamp, bool) {
	m := ipDateTimeRe.FindStringSubmatch(s)
	if m == nil {
		return replyStamp{}, false
	}
	group := func(name string) string {
		return m[ipDateTimeRe.SubexpIndex(name)]
	}
	atoi := func(name string) int {
		n, _ := strconv.Atoi(group(name))
		return n
	}

	stamp := replyStamp{
		month:  atoi("month"),
		day:    atoi("day"),
		hour:   atoi("hour"),
		minute: atoi("min"),
	}
	if raw := group("ip"); raw != "" {
		if addr, err := netip.ParseAddr(raw); err == nil && addr.Is4() {
			stamp.ip = &addr
		}
	}
	return stamp, true
}

// InferReplyDate rebuilds a reply timestamp from the month, day, hour and
// minute printed beside it. The year comes from the article; a 02/29 stamp
// moves forward to the next leap year since a reply cannot predate its
// article. It returns nil when the article date is unknown or the values do
// not form a real time.
func InferReplyDate(articleDate *time.Time, month, day, hour, minute int) *time.Time {
	if articleDate == nil {
		return nil
	}
	year := articleDate.In(TimeZone).Year()
	if month == 2 && day == 29 {
		for !isLeapYear(year) {
			year++
		}
	}
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, TimeZone)
	// time.Date normalizes overflow such as 03/32 into April.
	if t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
