package domain

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"time"
)

type Meta struct {
	Board      BoardName   `json:"board"`
	ID         string      `json:"id"`
	Category   string      `json:"category"`
	Title      string      `json:"title"`
	AuthorID   string      `json:"author_id"`
	AuthorName *string     `json:"author_name"`
	Date       *time.Time  `json:"date"`
	IP         *netip.Addr `json:"ip"`
}

type Article struct {
	Meta       Meta       `json:"meta"`
	Content    string     `json:"content"`
	ReplyCount ReplyCount `json:"reply_count"`
	Replies    []Reply    `json:"replies"`
}

// NewArticle builds an Article whose ReplyCount is tallied from replies.
func NewArticle(meta Meta, content string, replies []Reply) Article {
	if replies == nil {
		replies = []Reply{}
	}
	return Article{
		Meta:       meta,
		Content:    content,
		ReplyCount: CountReplies(replies),
		Replies:    replies,
	}
}

type ReplyCount struct {
	Push    int `json:"push"`
	Neutral int `json:"neutral"`
	Boo     int `json:"boo"`
}

func CountReplies(replies []Reply) ReplyCount {
	var c ReplyCount
	for _, r := range replies {
		switch r.Type {
		case ReplyPush:
			c.Push++
		case ReplyNeutral:
			c.Neutral++
		case ReplyBoo:
			c.Boo++
		}
	}
	return c
}

type Reply struct {
	Type     ReplyType   `json:"reply_type"`
	AuthorID string      `json:"author_id"`
	IP       *netip.Addr `json:"ip"`
	Date     *time.Time  `json:"date"`
	Content  string      `json:"content"`
}

// ReplyType is the sentiment tag of a reply. The zero value is not a valid tag.
type ReplyType int

const (
	ReplyPush ReplyType = iota + 1
	ReplyNeutral
	ReplyBoo
)

var replyGlyphs = map[string]ReplyType{
	"推": ReplyPush,
	"→": ReplyNeutral,
	"噓": ReplyBoo,
}

// ParseReplyType maps a push-tag glyph to its ReplyType.
func ParseReplyType(glyph string) (ReplyType, error) {
	if t, ok := replyGlyphs[glyph]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown reply tag %q", glyph)
}

func (t ReplyType) String() string {
	switch t {
	case ReplyPush:
		return "Push"
	case ReplyNeutral:
		return "Neutral"
	case ReplyBoo:
		return "Boo"
	default:
		return fmt.Sprintf("ReplyType(%d)", int(t))
	}
}

func (t ReplyType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ReplyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, candidate := range []ReplyType{ReplyPush, ReplyNeutral, ReplyBoo} {
		if candidate.String() == s {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown reply type %q", s)
}
