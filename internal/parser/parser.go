// Package parser turns a PTT article page into a domain.Article.
//
// The page markup differs by article vintage, so every header field is read
// through an ordered chain of strategies: structured meta markup first, then
// labeled spans, then a regexp scan of the raw content text. Required fields
// (id, title, author, content) abort the article when missing; optional ones
// (date, ip, author name, category, reply dates) are left empty.
package parser

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"ptt_crawler/internal/domain"
)

type Parser struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts an article from doc. It returns ErrDeletedArticle for
// removed articles and a FieldError or ErrInvalidFormat for malformed ones.
func (p *Parser) Parse(doc *goquery.Document) (*domain.Article, error) {
	if !articleExists(doc) {
		return nil, ErrDeletedArticle
	}

	meta, err := p.parseMeta(doc)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("id", meta.ID)

	content, err := parseContent(doc)
	if err != nil {
		return nil, err
	}

	replies := p.parseReplies(doc, meta.Date)
	logger.Debug("parsed article", "replies", len(replies))

	article := domain.NewArticle(meta, content, replies)
	return &article, nil
}

func (p *Parser) parseMeta(doc *goquery.Document) (domain.Meta, error) {
	id, err := parseID(doc)
	if err != nil {
		return domain.Meta{}, err
	}
	logger := p.logger.With("id", id)

	category, title, err := parseTitle(doc)
	if err != nil {
		return domain.Meta{}, err
	}
	authorID, authorName, err := parseAuthor(doc)
	if err != nil {
		return domain.Meta{}, err
	}

	meta := domain.Meta{
		ID:         id,
		Category:   category,
		Title:      title,
		AuthorID:   authorID,
		AuthorName: authorName,
	}

	board, ok := parseBoard(doc)
	if !ok {
		logger.Warn("board not found")
	}
	meta.Board = board

	if date, err := parseDate(doc); err != nil {
		logger.Warn("date unavailable", "error", err)
	} else {
		meta.Date = &date
	}

	if ip, err := parseIP(doc); err != nil {
		logger.Debug("ip unavailable", "error", err)
	} else {
		meta.IP = &ip
	}

	return meta, nil
}
