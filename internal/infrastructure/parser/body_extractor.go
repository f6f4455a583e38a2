package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// bodySelectors are tried in order; the first hit is the article container.
var bodySelectors = []string{
	"div#dic_area",
	"div#articleBodyContents",
	"div.article_body",
	"div#article-view-content-div",
	"div.news_cnt_detail_wrap",
	"article.article-body",
	"div#newsct_article",
	"div.article-body",
	"article",
	"div#content",
}

const nonContentTags = "script, style, header, footer, nav, aside, form, iframe, button"

const minLineLength = 15

var (
	emailExpr = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	boilerplateExpr = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`관련\s*기사`, `다른\s*기사`, `추천\s*기사`, `인기\s*기사`,
		`더\s*보기`, `See more`, `Tag\s*#`, `#바이오`,
		`저작권자`, `무단\s*전재`, `재배포\s*금지`,
		`Copyright`, `All rights reserved`, `개인정보\s*보호`,
		`구독\s*신청`, `뉴스\s*스탠드`, `좋아요\s*슬퍼요`,
		`기사\s*제보`, `댓글\s*작성`, `많이\s*본\s*뉴스`,
		`지금\s*뜨는`, `공유하기`, `URL\s*복사`,
		`글자\s*크기`, `기사\s*듣기`, `인쇄하기`, `읽기모드`,
	}, "|"))

	noiseLineExpr = regexp.MustCompile(strings.Join([]string{
		`기자\s*=`, `특파원\s*=`, `©|ⓒ`,
		`사진\s*=`, `출처\s*:`, `자료\s*:`,
		`\d{2,4}-\d{2,4}-\d{4}`, `FAX|Fax|fax`,
	}, "|"))

	blankRunExpr = regexp.MustCompile(`\n{2,}`)
)

// ExtractBody returns the cleaned article text of a news page, or "" when the
// page cannot be parsed or holds no usable text.
func ExtractBody(page string) string {
	if strings.TrimSpace(page) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}

	container := articleContainer(doc)
	container.Find(nonContentTags).Remove()

	return CleanBody(joinedText(container))
}

func articleContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range bodySelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// joinedText concatenates every text node under sel, one per line.
func joinedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

// CleanBody strips trailing signatures, boilerplate sections and noise lines.
func CleanBody(text string) string {
	if text == "" {
		return ""
	}

	if loc := emailExpr.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[:loc[0]])
	}
	if loc := boilerplateExpr.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[:loc[0]])
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) < minLineLength {
			continue
		}
		if noiseLineExpr.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	text = blankRunExpr.ReplaceAllString(strings.Join(kept, "\n"), "\n")
	return strings.TrimSpace(text)
}
