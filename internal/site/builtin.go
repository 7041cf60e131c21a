package site

import (
	"sort"
	"time"

	"github.com/hyperifyio/paperxtract/internal/extract"
)

// Builtin returns the bundled publisher profiles keyed by name. Each call
// returns fresh copies.
func Builtin() map[string]Profile {
	return map[string]Profile{
		"springer": springer(),
		"oup":      oup(),
	}
}

// BuiltinNames lists the bundled profile names in sorted order.
func BuiltinNames() []string {
	b := Builtin()
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var articleColumns = []string{"time", "name", "email", "title"}

func springer() Profile {
	return Profile{
		Name:       "springer",
		BaseURL:    "https://link.springer.com",
		ListingURL: "https://link.springer.com/search/page/{page}?date-facet-mode=between&facet-sub-discipline={category}&previous-start-year={start_year}&sortOrder=newestFirst&facet-end-year={end_year}&previous-end-year={end_year}&facet-start-year={start_year}",
		Pages:      Pages(1, 5),
		Category:   "Civil Engineering",
		StartYear:  2015,
		EndYear:    2019,
		LinkXPath:  `//h2/a[@class="title"]/@href`,
		Fields: extract.FieldMap{
			"title": `//h1/text()`,
			"name":  `//span[@class="authors__name"]/text()`,
			"email": `//span[@class="authors__contact"]/a/@title`,
			"time":  `//time/@datetime`,
		},
		Require: "email",
		Columns: append([]string(nil), articleColumns...),
	}
}

func oup() Profile {
	return Profile{
		Name:       "oup",
		BaseURL:    "https://academic.oup.com",
		ListingURL: "https://academic.oup.com/jpart/issue/{volume}/{issue}",
		Volumes:    []int{29},
		Issues:     []int{1},
		LinkXPath:  `//div[@class="al-article-items"]/h5/a/@href`,
		Fields: extract.FieldMap{
			"title": `//h1[@class="wi-article-title article-title-main"]/text()`,
			"name":  `//div[@class="info-card-name"]/text()`,
			"email": `//div[@class="info-author-correspondence"]/a/text()`,
			"time":  `//div[@class="citation-date"]/text()`,
		},
		Require: "name",
		Columns: append([]string(nil), articleColumns...),
		Headers: map[string]string{
			"Host":                      "academic.oup.com",
			"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:64.0) Gecko/20100101 Firefox/64.0",
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
		},
		Delay:        2 * time.Second,
		CaptchaPause: 10 * time.Minute,
		EmptyPause:   5 * time.Minute,
		RoundPause:   10 * time.Minute,
	}
}
