package discover

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
)

// isFeed detects RSS/Atom bodies by content type or payload shape.
func isFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	head := bytes.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	s := string(head)
	return strings.Contains(s, "<rss") || strings.Contains(s, "<feed") || strings.Contains(s, "<rdf:RDF")
}

// fromFeed extracts item links from an RSS or Atom feed. Feed items
// skip the heuristic URL filter: the publisher already declared them
// articles.
func (d *Discoverer) fromFeed(pageURL string, body []byte) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	urls := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	}

	d.logger.Info("discovered feed items", "url", pageURL, "count", len(urls))
	return urls, nil
}
