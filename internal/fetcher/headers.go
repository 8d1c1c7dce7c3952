package fetcher

import (
	"math/rand"
	"net/http"
)

// headerProfile is one realistic browser header set. Profiles are
// rotated probabilistically per request and always on a denial retry.
type headerProfile struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	SecChUa        string
	Platform       string
}

var profiles = []headerProfile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		SecChUa:        `"Chromium";v="120", "Not?A_Brand";v="8", "Google Chrome";v="120"`,
		Platform:       `"Windows"`,
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		SecChUa:        `"Chromium";v="120", "Not?A_Brand";v="8", "Google Chrome";v="120"`,
		Platform:       `"macOS"`,
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.5",
		SecChUa:        "",
		Platform:       `"Windows"`,
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		SecChUa:        "",
		Platform:       `"macOS"`,
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		SecChUa:        `"Chromium";v="119", "Not?A_Brand";v="24", "Google Chrome";v="119"`,
		Platform:       `"Linux"`,
	},
}

var retryReferers = []string{
	"https://www.google.com/",
	"https://news.google.com/",
	"https://duckduckgo.com/",
	"https://www.bing.com/",
}

// randomProfile picks any profile from the pool.
func randomProfile() headerProfile {
	return profiles[rand.Intn(len(profiles))]
}

// rotatedProfile picks a profile different from the current one.
func rotatedProfile(current headerProfile) headerProfile {
	if len(profiles) < 2 {
		return current
	}
	for {
		p := profiles[rand.Intn(len(profiles))]
		if p.UserAgent != current.UserAgent {
			return p
		}
	}
}

// apply sets the profile headers on a request.
func (p headerProfile) apply(req *http.Request) {
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", p.Accept)
	req.Header.Set("Accept-Language", p.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if p.SecChUa != "" {
		req.Header.Set("Sec-Ch-Ua", p.SecChUa)
		req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
		req.Header.Set("Sec-Ch-Ua-Platform", p.Platform)
	}
}

// applyRetryHints adds plausible navigation headers used on denial
// retries to reduce fingerprinting.
func applyRetryHints(req *http.Request) {
	req.Header.Set("Referer", retryReferers[rand.Intn(len(retryReferers))])
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "no-cache")
}
