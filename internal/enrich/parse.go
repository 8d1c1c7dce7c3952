package enrich

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tobyhearn/newshound/internal/types"
)

// parseStringArray reads a JSON string array out of a completion,
// falling back to line-based parsing when the backend wrapped or
// mangled the JSON. keep, when non-nil, filters fallback lines; parsed
// JSON entries are trusted as-is. At most maxTags entries are
// returned.
func parseStringArray(resp string, keep func(string) bool) []string {
	if arr, ok := decodeStringArray(extractJSONArray(resp)); ok {
		out := make([]string, 0, len(arr))
		for _, s := range arr {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
			if len(out) == maxTags {
				break
			}
		}
		return out
	}

	// Line fallback: one candidate per line, stripped of quoting and
	// list markers.
	var out []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "]") {
			continue
		}
		line = strings.Trim(line, `"'`)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSuffix(line, ",")
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line == "" {
			continue
		}
		if keep != nil && !keep(line) {
			continue
		}
		out = append(out, line)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func decodeStringArray(raw string) ([]string, bool) {
	if raw == "" {
		return nil, false
	}
	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// parseCompanyProfile decodes the research completion. founded_year
// tolerates both a JSON number and a quoted string.
func parseCompanyProfile(resp string) (*types.CompanyProfile, bool) {
	raw := extractJSONObject(resp)
	if raw == "" {
		return nil, false
	}

	var decoded struct {
		WebsiteURL    string          `json:"website_url"`
		Summary       string          `json:"summary"`
		FoundedYear   json.RawMessage `json:"founded_year"`
		EmployeeCount string          `json:"employee_count"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, false
	}

	profile := &types.CompanyProfile{
		WebsiteURL:    strings.TrimSpace(decoded.WebsiteURL),
		Summary:       strings.TrimSpace(decoded.Summary),
		EmployeeCount: strings.TrimSpace(decoded.EmployeeCount),
	}
	if len(decoded.FoundedYear) > 0 {
		var year int
		if err := json.Unmarshal(decoded.FoundedYear, &year); err == nil {
			profile.FoundedYear = year
		} else {
			var s string
			if err := json.Unmarshal(decoded.FoundedYear, &s); err == nil {
				if y, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
					profile.FoundedYear = y
				}
			}
		}
	}
	if strings.EqualFold(profile.EmployeeCount, "unknown") {
		profile.EmployeeCount = ""
	}
	return profile, true
}

// extractJSONObject finds the first balanced JSON object in s.
func extractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

// extractJSONArray finds the first balanced JSON array in s.
func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

func extractBalanced(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
