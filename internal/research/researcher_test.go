package research

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tobyhearn/newshound/internal/fetcher"
	"github.com/tobyhearn/newshound/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeStore struct {
	companies []types.Company
	updates   map[int64]*types.CompanyProfile
	listErr   error
}

func (s *fakeStore) ListCompanies(context.Context) ([]types.Company, error) {
	return s.companies, s.listErr
}

func (s *fakeStore) UpdateCompanyProfile(_ context.Context, id int64, p *types.CompanyProfile) error {
	if s.updates == nil {
		s.updates = map[int64]*types.CompanyProfile{}
	}
	s.updates[id] = p
	return nil
}

type fakeLLM struct {
	profiles map[string]*types.CompanyProfile
	err      error
}

func (l *fakeLLM) ResearchCompany(_ context.Context, name string) (*types.CompanyProfile, error) {
	if l.err != nil {
		return nil, l.err
	}
	if p, ok := l.profiles[name]; ok {
		return p, nil
	}
	return &types.CompanyProfile{}, nil
}

type fakeWeb struct {
	profiles map[string]*types.CompanyProfile
	calls    []string
}

func (w *fakeWeb) Lookup(_ context.Context, name string) (*types.CompanyProfile, error) {
	w.calls = append(w.calls, name)
	if p, ok := w.profiles[name]; ok {
		return p, nil
	}
	return &types.CompanyProfile{}, nil
}

func newTestResearcher(store *fakeStore, llm *fakeLLM, web *fakeWeb) *Researcher {
	// A nil *fakeWeb must become a nil interface, not a typed nil, so
	// the web pass is genuinely skipped.
	var prober WebProber
	if web != nil {
		prober = web
	}
	r := New(store, llm, prober, testLogger)
	r.sleep = func(time.Duration) {}
	return r
}

func completeCompany() types.Company {
	return types.Company{
		ID:          1,
		Name:        "Settled Corp",
		WebsiteURL:  "https://settled.example",
		Summary:     strings.Repeat("An established firm with a thorough profile. ", 3),
		FoundedYear: 1999,
	}
}

func TestNeedsResearch(t *testing.T) {
	tests := []struct {
		name    string
		company types.Company
		want    bool
	}{
		{"complete profile", completeCompany(), false},
		{"empty summary", types.Company{WebsiteURL: "https://x.example", FoundedYear: 2000}, true},
		{"retrieval failure marker", types.Company{Summary: "Information about X could not be retrieved.", WebsiteURL: "https://x.example", FoundedYear: 2000}, true},
		{"missing website", types.Company{Summary: strings.Repeat("s", 80), FoundedYear: 2000}, true},
		{"missing founded year", types.Company{Summary: strings.Repeat("s", 80), WebsiteURL: "https://x.example"}, true},
	}
	for _, tt := range tests {
		if got := needsResearch(tt.company); got != tt.want {
			t.Errorf("%s: needsResearch = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRunSkipsCompleteCompanies(t *testing.T) {
	store := &fakeStore{companies: []types.Company{completeCompany()}}
	r := newTestResearcher(store, &fakeLLM{}, &fakeWeb{})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalCompanies != 0 {
		t.Errorf("complete company should not be queued, got %d", summary.TotalCompanies)
	}
	if len(store.updates) != 0 {
		t.Errorf("no updates expected, got %v", store.updates)
	}
}

func TestRunUpdatesFromModel(t *testing.T) {
	store := &fakeStore{companies: []types.Company{{ID: 5, Name: "Acme"}}}
	llm := &fakeLLM{profiles: map[string]*types.CompanyProfile{
		"Acme": {
			WebsiteURL:  "https://acme.example",
			Summary:     strings.Repeat("Acme builds industrial tooling for manufacturers. ", 2),
			FoundedYear: 1947,
		},
	}}
	web := &fakeWeb{}

	r := newTestResearcher(store, llm, web)
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.ResearchedCompanies != 1 || summary.UpdatedCompanies != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	got := store.updates[5]
	if got == nil || got.WebsiteURL != "https://acme.example" || got.FoundedYear != 1947 {
		t.Errorf("unexpected stored profile %+v", got)
	}
	if len(web.calls) != 0 {
		t.Errorf("complete model answer should skip web lookup, called for %v", web.calls)
	}
}

func TestRunFallsBackToWebAndPrefersWebURL(t *testing.T) {
	store := &fakeStore{companies: []types.Company{{ID: 9, Name: "Ghost Labs"}}}
	llm := &fakeLLM{profiles: map[string]*types.CompanyProfile{
		"Ghost Labs": {WebsiteURL: "https://wrong-guess.example", Summary: "Thin."},
	}}
	web := &fakeWeb{profiles: map[string]*types.CompanyProfile{
		"Ghost Labs": {
			WebsiteURL:  "https://ghostlabs.example",
			Summary:     strings.Repeat("Ghost Labs develops spectral imaging hardware. ", 2),
			FoundedYear: 2015,
		},
	}}

	r := newTestResearcher(store, llm, web)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := store.updates[9]
	if got == nil {
		t.Fatal("expected update")
	}
	if got.WebsiteURL != "https://ghostlabs.example" {
		t.Errorf("web-found URL should win, got %q", got.WebsiteURL)
	}
	if got.FoundedYear != 2015 {
		t.Errorf("expected web founded year, got %d", got.FoundedYear)
	}
}

func TestRunKeepsExistingFieldsOnPartialProfile(t *testing.T) {
	store := &fakeStore{companies: []types.Company{{
		ID:          3,
		Name:        "Half Known",
		WebsiteURL:  "https://halfknown.example",
		Summary:     "Short.",
		FoundedYear: 0,
	}}}
	llm := &fakeLLM{profiles: map[string]*types.CompanyProfile{
		"Half Known": {FoundedYear: 2008},
	}}

	r := newTestResearcher(store, llm, nil)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := store.updates[3]
	if got == nil {
		t.Fatal("expected update")
	}
	if got.WebsiteURL != "https://halfknown.example" || got.Summary != "Short." {
		t.Errorf("existing fields must survive, got %+v", got)
	}
	if got.FoundedYear != 2008 {
		t.Errorf("expected backfilled year, got %d", got.FoundedYear)
	}
}

func TestRunIsolatesPerCompanyFailures(t *testing.T) {
	store := &fakeStore{companies: []types.Company{
		{ID: 1, Name: "Fails"},
		{ID: 2, Name: "Works"},
	}}
	llm := &fakeLLM{err: errors.New("backend down")}
	web := &fakeWeb{profiles: map[string]*types.CompanyProfile{
		"Works": {WebsiteURL: "https://works.example", Summary: strings.Repeat("w", 60)},
	}}

	r := newTestResearcher(store, llm, web)
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A model failure alone is absorbed; both companies still get the
	// web pass, and only Works produces an update.
	if summary.ResearchedCompanies != 2 {
		t.Errorf("expected both companies researched, got %d", summary.ResearchedCompanies)
	}
	if summary.UpdatedCompanies != 1 {
		t.Errorf("expected one update, got %d", summary.UpdatedCompanies)
	}
	if _, ok := store.updates[2]; !ok {
		t.Error("Works should be updated")
	}
}

type cannedFetcher struct {
	responses map[string]string
}

func (f *cannedFetcher) Get(_ context.Context, rawURL string) (*fetcher.Response, error) {
	for prefix, body := range f.responses {
		if strings.HasPrefix(rawURL, prefix) {
			return &fetcher.Response{URL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
		}
	}
	return nil, errors.New("no canned response")
}

func TestWebLookupExtractsProfile(t *testing.T) {
	site := `<html><head>
		<meta name="description" content="Ghost Labs develops spectral imaging hardware for industrial inspection lines.">
	</head><body><footer>Founded in 2015. © 2026 Ghost Labs.</footer></body></html>`

	fetch := &cannedFetcher{responses: map[string]string{
		instantAnswerEndpoint:        `{"AbstractURL": "https://ghostlabs.example"}`,
		"https://ghostlabs.example": site,
	}}

	w := NewWebLookup(fetch, testLogger)
	p, err := w.Lookup(context.Background(), "Ghost Labs")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.WebsiteURL != "https://ghostlabs.example" {
		t.Errorf("unexpected URL %q", p.WebsiteURL)
	}
	if !strings.Contains(p.Summary, "spectral imaging") {
		t.Errorf("unexpected summary %q", p.Summary)
	}
	if p.FoundedYear != 2015 {
		t.Errorf("expected founded year 2015, got %d", p.FoundedYear)
	}
}

func TestWebLookupNoAnswer(t *testing.T) {
	fetch := &cannedFetcher{responses: map[string]string{
		instantAnswerEndpoint: `{"Answer": "", "AbstractURL": "", "RelatedTopics": []}`,
	}}

	w := NewWebLookup(fetch, testLogger)
	p, err := w.Lookup(context.Background(), "Nobody Inc")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.WebsiteURL != "" || p.Summary != "" || p.FoundedYear != 0 {
		t.Errorf("expected empty profile, got %+v", p)
	}
}
