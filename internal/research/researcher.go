// Package research back-fills company profiles after ingestion: the
// language model is asked first, and incomplete answers are
// supplemented by a web lookup of the company's own site.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tobyhearn/newshound/internal/types"
)

// Store is the persistence surface the backfill pass reads and writes.
type Store interface {
	ListCompanies(ctx context.Context) ([]types.Company, error)
	UpdateCompanyProfile(ctx context.Context, companyID int64, profile *types.CompanyProfile) error
}

// entityResearcher is the language-model side of the pass.
type entityResearcher interface {
	ResearchCompany(ctx context.Context, name string) (*types.CompanyProfile, error)
}

// WebProber is the web-lookup side, substituted in tests. A nil
// prober skips the web pass entirely.
type WebProber interface {
	Lookup(ctx context.Context, name string) (*types.CompanyProfile, error)
}

// Researcher runs the company profile backfill.
type Researcher struct {
	store  Store
	llm    entityResearcher
	web    WebProber
	logger *slog.Logger

	// pause between companies, swappable for tests.
	sleep func(time.Duration)
	delay time.Duration

	// updated records whether the last researchOne call wrote an
	// update. Runs are single-goroutine.
	updated bool
}

// New creates a researcher. web may be nil to skip the web pass.
func New(store Store, llm entityResearcher, web WebProber, logger *slog.Logger) *Researcher {
	return &Researcher{
		store:  store,
		llm:    llm,
		web:    web,
		logger: logger.With("component", "research"),
		sleep:  time.Sleep,
		delay:  time.Second,
	}
}

// Run researches every company with gaps in its profile. Per-company
// failures are recorded and the pass continues.
func (r *Researcher) Run(ctx context.Context) (*types.ResearchSummary, error) {
	summary := &types.ResearchSummary{Errors: []string{}}

	companies, err := r.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}

	var pending []types.Company
	for _, c := range companies {
		if needsResearch(c) {
			pending = append(pending, c)
		}
	}
	summary.TotalCompanies = len(pending)
	r.logger.Info("companies needing research", "count", len(pending))

	for i, company := range pending {
		if err := r.researchOne(ctx, company); err != nil {
			summary.FailedCompanies++
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("Error researching %s: %v", company.Name, err))
			r.logger.Warn("company research failed", "company", company.Name, "error", err)
		} else {
			summary.ResearchedCompanies++
			if r.updated {
				summary.UpdatedCompanies++
			}
		}
		if i < len(pending)-1 {
			r.sleep(r.delay)
		}
	}
	return summary, nil
}

func (r *Researcher) researchOne(ctx context.Context, company types.Company) error {
	r.updated = false
	r.logger.Info("researching company", "name", company.Name)

	profile, err := r.llm.ResearchCompany(ctx, company.Name)
	if err != nil {
		r.logger.Warn("model research failed", "company", company.Name, "error", err)
		profile = &types.CompanyProfile{}
	}

	if !isComplete(profile) && r.web != nil {
		webProfile, err := r.web.Lookup(ctx, company.Name)
		if err != nil {
			r.logger.Warn("web lookup failed", "company", company.Name, "error", err)
		} else if webProfile != nil {
			// The web-found site URL wins over the model's guess.
			webProfile.Merge(profile)
			profile = webProfile
		}
	}

	if !isBetter(company, profile) {
		return nil
	}

	final := &types.CompanyProfile{
		WebsiteURL:    company.WebsiteURL,
		Summary:       company.Summary,
		FoundedYear:   company.FoundedYear,
		EmployeeCount: company.EmployeeCount,
	}
	final.Merge(profile)

	if err := r.store.UpdateCompanyProfile(ctx, company.ID, final); err != nil {
		return err
	}
	r.updated = true
	r.logger.Info("company profile updated", "name", company.Name)
	return nil
}

// needsResearch reports whether a company's profile has gaps worth a
// research pass.
func needsResearch(c types.Company) bool {
	summary := strings.ToLower(c.Summary)
	if strings.TrimSpace(summary) == "" || strings.Contains(summary, "could not be retrieved") {
		return true
	}
	if c.WebsiteURL == "" {
		return true
	}
	return c.FoundedYear == 0
}

// isComplete wants at least a substantial summary and a site URL
// before skipping the web pass.
func isComplete(p *types.CompanyProfile) bool {
	return p != nil && len(p.Summary) > 50 && p.WebsiteURL != ""
}

// isBetter reports whether the researched profile improves on what is
// stored.
func isBetter(current types.Company, p *types.CompanyProfile) bool {
	if p == nil {
		return false
	}
	if p.Summary != "" &&
		(strings.Contains(strings.ToLower(current.Summary), "could not be retrieved") ||
			len(p.Summary) > len(current.Summary)) {
		return true
	}
	if current.WebsiteURL == "" && p.WebsiteURL != "" {
		return true
	}
	return current.FoundedYear == 0 && p.FoundedYear != 0
}
