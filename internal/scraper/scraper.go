package scraper

import (
	"branch-address-scraper/internal/address"
	"branch-address-scraper/internal/observability"
)

// Matcher associates branch names with the addresses printed next to them.
// It holds no per-page state, so one Matcher may serve concurrent lookups
// over the same Page.
type Matcher struct {
	logger *observability.Logger
}

func NewMatcher(logger *observability.Logger) *Matcher {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Matcher{logger: logger}
}

// Match locates branchName on page, scopes the search to the branch's card
// (or the element right after it) and parses the best address found there.
// A missing heading or address yields empty fields, never an error.
func (m *Matcher) Match(page *Page, branchName string) MatchResult {
	var out MatchResult
	log := m.logger.With("branch", branchName)

	node := LocateBranch(page.Root(), branchName)
	if node.Length() == 0 {
		log.Debug("Branch heading not found")
		return out
	}
	out.MatchedBranchName = visibleText(node)

	container := FindContainer(node)
	full, ok := FindAddress(container)
	if !ok && container.Length() > 0 {
		if next := NextElementSibling(container); next.Length() > 0 {
			full, ok = FindAddress(next)
			if ok {
				log.Debug("Address found in container sibling")
			}
		}
	}

	if !ok {
		log.Debug("No address near branch heading", "matched", out.MatchedBranchName)
		return out
	}

	parsed := address.Parse(full)
	out.AddressFull = address.Clean(full)
	out.Street = parsed.Street
	out.City = parsed.City
	out.State = parsed.State
	out.Zip = parsed.Zip

	log.Debug("Branch matched",
		"matched", out.MatchedBranchName,
		"address", out.AddressFull,
	)
	return out
}
