package agent

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/idilsaglam/issuestash/internal/model"
)

// SupportedDomain is the registrable domain the agent understands.
const SupportedDomain = "github.com"

// GitHub top-level paths that are not owners.
var reservedOwners = map[string]bool{
	"about": true, "explore": true, "features": true, "issues": true, "login": true,
	"marketplace": true, "new": true, "notifications": true, "orgs": true, "pricing": true,
	"pulls": true, "search": true, "settings": true, "sponsors": true, "topics": true,
	"trending": true,
}

var sectionsByPath = map[string]model.SiteSection{
	"issues":   model.SectionIssues,
	"pulls":    model.SectionPulls,
	"pull":     model.SectionPulls,
	"actions":  model.SectionActions,
	"projects": model.SectionProjects,
	"wiki":     model.SectionWiki,
	"security": model.SectionSecurity,
	"pulse":    model.SectionInsights,
	"graphs":   model.SectionInsights,
	"network":  model.SectionInsights,
	"settings": model.SectionSettings,
	"tree":     model.SectionCode,
	"blob":     model.SectionCode,
	"commits":  model.SectionCode,
}

// DescribePage derives the PageContext for a page location.
//
//	https://github.com/org/repo/issues -> supported, issues, org/repo
//	https://github.com/org/repo        -> supported, code, org/repo
//	https://example.com/whatever       -> unsupported, no owner
func DescribePage(rawURL string) model.PageContext {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return model.PageContext{Section: model.SectionOther}
	}
	domain, err := publicsuffix.Domain(strings.ToLower(u.Hostname()))
	if err != nil || domain != SupportedDomain {
		return model.PageContext{Section: model.SectionOther}
	}

	pc := model.PageContext{IsSupportedSite: true, Section: model.SectionOther}
	segs := pathSegments(u.Path)
	if len(segs) < 2 || reservedOwners[segs[0]] {
		return pc
	}
	pc.Owner = &model.OwnerPath{Owner: segs[0], Repo: segs[1]}
	if len(segs) == 2 {
		pc.Section = model.SectionCode
		return pc
	}
	if s, ok := sectionsByPath[segs[2]]; ok {
		pc.Section = s
	}
	return pc
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RowItemID builds the item id for issue number n from the href of its
// title link. Absolute or unusable hrefs fall back to the page owner.
func RowItemID(href string, n int, page *model.OwnerPath) string {
	segs := pathSegments(href)
	if strings.HasPrefix(href, "/") && len(segs) >= 2 && !reservedOwners[segs[0]] {
		return model.ItemID(segs[0], segs[1], n)
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		if pc := DescribePage(href); pc.Owner != nil {
			return model.ItemID(pc.Owner.Owner, pc.Owner.Repo, n)
		}
	}
	if page != nil {
		return model.ItemID(page.Owner, page.Repo, n)
	}
	return model.ItemID("", "", n)
}
