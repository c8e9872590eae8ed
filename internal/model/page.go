package model

// SiteSection tags which functional area of the site a page belongs to.
type SiteSection string

const (
	SectionCode     SiteSection = "code"
	SectionIssues   SiteSection = "issues"
	SectionPulls    SiteSection = "pulls"
	SectionActions  SiteSection = "actions"
	SectionProjects SiteSection = "projects"
	SectionWiki     SiteSection = "wiki"
	SectionSecurity SiteSection = "security"
	SectionInsights SiteSection = "insights"
	SectionSettings SiteSection = "settings"
	SectionOther    SiteSection = "other"
)

// OwnerPath identifies the repository a page belongs to. Display only.
type OwnerPath struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String renders "owner/repo", or "" when there is no owner.
func (o *OwnerPath) String() string {
	if o == nil || o.Owner == "" {
		return ""
	}
	if o.Repo == "" {
		return o.Owner
	}
	return o.Owner + "/" + o.Repo
}

// PageContext describes the page the popup was opened on.
// It is produced fresh by the page agent and never persisted.
type PageContext struct {
	IsSupportedSite bool        `json:"isSupportedSite"`
	Section         SiteSection `json:"siteSection"`
	Owner           *OwnerPath  `json:"ownerPath,omitempty"`
}

// EnablesHiding reports whether the hide/restore feature applies to this page.
func (p PageContext) EnablesHiding() bool {
	return p.IsSupportedSite && p.Section == SectionIssues
}
