package model

import "strings"

// CategorizedTag is applied to processed messages so re-runs skip them.
const CategorizedTag = "Categorized"

// Canonical categories. These double as destination folder names.
const (
	CategoryAction        = "Action"
	CategoryResponse      = "Response"
	CategoryJunk          = "Junk"
	CategorySpam          = "Spam"
	CategoryReceipt       = "Receipt"
	CategoryBoss          = "Boss"
	CategoryCompany       = "Company"
	CategoryCollaborators = "Collaborators"
	CategoryCommunity     = "Community"
	CategoryBusiness      = "Business"
	CategoryOther         = "Other"
	CategorySecurity      = "Security"
)

// Categories returns the closed category enumeration in prompt order.
func Categories() []string {
	return []string{
		CategoryAction,
		CategoryResponse,
		CategoryJunk,
		CategorySpam,
		CategoryReceipt,
		CategoryBoss,
		CategoryCompany,
		CategoryCollaborators,
		CategoryCommunity,
		CategoryBusiness,
		CategoryOther,
		CategorySecurity,
	}
}

// CanonicalCategory matches name against the enumeration case-insensitively
// and returns the canonical spelling. The second return is false for unknown
// or empty names.
func CanonicalCategory(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	for _, c := range Categories() {
		if strings.EqualFold(c, trimmed) {
			return c, true
		}
	}
	return "", false
}
