package queue

import "strings"

// RejectionCategory is the fixed taxonomy a free-text rejection reason maps
// to. It feeds model-quality analytics and never blocks the reject itself.
type RejectionCategory string

const (
	RejectWrongClassification RejectionCategory = "wrong_classification"
	RejectIncorrectTemplate   RejectionCategory = "incorrect_template"
	RejectMissingData         RejectionCategory = "missing_data"
	RejectPolicyViolation     RejectionCategory = "policy_violation"
	RejectTimingIssue         RejectionCategory = "timing_issue"
	RejectSystemError         RejectionCategory = "system_error"
	RejectOther               RejectionCategory = "other"
)

type rejectionRule struct {
	category RejectionCategory
	// labels match the "Label: Description" structured form, compared
	// case-insensitively against the part before the colon.
	labels []string
	// keywords are scanned against the whole reason text.
	keywords []string
}

// rejectionRules is ordered; the first matching rule wins.
// wrong_classification outranks incorrect_template because a misclassified
// email necessarily produced the wrong template.
var rejectionRules = []rejectionRule{
	{
		category: RejectWrongClassification,
		labels:   []string{"wrong email type", "wrong classification", "wrong type", "misclassified"},
		keywords: []string{"misclassif", "wrong type", "wrong category", "not a cancellation", "not a refund", "wrong email"},
	},
	{
		category: RejectIncorrectTemplate,
		labels:   []string{"incorrect template", "wrong template", "bad response"},
		keywords: []string{"template", "wrong response", "wording", "tone", "rewrite"},
	},
	{
		category: RejectMissingData,
		labels:   []string{"missing data", "incomplete"},
		keywords: []string{"missing", "no order number", "no subscription", "incomplete", "blank"},
	},
	{
		category: RejectPolicyViolation,
		labels:   []string{"policy violation", "policy"},
		keywords: []string{"policy", "not allowed", "against our", "unauthorized"},
	},
	{
		category: RejectTimingIssue,
		labels:   []string{"timing issue", "too late", "too early"},
		keywords: []string{"too late", "too early", "already shipped", "already processed", "timing"},
	},
	{
		category: RejectSystemError,
		labels:   []string{"system error"},
		keywords: []string{"system error", "crash", "bug", "glitch", "failed to load"},
	},
}

// CategorizeRejection maps a rejection reason onto the fixed taxonomy.
// Structured reasons of the form "Label: Description" are matched on the
// label first; otherwise the full text is keyword-scanned in rule order.
func CategorizeRejection(reason string) RejectionCategory {
	text := strings.ToLower(strings.TrimSpace(reason))
	if text == "" {
		return RejectOther
	}

	if idx := strings.Index(text, ":"); idx > 0 {
		label := strings.TrimSpace(text[:idx])
		for _, rule := range rejectionRules {
			for _, l := range rule.labels {
				if label == l {
					return rule.category
				}
			}
		}
	}

	for _, rule := range rejectionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return RejectOther
}
