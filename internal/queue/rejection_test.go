package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeRejection(t *testing.T) {
	cases := []struct {
		name   string
		reason string
		want   RejectionCategory
	}{
		{"StructuredWrongType", "Wrong Email Type: This is a complaint, needs a human", RejectWrongClassification},
		{"StructuredMisclassified", "Misclassified: actually a shipping question", RejectWrongClassification},
		{"KeywordMisclassified", "the model misclassified this one", RejectWrongClassification},
		{"StructuredTemplate", "Incorrect Template: promo template used for a refund", RejectIncorrectTemplate},
		{"KeywordTone", "the tone is way too casual for this customer", RejectIncorrectTemplate},
		{"MissingData", "missing the order number entirely", RejectMissingData},
		{"StructuredIncomplete", "Incomplete: no subscription referenced", RejectMissingData},
		{"Policy", "refunds over $100 are not allowed without a manager", RejectPolicyViolation},
		{"TimingShipped", "order already shipped, nothing to cancel", RejectTimingIssue},
		{"StructuredTooLate", "Too Late: order left the warehouse yesterday", RejectTimingIssue},
		{"SystemError", "the preview failed to load so I could not verify", RejectSystemError},
		{"FreeText", "just does not feel right", RejectOther},
		{"Empty", "   ", RejectOther},
		// Classification mistakes outrank template complaints when both
		// could apply.
		{"WrongTypeBeatsTemplate", "wrong category, so the template is wrong too", RejectWrongClassification},
		// An unknown label falls through to the keyword scan.
		{"UnknownLabelKeywordFallback", "Reviewer note: this template needs a rewrite", RejectIncorrectTemplate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CategorizeRejection(tc.reason))
		})
	}
}
