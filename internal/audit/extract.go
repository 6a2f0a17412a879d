package audit

import (
	"regexp"

	"github.com/storeclerk/pkg/models"
)

// Unknown stands in for identifiers that cannot be extracted. The entry is
// still written; a partial record beats a failed log write.
const Unknown = "unknown"

var (
	orderNumberRe  = regexp.MustCompile(`(?i)order\s*#?\s*([A-Za-z0-9][A-Za-z0-9-]*)`)
	subscriptionRe = regexp.MustCompile(`(?i)subscription\s*#?\s*([A-Za-z0-9][A-Za-z0-9_-]*)`)
	trackingRe     = regexp.MustCompile(`(?i)tracking\s*(?:number|no\.?|#)?\s*:?\s*([A-Za-z0-9]{6,})`)
	amountRe       = regexp.MustCompile(`[$€£]\s*([0-9]+(?:\.[0-9]{1,2})?)`)
)

// extract returns the metadata value for any of keys, falling back to a
// regex scan of the free text, falling back to Unknown.
func extract(meta models.Metadata, text string, re *regexp.Regexp, keys ...string) string {
	for _, key := range keys {
		if v := meta.String(key); v != "" {
			return v
		}
	}
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return Unknown
}

func extractOrderNumber(meta models.Metadata, text string) string {
	return extract(meta, text, orderNumberRe, "orderNumber", "order_number")
}

func extractSubscriptionID(meta models.Metadata, text string) string {
	return extract(meta, text, subscriptionRe, "subscriptionId", "subscription_id")
}

func extractTrackingNumber(meta models.Metadata, text string) string {
	return extract(meta, text, trackingRe, "trackingNumber", "tracking_number")
}

func extractAmount(meta models.Metadata, text string) string {
	return extract(meta, text, amountRe, "refundAmount", "refund_amount", "amount")
}
