package workflow

import "strings"

// ReplyVerdict is the outcome of parsing a warehouse reply.
type ReplyVerdict string

const (
	VerdictFulfilled    ReplyVerdict = "fulfilled"
	VerdictNotFulfilled ReplyVerdict = "not_fulfilled"
	VerdictAmbiguous    ReplyVerdict = "ambiguous"
)

// affirmativeTokens signal the warehouse made the change. Past-tense forms
// only; "cancel" alone would also match refusals like "cannot cancel".
var affirmativeTokens = []string{
	"cancelled",
	"canceled",
	"has been cancelled",
	"has been canceled",
	"cancellation confirmed",
	"address updated",
	"address changed",
	"updated the address",
	"updated the shipping",
	"change made",
	"change is done",
	"all done",
	"done as requested",
	"confirmed",
	"completed",
	"successfully",
}

// negativeTokens signal the change could not be made.
var negativeTokens = []string{
	"already shipped",
	"already dispatched",
	"already left",
	"in transit",
	"cannot",
	"can't",
	"can not",
	"could not",
	"couldn't",
	"unable",
	"not possible",
	"too late",
	"won't be able",
	"refuse",
	"denied",
	"rejected",
}

// ClassifyReply decides whether a raw warehouse reply reports the change as
// made, not made, or neither. A reply matching both lists, or neither, is
// ambiguous; ambiguity never resolves to fulfilled.
func ClassifyReply(raw string) ReplyVerdict {
	text := strings.ToLower(raw)

	affirmative := containsAny(text, affirmativeTokens)
	negative := containsAny(text, negativeTokens)

	switch {
	case negative && !affirmative:
		return VerdictNotFulfilled
	case affirmative && !negative:
		return VerdictFulfilled
	default:
		return VerdictAmbiguous
	}
}

func containsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
