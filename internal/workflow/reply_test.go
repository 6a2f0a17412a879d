package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  ReplyVerdict
	}{
		{"CancelledPastTense", "Order 1234 has been cancelled.", VerdictFulfilled},
		{"AmericanSpelling", "We canceled it this morning.", VerdictFulfilled},
		{"AddressUpdated", "Address updated, the parcel will go to the new one.", VerdictFulfilled},
		{"DoneAsRequested", "All done as requested.", VerdictFulfilled},
		{"ConfirmedShort", "Confirmed.", VerdictFulfilled},

		{"AlreadyShipped", "Order already shipped, cannot cancel.", VerdictNotFulfilled},
		{"InTransit", "The parcel is in transit, too late for changes.", VerdictNotFulfilled},
		{"PoliteRefusal", "Unfortunately we are unable to change this order.", VerdictNotFulfilled},
		{"Contraction", "Sorry, we can't do that anymore.", VerdictNotFulfilled},

		{"Forwarded", "Thanks, I've forwarded this to the floor team.", VerdictAmbiguous},
		{"Question", "Which order was this again?", VerdictAmbiguous},
		{"Empty", "", VerdictAmbiguous},
		// Both signals present: never resolve ambiguity to fulfilled.
		{"MixedSignals", "We cancelled the wrong one and cannot fix it now.", VerdictAmbiguous},
		// Bare present-tense "cancel" proves nothing either way.
		{"PresentTense", "We will cancel it tomorrow, probably.", VerdictAmbiguous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyReply(tc.reply))
		})
	}
}
