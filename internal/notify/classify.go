package notify

import "strings"

// Class is the kind of a delivery failure.
type Class string

const (
	// Permanent failures will not heal: the user blocked the bot or the chat is gone.
	Permanent Class = "permanent"
	// Transient failures may succeed on a later attempt.
	Transient Class = "transient"
)

// DetailBlocked is reported for every permanent failure.
const DetailBlocked = "User blocked bot or chat not found"

// DetailInvalid is reported for notifications without a destination or body.
const DetailInvalid = "Missing chatId or message"

// DetailInternal is reported when processing a notification panicked.
const DetailInternal = "Internal error while delivering notification"

// Rule maps a phrase found in the rendered error text to a class.
type Rule struct {
	Phrase string
	Class  Class
}

// Rules is the phrase table, matched case-insensitively in order.
var Rules = []Rule{
	{Phrase: "bot was blocked by the user", Class: Permanent},
	{Phrase: "chat not found", Class: Permanent},
}

// Classification is the verdict for one failure.
type Classification struct {
	Class  Class
	Detail string
}

// Classify matches err against Rules. Unmatched errors are transient and keep
// their raw text as the detail.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, r := range Rules {
		if strings.Contains(lower, r.Phrase) {
			detail := raw
			if r.Class == Permanent {
				detail = DetailBlocked
			}
			return Classification{Class: r.Class, Detail: detail}
		}
	}
	return Classification{Class: Transient, Detail: raw}
}
