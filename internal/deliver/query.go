package deliver

import (
	"net/url"
	"punchsync/internal/punch"
	"strings"
)

const nullValue = "null"

type param struct {
	key   string
	value string
}

// escape percent-encodes a value the way encodeURIComponent would for the
// values a punch state contains, spaces become %20 instead of "+".
func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

func encode(params []param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = escape(p.key) + "=" + escape(p.value)
	}
	return strings.Join(parts, "&")
}

// EncodeQuery turns an intent into the query string of a /sync request.
// Parameters keep a fixed order since url.Values would sort them.
//
// When legacy is true, intents with data use the two parameter form older
// receivers understand (punch_in and date only).
func EncodeQuery(intent punch.Intent, legacy bool) string {
	switch intent.Kind {
	case punch.KindLoggedOut:
		return encode([]param{{"status", "logged_out"}})
	case punch.KindLoggedInWithData:
		if legacy {
			return encode([]param{
				{"punch_in", intent.State.In},
				{"date", intent.Date},
			})
		}
		return encode([]param{
			{"punch_in", intent.State.In},
			{"punch_out", intent.State.Out},
			{"worked", intent.State.Worked},
			{"date", intent.Date},
			{"status", "logged_in"},
		})
	default:
		return encode([]param{
			{"status", "logged_in"},
			{"punch_in", nullValue},
		})
	}
}
