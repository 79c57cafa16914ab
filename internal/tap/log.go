package tap

import (
	"net/http"

	"bulkq/util"
)

// LogObserver writes a one-line summary of each exchange to a logger at
// debug level.
type LogObserver struct {
	Logger *util.Logger
}

func (o LogObserver) HandleRequest(url string, header http.Header, body []byte) {
	o.Logger.Zerolog().Trace().
		Str("url", url).
		Str("content_type", header.Get("Content-Type")).
		Int("bytes", len(body)).
		Msg("tap.request")
}

func (o LogObserver) HandleResponse(url string, header http.Header, body []byte) {
	o.Logger.Zerolog().Trace().
		Str("url", url).
		Str("content_type", header.Get("Content-Type")).
		Str("locator", header.Get("Sforce-Locator")).
		Int("bytes", len(body)).
		Msg("tap.response")
}
