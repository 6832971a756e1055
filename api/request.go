package api

import (
	"io/ioutil"
	"net/http"

	"taglab.io/tagger/worker"
)

// Request serves ad-hoc tagging over HTTP. The body is plain text,
// one sentence per line, and the response is the same JSON document
// the worker writes for queued requests.
type Request struct {
	Tag worker.TagText
}

func (req *Request) ProcessData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	reqLogger := makeRequestLogger(r)

	if r.Method != "POST" {
		reqLogger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	msg, err := ioutil.ReadAll(r.Body)
	if err != nil {
		reqLogger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	reqLogger.Info().Msg("Starting tagging for request from API")
	resp, err := req.Tag(string(msg))
	if err != nil {
		reqLogger.Err(err).Int("status", http.StatusInternalServerError).Msg("Tagging failed")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(resp))
	reqLogger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}
