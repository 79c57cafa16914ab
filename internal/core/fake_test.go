package core

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"bulkq/internal/codec"
	"bulkq/internal/session"
	"bulkq/internal/transport"
	"bulkq/util"
)

const fakeJobID = "750R0000000zlh9IAA"

type fakePage struct {
	body    string
	next    string
	records int
}

// fakeAPI is an in-memory jobs endpoint.  States are handed out one per
// status call; the last one repeats.
type fakeAPI struct {
	mu         sync.Mutex
	states     []codec.JobState
	failure    string
	statusCode int // non-zero makes status calls fail with this code
	pages      map[string]fakePage
	onPoll     func(n int)

	created  []map[string]string
	polls    int
	aborted  bool
	deleted  bool
	requests []string
}

func newFakeAPI(t *testing.T, api *fakeAPI) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return srv.URL + "/services/data/v60.0/jobs"
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	a.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer tok" {
		writeErrors(w, http.StatusUnauthorized, "INVALID_SESSION_ID", "Session expired or invalid")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/services/data/v60.0/jobs/query/")
	switch {
	case r.Method == http.MethodPost && path == "":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		a.mu.Lock()
		a.created = append(a.created, body)
		a.mu.Unlock()
		writeJob(w, codec.JobInfo{ID: fakeJobID, Operation: body["operation"], State: codec.StateUploadComplete})

	case r.Method == http.MethodGet && path == fakeJobID:
		a.mu.Lock()
		a.polls++
		n := a.polls
		state := codec.StateInProgress
		if len(a.states) > 0 {
			state = a.states[min(n, len(a.states))-1]
		}
		code, failure, hook := a.statusCode, a.failure, a.onPoll
		a.mu.Unlock()
		if hook != nil {
			hook(n)
		}
		if code != 0 {
			writeErrors(w, code, "NOT_FOUND", "job not found")
			return
		}
		writeJob(w, codec.JobInfo{ID: fakeJobID, State: state, ErrorMessage: failure, NumberRecordsProcessed: 2})

	case r.Method == http.MethodGet && path == fakeJobID+"/results":
		page, ok := a.pages[r.URL.Query().Get("locator")]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "INVALIDLOCATOR", "bad locator")
			return
		}
		next := page.next
		if next == "" {
			next = "null"
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set(session.HeaderLocator, next)
		w.Header().Set(session.HeaderRecordCount, strconv.Itoa(page.records))
		w.Write([]byte(page.body)) //nolint:errcheck

	case r.Method == http.MethodPatch && path == fakeJobID:
		a.mu.Lock()
		a.aborted = true
		a.mu.Unlock()
		writeJob(w, codec.JobInfo{ID: fakeJobID, State: codec.StateAborted})

	case r.Method == http.MethodDelete && path == fakeJobID:
		a.mu.Lock()
		a.deleted = true
		a.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErrors(w, http.StatusNotFound, "NOT_FOUND", "no route")
	}
}

func (a *fakeAPI) pollCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.polls
}

func (a *fakeAPI) wasAborted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}

func (a *fakeAPI) wasDeleted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleted
}

func (a *fakeAPI) createdJobs() []map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]string(nil), a.created...)
}

func (a *fakeAPI) requestLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

func nopBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func writeJob(w http.ResponseWriter, info codec.JobInfo) {
	w.Header().Set("Content-Type", codec.ContentTypeJSON)
	json.NewEncoder(w).Encode(info) //nolint:errcheck
}

func writeErrors(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", codec.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode([]codec.RemoteError{{Code: code, Message: msg}}) //nolint:errcheck
}

// twoPages is a result set split across two pages.
func twoPages() map[string]fakePage {
	return map[string]fakePage{
		"":       {body: "\"Id\",\"Name\"\n\"001\",\"Acme\"\n", next: "MjAwMA", records: 1},
		"MjAwMA": {body: "\"Id\",\"Name\"\n\"002\",\"Globex\"\n", records: 1},
	}
}

// newTestJob builds a Job against endpoint whose output lands in out
// and whose log lands in logs.
func newTestJob(t *testing.T, endpoint string, out, logs *strings.Builder) *Job {
	t.Helper()
	logger := util.NewLogger(2)
	if logs != nil {
		logger.SetOutput(logs)
	} else {
		logger.SetOutput(&strings.Builder{})
	}

	adapter := transport.NewAdapter(transport.Options{Logger: logger})
	sess, err := session.New(session.Config{
		Endpoint:    endpoint,
		Sender:      adapter,
		Credentials: session.StaticToken("tok"),
		Logger:      logger,
	})
	require.NoError(t, err)

	job := &Job{Session: sess, Logger: logger, Out: out}
	job.onClose(adapter)
	return job
}
