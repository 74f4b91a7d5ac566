package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/korralabs/recbooth/internal/session"
	"github.com/korralabs/recbooth/internal/submit"
	"github.com/korralabs/recbooth/pkg/capture"
	capmock "github.com/korralabs/recbooth/pkg/capture/mock"
)

type stubSubmitter struct {
	redirect string
	err      error
	calls    int
}

func (s *stubSubmitter) Send(context.Context, submit.Payload) (string, error) {
	s.calls++
	return s.redirect, s.err
}

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	sess, err := session.New(
		session.Identity{UserID: "u", CollectionID: "c"},
		[]session.TokenSeed{
			{ID: "A", Text: "first prompt"},
			{ID: "B", Text: "second prompt"},
		},
		time.Now(),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sel := NewSelection()
	ctrl, err := session.NewController(session.ControllerConfig{
		Session: sess,
		Device: &capmock.Device{
			StartResult: &capmock.Handle{
				StopResult: capture.Take{Payload: []byte("RIFF-take")},
			},
		},
		Submitter: &stubSubmitter{redirect: "/done"},
		Selection: sel,
	})
	if err != nil {
		t.Fatalf("session.NewController: %v", err)
	}

	h := New(ctrl, sel)
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, session.Snapshot) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var snap session.Snapshot
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("%s %s: decode snapshot: %v", method, path, err)
		}
	}
	return rec, snap
}

func TestStateEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)

	rec, snap := do(t, mux, "GET", "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if snap.Phase != "idle" || snap.Cursor != 0 || snap.Total != 2 {
		t.Errorf("snapshot = phase %q cursor %d total %d", snap.Phase, snap.Cursor, snap.Total)
	}
	if snap.Tokens[0].ID != "A" || snap.Tokens[0].Text != "first prompt" {
		t.Errorf("token view = %+v", snap.Tokens[0])
	}

	// A second read proves state did not mutate.
	if _, again := do(t, mux, "GET", "/api/state", ""); again.Cursor != 0 {
		t.Errorf("cursor = %d after reads, want 0", again.Cursor)
	}
}

func TestCommandsDriveSession(t *testing.T) {
	_, mux := newTestHandler(t)

	if _, snap := do(t, mux, "POST", "/api/commands/record", ""); snap.Phase != "capturing" {
		t.Fatalf("phase after record = %q", snap.Phase)
	}
	if _, snap := do(t, mux, "POST", "/api/commands/stop", ""); !snap.Tokens[0].Recorded {
		t.Fatal("token A not recorded after stop")
	}
	if _, snap := do(t, mux, "POST", "/api/commands/next", ""); snap.Cursor != 1 {
		t.Fatalf("cursor after next = %d", snap.Cursor)
	}
	if _, snap := do(t, mux, "POST", "/api/commands/skip", ""); !snap.Tokens[1].Skipped {
		t.Fatal("token B not skipped")
	}
	rec, snap := do(t, mux, "POST", "/api/commands/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body)
	}
	if snap.Phase != "done" || snap.Redirect != "/done" {
		t.Errorf("snapshot after submit = phase %q redirect %q", snap.Phase, snap.Redirect)
	}
}

func TestCutCommandWithBody(t *testing.T) {
	_, mux := newTestHandler(t)
	do(t, mux, "POST", "/api/commands/record", "")
	do(t, mux, "POST", "/api/commands/stop", "")

	rec, snap := do(t, mux, "POST", "/api/commands/cut", `{"start":0.5,"end":2.25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("cut status = %d: %s", rec.Code, rec.Body)
	}
	cur := snap.Current()
	if cur.Cut == nil || cur.Cut.Start != 0.5 || cur.Cut.End != 2.25 {
		t.Fatalf("cut = %+v, want the posted bounds", cur.Cut)
	}

	// Toggling again without a body removes the cut.
	if _, snap := do(t, mux, "POST", "/api/commands/cut", ""); snap.Current().Cut != nil {
		t.Error("cut survived the second toggle")
	}
}

func TestCutCommandRejectsBadBody(t *testing.T) {
	_, mux := newTestHandler(t)
	do(t, mux, "POST", "/api/commands/record", "")
	do(t, mux, "POST", "/api/commands/stop", "")

	cases := []string{"{not json", `{"start":3,"end":1}`, `{"start":-1,"end":1}`}
	for _, body := range cases {
		if rec, _ := do(t, mux, "POST", "/api/commands/cut", body); rec.Code != http.StatusBadRequest {
			t.Errorf("cut %q status = %d, want 400", body, rec.Code)
		}
	}
}

func TestIllegalCommandIs409(t *testing.T) {
	_, mux := newTestHandler(t)
	do(t, mux, "POST", "/api/commands/record", "")

	rec, _ := do(t, mux, "POST", "/api/commands/next", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("next while capturing = %d, want 409", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error == "" {
		t.Error("409 body carries no reason")
	}
}

func TestCapabilityFailureIs502(t *testing.T) {
	sess, err := session.New(
		session.Identity{},
		[]session.TokenSeed{{ID: "A", Text: "prompt"}},
		time.Now(),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	ctrl, err := session.NewController(session.ControllerConfig{
		Session:   sess,
		Device:    &capmock.Device{StartError: capture.ErrPermissionDenied},
		Submitter: &stubSubmitter{},
	})
	if err != nil {
		t.Fatalf("session.NewController: %v", err)
	}
	mux := http.NewServeMux()
	New(ctrl, nil).Register(mux)

	if rec, _ := do(t, mux, "POST", "/api/commands/record", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("record with denied device = %d, want 502", rec.Code)
	}
}

func TestUnknownCommandIs404(t *testing.T) {
	_, mux := newTestHandler(t)
	if rec, _ := do(t, mux, "POST", "/api/commands/rewind", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown command = %d, want 404", rec.Code)
	}
}
