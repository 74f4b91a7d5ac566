package analyzer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzeParsesReport(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"analysis": "low", "segment": {"start": 0.4, "end": 2.25}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := c.Analyze(context.Background(), []byte("RIFFxxxx"))
	if err != nil {
		t.Fatal(err)
	}

	if string(gotBody) != "RIFFxxxx" {
		t.Errorf("service received body %q", gotBody)
	}
	if gotContentType != "audio/wav" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if rep.Verdict != VerdictLow {
		t.Errorf("Verdict = %q, want low", rep.Verdict)
	}
	if rep.Segment == nil || rep.Segment.Start != 0.4 || rep.Segment.End != 2.25 {
		t.Errorf("Segment = %+v", rep.Segment)
	}
}

func TestAnalyzeNoSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"analysis": "ok"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	rep, err := c.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictOK || rep.Segment != nil {
		t.Errorf("report = %+v", rep)
	}
}

func TestAnalyzeServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "cannot decode audio", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if _, err := c.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestAnalyzeUnknownVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"analysis": "fine"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if _, err := c.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error for unknown verdict")
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestTimeoutIsOptIn(t *testing.T) {
	c, err := New("http://analyzer.local/analyze")
	if err != nil {
		t.Fatal(err)
	}
	if c.httpClient.Timeout != 0 {
		t.Errorf("default client timeout = %v, want none", c.httpClient.Timeout)
	}

	c, err = New("http://analyzer.local/analyze", WithTimeout(15*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if c.httpClient.Timeout != 15*time.Second {
		t.Errorf("client timeout = %v, want 15s", c.httpClient.Timeout)
	}
}
