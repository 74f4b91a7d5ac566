package submit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
)

func testPayload() Payload {
	return Payload{
		Duration:     95.5,
		UserID:       "u-7",
		ManagerID:    "m-3",
		CollectionID: "c-12",
		Recordings: map[string]Entry{
			"A": {
				Filename:      "2026-03-14T09:26:53.589Z.wav",
				Settings:      capture.Settings{SampleRate: 44100, Channels: 1},
				Transcription: "hálfur mánuður",
				Analysis:      "ok",
				Cut:           &analyzer.Region{Start: 0.4, End: 2.2},
			},
		},
		Skipped: []string{"B"},
		Files: []File{
			{TokenID: "A", Filename: "2026-03-14T09:26:53.589Z.wav", Payload: []byte("RIFF-take")},
		},
	}
}

func TestSendEncodesMultipart(t *testing.T) {
	var got struct {
		duration, userID, managerID, collectionID string
		recordings                                map[string]Entry
		skipped                                   []string
		fileName, fileContent                     string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		got.duration = r.FormValue("duration")
		got.userID = r.FormValue("user_id")
		got.managerID = r.FormValue("manager_id")
		got.collectionID = r.FormValue("collection_id")
		if err := json.Unmarshal([]byte(r.FormValue("recordings")), &got.recordings); err != nil {
			t.Errorf("recordings field: %v", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("skipped")), &got.skipped); err != nil {
			t.Errorf("skipped field: %v", err)
		}
		file, header, err := r.FormFile("file_A")
		if err != nil {
			t.Errorf("FormFile(file_A): %v", err)
		} else {
			defer file.Close()
			raw, _ := io.ReadAll(file)
			got.fileName = header.Filename
			got.fileContent = string(raw)
		}
		w.Write([]byte("/collections/c-12/thanks\n"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	redirect, err := c.Send(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if redirect != "/collections/c-12/thanks" {
		t.Errorf("redirect = %q, want trimmed body", redirect)
	}

	if got.duration != "95.5" {
		t.Errorf("duration field = %q, want bare decimal 95.5", got.duration)
	}
	if got.userID != "u-7" || got.managerID != "m-3" || got.collectionID != "c-12" {
		t.Errorf("identity fields = %s/%s/%s", got.userID, got.managerID, got.collectionID)
	}
	entry, ok := got.recordings["A"]
	if !ok {
		t.Fatalf("recordings = %v, missing key A", got.recordings)
	}
	if entry.Transcription != "hálfur mánuður" || entry.Analysis != "ok" {
		t.Errorf("entry = %+v, metadata lost in transit", entry)
	}
	if entry.Cut == nil || entry.Cut.Start != 0.4 {
		t.Errorf("entry cut = %+v, want region preserved", entry.Cut)
	}
	if len(got.skipped) != 1 || got.skipped[0] != "B" {
		t.Errorf("skipped = %v, want [B]", got.skipped)
	}
	if got.fileName != "2026-03-14T09:26:53.589Z.wav" || got.fileContent != "RIFF-take" {
		t.Errorf("file part = %q/%q", got.fileName, got.fileContent)
	}
}

func TestSendEmptyCollectionsEncodeAsEmpty(t *testing.T) {
	var recordings, skipped string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		recordings = r.FormValue("recordings")
		skipped = r.FormValue("skipped")
		w.Write([]byte("/done"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Send(context.Background(), Payload{Duration: 1}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The server treats absent keys as an error, so empty must still be
	// explicit JSON.
	if recordings != "{}" {
		t.Errorf("recordings field = %q, want {}", recordings)
	}
	if skipped != "[]" {
		t.Errorf("skipped field = %q, want []", skipped)
	}
}

func TestSendNon200IsRejectedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection is closed", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Send(context.Background(), testPayload())
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("Send error = %v, want *RejectedError", err)
	}
	if rej.Status != http.StatusForbidden || rej.Body != "collection is closed" {
		t.Errorf("rejection = %d %q", rej.Status, rej.Body)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New with empty url succeeded")
	}
}
