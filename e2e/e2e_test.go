package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/store"
	"github.com/ayusman/formcheck/testdata"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a, err := app.New(app.Config{
		Store:     s,
		Movement:  movement.Squat,
		Camera:    capture.NewMockCamera(nil, true),
		Detector:  detector.NewMockDetector(),
		PluginDir: filepath.Join(tmpDir, "plugins"),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer a.Close()

	srv := server.New(server.Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("Health", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("GET health error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("CountSquats", func(t *testing.T) {
		var st app.Status
		post(t, client, ts.URL+"/api/session/start", nil, http.StatusOK, &st)
		if !st.Analyzing {
			t.Fatal("analysis did not start")
		}

		rec, err := testdata.LoadSequence("squat_two_reps")
		if err != nil {
			t.Fatalf("LoadSequence() error = %v", err)
		}
		for _, f := range rec.Frames {
			if _, err := a.ProcessFrame(f); err != nil {
				t.Fatalf("ProcessFrame() error = %v", err)
			}
		}

		get(t, client, ts.URL+"/api/session", &st)
		if st.Count != 2 {
			t.Errorf("count = %d, want 2", st.Count)
		}
		if st.Text != "LEG WRONG" {
			t.Errorf("text = %q, want %q", st.Text, "LEG WRONG")
		}
	})

	t.Run("FinishSet", func(t *testing.T) {
		var st app.Status
		post(t, client, ts.URL+"/api/session/reset", nil, http.StatusOK, &st)
		if st.Count != 0 {
			t.Errorf("count after reset = %d, want 0", st.Count)
		}

		var list struct {
			Sets []struct {
				Movement string `json:"movement"`
				Reps     int    `json:"reps"`
			} `json:"sets"`
		}
		deadline := time.Now().Add(2 * time.Second)
		for {
			get(t, client, ts.URL+"/api/sets", &list)
			if len(list.Sets) > 0 || time.Now().After(deadline) {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		if len(list.Sets) != 1 {
			t.Fatalf("len(sets) = %d, want 1", len(list.Sets))
		}
		if list.Sets[0].Movement != "squat" || list.Sets[0].Reps != 2 {
			t.Errorf("set = %+v, want squat with 2 reps", list.Sets[0])
		}
	})

	var recordingID string

	t.Run("UploadRecording", func(t *testing.T) {
		raw, err := testdata.Raw("curl_three_reps")
		if err != nil {
			t.Fatalf("Raw() error = %v", err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("unmarshal fixture: %v", err)
		}
		body["name"] = "Three curls"

		var created struct {
			ID         string `json:"id"`
			Movement   string `json:"movement"`
			FrameCount int    `json:"frame_count"`
		}
		post(t, client, ts.URL+"/api/recordings", body, http.StatusCreated, &created)

		if created.Movement != "bicep-curl" || created.FrameCount != 10 {
			t.Errorf("created = %+v", created)
		}
		recordingID = created.ID
	})

	t.Run("ReplayRecording", func(t *testing.T) {
		if recordingID == "" {
			t.Skip("no recording")
		}

		var res replay.Result
		post(t, client, ts.URL+"/api/recordings/"+recordingID+"/replay", nil, http.StatusOK, &res)
		if res.Reps != 3 {
			t.Errorf("reps = %d, want 3", res.Reps)
		}
		if res.Movement != movement.BicepCurl {
			t.Errorf("movement = %v, want %v", res.Movement, movement.BicepCurl)
		}

		// Replaying against another movement reads the same frames with other rules.
		post(t, client, ts.URL+"/api/recordings/"+recordingID+"/replay?movement=shoulder-press", nil, http.StatusOK, &res)
		if res.Movement != movement.ShoulderPress {
			t.Errorf("movement = %v, want %v", res.Movement, movement.ShoulderPress)
		}
		if res.Reps != 4 {
			t.Errorf("press reps = %d, want 4", res.Reps)
		}
	})

	t.Run("DeleteRecording", func(t *testing.T) {
		if recordingID == "" {
			t.Skip("no recording")
		}

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/recordings/"+recordingID, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("DELETE error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
	})
}

func get(t *testing.T, client *http.Client, url string, out interface{}) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func post(t *testing.T, client *http.Client, url string, body interface{}, want int, out interface{}) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("POST %s status = %d, want %d", url, resp.StatusCode, want)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}
