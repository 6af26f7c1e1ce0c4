package loadgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func testConfig() *Config {
	return &Config{
		Users:     20,
		Lessons:   4,
		Days:      7,
		BatchSize: 25,
		Workers:   3,
		Timeout:   2 * time.Second,
		Seed:      42,
		Now:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func withoutIDs(events []types.EventRequest) []types.EventRequest {
	out := make([]types.EventRequest, len(events))
	for i, e := range events {
		e.ID = ""
		out[i] = e
	}
	return out
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded configuration", t, func() {
		cfg := testConfig()
		events := Generate(cfg)

		Convey("Then every event should be a valid model event inside the history", func() {
			So(events, ShouldNotBeEmpty)
			from := cfg.Now.Truncate(24*time.Hour).AddDate(0, 0, -cfg.Days)
			for _, r := range events {
				e, err := r.ToModel()
				So(err, ShouldBeNil)
				So(e.ReferenceID, ShouldStartWith, "lesson-")
				So(e.OccurredAt.Before(from), ShouldBeFalse)
				So(e.OccurredAt.Before(cfg.Now), ShouldBeTrue)
			}
		})

		Convey("Then every session should open with a view", func() {
			So(events[0].Kind, ShouldEqual, string(model.KindContentViewed))
		})

		Convey("Then the same seed should give the same sessions", func() {
			So(withoutIDs(Generate(cfg)), ShouldResemble, withoutIDs(events))
		})

		Convey("Then ids should be unique", func() {
			seen := make(map[string]bool, len(events))
			for _, e := range events {
				So(seen[e.ID], ShouldBeFalse)
				seen[e.ID] = true
			}
		})
	})

	Convey("Given no users", t, func() {
		cfg := testConfig()
		cfg.Users = 0
		So(Generate(cfg), ShouldBeEmpty)
	})
}

func TestFollowUpChance(t *testing.T) {
	Convey("Given lessons across the catalog", t, func() {
		So(followUpChance(0, 4), ShouldAlmostEqual, minFollowUpRate)
		So(followUpChance(3, 4), ShouldAlmostEqual, minFollowUpRate+followUpSpread)
		So(followUpChance(1, 4), ShouldBeLessThan, followUpChance(2, 4))
		So(followUpChance(0, 1), ShouldAlmostEqual, minFollowUpRate+followUpSpread/2)
	})
}

func TestBatches(t *testing.T) {
	Convey("Given seven events", t, func() {
		events := make([]types.EventRequest, 7)

		Convey("Then a batch size of three should give three batches", func() {
			b := Batches(events, 3)
			So(b, ShouldHaveLength, 3)
			So(b[0], ShouldHaveLength, 3)
			So(b[2], ShouldHaveLength, 1)
		})

		Convey("Then a non-positive size should fall back to one", func() {
			So(Batches(events, 0), ShouldHaveLength, 7)
		})

		Convey("Then no events should give no batches", func() {
			So(Batches(nil, 3), ShouldBeEmpty)
		})
	})
}

func fakeService(received *atomic.Int64, rejectAll bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var batch []types.EventRequest
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil || rejectAll {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"bad_request"}`)
			return
		}
		received.Add(int64(len(batch)))
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.IngestResponse{Status: "accepted", Accepted: len(batch)})
	})
	mux.HandleFunc("/rankings", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(types.Rankings{Best: []types.RankingRow{{}, {}}})
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		t.Fatal(err)
	}

	Convey("Given a service accepting every batch", t, func() {
		var received atomic.Int64
		srv := fakeService(&received, false)
		defer srv.Close()

		cfg := testConfig()
		cfg.BaseURL = srv.URL
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "events.json")

		stats, err := Run(context.Background(), cfg)

		Convey("Then every generated event should be accepted", func() {
			So(err, ShouldBeNil)
			So(stats.EventsAccepted, ShouldEqual, stats.EventsGenerated)
			So(int64(stats.EventsAccepted), ShouldEqual, received.Load())
			So(stats.EventsRejected, ShouldEqual, 0)
			So(stats.RankedEntities, ShouldEqual, 2)
		})

		Convey("Then the generated events should be saved", func() {
			data, err := os.ReadFile(cfg.OutputFile)
			So(err, ShouldBeNil)
			var saved []types.EventRequest
			So(json.Unmarshal(data, &saved), ShouldBeNil)
			So(saved, ShouldHaveLength, stats.EventsGenerated)
		})
	})

	Convey("Given a service rejecting every batch", t, func() {
		var received atomic.Int64
		srv := fakeService(&received, true)
		defer srv.Close()

		cfg := testConfig()
		cfg.BaseURL = srv.URL
		stats, err := Run(context.Background(), cfg)

		Convey("Then the batches should be counted as failed", func() {
			So(err, ShouldBeNil)
			So(stats.EventsAccepted, ShouldEqual, 0)
			So(stats.EventsRejected, ShouldEqual, stats.EventsGenerated)
			So(stats.BatchesFailed, ShouldEqual, len(Batches(make([]types.EventRequest, stats.EventsGenerated), cfg.BatchSize)))
		})
	})

	Convey("Given an unreachable service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		cfg := testConfig()
		cfg.BaseURL = srv.URL
		srv.Close()

		_, err := Run(context.Background(), cfg)

		Convey("Then the health check should fail the run", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}
