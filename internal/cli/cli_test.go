package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/followup/internal/adapters/repository"
	service "github.com/okian/followup/internal/app"
	"github.com/okian/followup/internal/config"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func execute(ctx context.Context, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// useSQLite points the configuration at a fresh database seeded with two
// lessons viewed two days ago: l1 always followed up, l2 never.
func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "followup.db")
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("FOLLOWUP_STORE_DRIVER", config.StoreSQLite)
	t.Setenv("FOLLOWUP_STORE_PATH", path)
	t.Setenv("FOLLOWUP_LOG_LEVEL", "error")

	store, err := repository.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Now().UTC().Add(-48 * time.Hour)
	var events []model.Event
	for i := 0; i < 5; i++ {
		a, b := fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)
		events = append(events,
			model.Event{UserID: a, Kind: model.KindContentViewed, ReferenceID: "l1", OccurredAt: base},
			model.Event{UserID: a, Kind: model.KindQuizStarted, ReferenceID: "l1", OccurredAt: base.Add(time.Hour)},
			model.Event{UserID: b, Kind: model.KindContentViewed, ReferenceID: "l2", OccurredAt: base},
		)
	}
	if err := store.Append(context.Background(), events...); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given injected version information", t, func() {
		SetVersionInfo("1.2.3", "abc123", "2024-01-15")
		defer SetVersionInfo("dev", "none", "unknown")

		out, err := execute(context.Background(), "version")

		convey.Convey("Then it should be printed", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "followup 1.2.3")
			convey.So(out, convey.ShouldContainSubstring, "commit: abc123")
		})
	})
}

func TestRankCommand(t *testing.T) {
	convey.Convey("Given a seeded sqlite store", t, func() {
		useSQLite(t)
		ctx := context.Background()

		convey.Convey("When rankings are requested", func() {
			out, err := execute(ctx, "rank", "--days", "7")

			convey.Convey("Then both lessons should be listed with their rates", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "best")
				convey.So(out, convey.ShouldContainSubstring, "worst")
				convey.So(out, convey.ShouldContainSubstring, "100%")
				convey.So(out, convey.ShouldContainSubstring, "l2")
			})
		})

		convey.Convey("When priorities are requested", func() {
			out, err := execute(ctx, "rank", "--priorities")

			convey.Convey("Then a priority table should be printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "l1")
			})
		})

		convey.Convey("When the origin filter is not an origin kind", func() {
			_, err := execute(ctx, "rank", "--origin", "quiz_started")

			convey.Convey("Then the command should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestEvaluateCommand(t *testing.T) {
	convey.Convey("Given a seeded sqlite store", t, func() {
		useSQLite(t)
		ctx := context.Background()

		convey.Convey("When a lesson is evaluated", func() {
			out, err := execute(ctx, "evaluate", "l1", "--days", "7")

			convey.Convey("Then a markdown report should be printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "## ")
				convey.So(out, convey.ShouldContainSubstring, "lesson: `l1`")
			})
		})

		convey.Convey("When the ROI report is requested", func() {
			out, err := execute(ctx, "evaluate", "l1", "--roi")

			convey.Convey("Then the report should mention the lesson", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "`l1`")
			})
		})

		convey.Convey("When the split is malformed", func() {
			_, err := execute(ctx, "evaluate", "l1", "--split", "yesterday")

			convey.Convey("Then the command should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "--split")
			})
		})

		convey.Convey("When no entity is given", func() {
			_, err := execute(ctx, "evaluate")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestParseSplit(t *testing.T) {
	convey.Convey("Given split values", t, func() {
		d, err := parseSplit("2024-01-15")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)

		ts, err := parseSplit("2024-01-15T08:00:00+02:00")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ts.Equal(time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)

		_, err = parseSplit("15/01/2024")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestImportCommand(t *testing.T) {
	convey.Convey("Given a seeded sqlite store and an events file", t, func() {
		path := useSQLite(t)
		ctx := context.Background()
		file := filepath.Join(t.TempDir(), "events.json")

		write := func(reqs []types.EventRequest) {
			data, err := json.Marshal(reqs)
			convey.So(err, convey.ShouldBeNil)
			convey.So(os.WriteFile(file, data, 0o600), convey.ShouldBeNil)
		}
		count := func() int {
			s, err := repository.NewSQLiteStore(path)
			convey.So(err, convey.ShouldBeNil)
			defer s.Close()
			n, err := s.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			return n
		}

		convey.Convey("When every event is valid", func() {
			write([]types.EventRequest{
				{UserID: "c1", Kind: "content_viewed", ReferenceID: "l3", EventDate: "2024-01-10"},
				{UserID: "c1", Kind: "note_created", ReferenceID: "l3", OccurredAt: "2024-01-10T11:00:00Z"},
			})
			out, err := execute(ctx, "import", file)

			convey.Convey("Then they should be appended", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "imported 2 events")
				convey.So(count(), convey.ShouldEqual, 17)
			})
		})

		convey.Convey("When one event is invalid", func() {
			write([]types.EventRequest{
				{UserID: "c1", Kind: "content_viewed", ReferenceID: "l3", EventDate: "2024-01-10"},
				{Kind: "content_viewed", ReferenceID: "l3", EventDate: "2024-01-10"},
			})
			_, err := execute(ctx, "import", file)

			convey.Convey("Then nothing should be stored", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "event 1")
				convey.So(count(), convey.ShouldEqual, 15)
			})
		})
	})
}

func TestConfigFlag(t *testing.T) {
	convey.Convey("Given a config file selecting an empty sqlite store", t, func() {
		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "followup.yaml")
		doc := fmt.Sprintf("store_driver: sqlite\nstore_path: %s\nlog_level: error\n", filepath.Join(dir, "empty.db"))
		convey.So(os.WriteFile(cfgFile, []byte(doc), 0o600), convey.ShouldBeNil)
		t.Setenv(config.EnvConfigPath, "")

		out, err := execute(context.Background(), "--config", cfgFile, "rank")

		convey.Convey("Then the file should be used", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "ENTITY")
			_, statErr := os.Stat(filepath.Join(dir, "empty.db"))
			convey.So(statErr, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a missing config file", t, func() {
		t.Setenv(config.EnvConfigPath, "")
		_, err := execute(context.Background(), "--config", filepath.Join(t.TempDir(), "missing.yaml"), "rank")

		convey.Convey("Then loading should fail", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given the HTTP server built for a service", t, func() {
		convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
		svc, err := service.New()
		convey.So(err, convey.ShouldBeNil)
		srv := newHTTPServer(":0", svc)

		convey.Convey("Then it should use bounded timeouts", func() {
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then health checks should succeed", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})

	convey.Convey("Given serve running on an ephemeral port", t, func() {
		t.Setenv(config.EnvConfigPath, "")
		t.Setenv("FOLLOWUP_ADDR", "127.0.0.1:0")
		t.Setenv("FOLLOWUP_LOG_LEVEL", "error")
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		_, err := execute(ctx, "serve")

		convey.Convey("Then cancelling the context should shut it down cleanly", func() {
			convey.So(err, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an address that cannot be bound", t, func() {
		t.Setenv(config.EnvConfigPath, "")
		t.Setenv("FOLLOWUP_ADDR", "256.0.0.1:99999")
		t.Setenv("FOLLOWUP_LOG_LEVEL", "error")

		_, err := execute(context.Background())

		convey.Convey("Then serve should report the listen error", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "http server")
		})
	})
}

func TestUpdateMetrics(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
		svc, err := service.New()
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then metric refreshes should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
