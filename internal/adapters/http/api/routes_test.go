package api_test

import (
	"net/http"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/followup/internal/adapters/http/api"
	"github.com/okian/followup/internal/adapters/http/swagger"
)

func TestRoutesAreDocumented(t *testing.T) {
	Convey("Given the API router", t, func() {
		r := api.NewServer(newMockDeps(), &mockStatsProvider{}).Router()

		seen := map[string]bool{}
		err := chi.Walk(r, func(_ string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			seen[route] = true
			return nil
		})
		So(err, ShouldBeNil)

		routes := make([]string, 0, len(seen))
		for route := range seen {
			routes = append(routes, route)
		}
		sort.Strings(routes)

		Convey("Then every route should appear in the OpenAPI document and back", func() {
			paths, err := swagger.Paths()
			So(err, ShouldBeNil)
			So(routes, ShouldResemble, paths)
		})
	})
}
