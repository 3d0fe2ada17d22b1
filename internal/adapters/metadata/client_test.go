package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/marquee/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const starWars = `{"Title":"Star Wars","Year":"1977","imdbID":"tt0076759",` +
	`"Ratings":[{"Source":"Internet Movie Database","Value":"8.6/10"}],"Response":"True"}`

func TestClientFetch(t *testing.T) {
	Convey("Given a provider stub", t, func() {
		var (
			calls  atomic.Int32
			status = http.StatusOK
			body   = starWars
			query  atomic.Value
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			query.Store(r.URL.Query())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		c := New(srv.URL+"/", WithAPIKey("k3y"), WithRateLimit(1000, 100))
		ctx := context.Background()

		Convey("When the title exists", func() {
			rec, err := c.Fetch(ctx, "Star Wars")

			Convey("Then the document is returned with its imdb id", func() {
				So(err, ShouldBeNil)
				So(rec.IMDbID, ShouldEqual, "tt0076759")
				So(rec.Attributes.Text("Title"), ShouldEqual, "Star Wars")
				So(rec.Attributes["Ratings"].Kind().String(), ShouldEqual, "array")
			})

			Convey("And the title and key are sent as query parameters", func() {
				q := query.Load().(url.Values)
				So(q.Get("t"), ShouldEqual, "Star Wars")
				So(q.Get("apikey"), ShouldEqual, "k3y")
			})
		})

		Convey("When the provider answers Response False", func() {
			body = `{"Response":"False","Error":"Movie not found!"}`
			_, err := c.Fetch(ctx, "Nope")

			Convey("Then the title is not found", func() {
				So(errors.Is(err, ErrTitleNotFound), ShouldBeTrue)
				So(errors.Is(err, types.ErrUpstream), ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "Movie not found!")
			})
		})

		Convey("When the provider fails", func() {
			status = http.StatusBadGateway
			_, err := c.Fetch(ctx, "Star Wars")

			Convey("Then the failure is an upstream error", func() {
				So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
			})
		})

		Convey("When the provider returns garbage", func() {
			body = `<html>`
			_, err := c.Fetch(ctx, "Star Wars")

			Convey("Then the failure is an upstream error", func() {
				So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
			})
		})

		Convey("When the title is blank", func() {
			_, err := c.Fetch(ctx, "  ")

			Convey("Then no request is made", func() {
				So(err, ShouldEqual, ErrEmptyTitle)
				So(calls.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestClientBreaker(t *testing.T) {
	Convey("Given a failing provider and a breaker opening after two failures", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL, WithBreaker(2, time.Minute), WithRateLimit(1000, 100))
		ctx := context.Background()

		_, err1 := c.Fetch(ctx, "a")
		_, err2 := c.Fetch(ctx, "b")
		_, err3 := c.Fetch(ctx, "c")

		Convey("Then the third call is rejected without reaching the provider", func() {
			So(errors.Is(err1, types.ErrUpstream), ShouldBeTrue)
			So(errors.Is(err2, types.ErrUpstream), ShouldBeTrue)
			So(errors.Is(err3, types.ErrUpstream), ShouldBeTrue)
			So(errors.Is(err3, gobreaker.ErrOpenState), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 2)
			So(c.BreakerState(), ShouldEqual, gobreaker.StateOpen)
		})
	})

	Convey("Given a provider that only reports missing titles", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
		}))
		defer srv.Close()

		c := New(srv.URL, WithBreaker(1, time.Minute), WithRateLimit(1000, 100))
		for i := 0; i < 3; i++ {
			_, _ = c.Fetch(context.Background(), "missing")
		}

		Convey("Then the breaker stays closed", func() {
			So(c.BreakerState(), ShouldEqual, gobreaker.StateClosed)
		})
	})
}

func TestClientTimeoutAndLimit(t *testing.T) {
	Convey("Given a slow provider", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			_, _ = w.Write([]byte(starWars))
		}))
		defer srv.Close()

		c := New(srv.URL, WithTimeout(50*time.Millisecond), WithRateLimit(1000, 100))
		_, err := c.Fetch(context.Background(), "Star Wars")

		Convey("Then the lookup times out as an upstream error", func() {
			So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
		})
	})

	Convey("Given an exhausted rate limiter", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(starWars))
		}))
		defer srv.Close()

		c := New(srv.URL, WithRateLimit(0.001, 1))
		_, err := c.Fetch(context.Background(), "first")
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = c.Fetch(ctx, "second")

		Convey("Then the caller is refused before the deadline", func() {
			So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
		})
	})
}
