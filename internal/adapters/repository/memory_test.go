package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		storeContract(func() Store { return NewMemoryStore() })
	})
}

func TestMemoryStoreClock(t *testing.T) {
	Convey("Given a store with a fixed clock", t, func() {
		ctx := context.Background()
		fixed := time.Date(2019, time.May, 1, 10, 0, 0, 123456789, time.FixedZone("X", 3600))
		s := NewMemoryStore(WithClock(func() time.Time { return fixed }))

		m, err := s.CreateMovie(ctx, "tt1", attrs.Bag{})
		So(err, ShouldBeNil)

		Convey("Unstamped comments take the clock's time in UTC at microsecond precision", func() {
			c, err := s.CreateComment(ctx, types.NewComment{MovieID: m.ID, Body: "hi"})
			So(err, ShouldBeNil)
			So(c.CreatedAt.Location(), ShouldEqual, time.UTC)
			So(c.CreatedAt.Equal(fixed.Truncate(time.Microsecond)), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreIsolation(t *testing.T) {
	Convey("Given a stored movie", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		m, err := s.CreateMovie(ctx, "tt1", attrs.Bag{"Title": attrs.String("One")})
		So(err, ShouldBeNil)

		Convey("Mutating a returned bag does not change the store", func() {
			m.Attributes["Title"] = attrs.String("Changed")
			got, err := s.GetMovie(ctx, m.ID)
			So(err, ShouldBeNil)
			So(got.Attributes.Text("Title"), ShouldEqual, "One")
		})
	})
}

func TestMemoryStoreClosed(t *testing.T) {
	Convey("Given a closed store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		So(s.Close(), ShouldBeNil)

		Convey("Every operation fails with ErrClosed", func() {
			_, err := s.CreateMovie(ctx, "tt1", nil)
			So(err, ShouldEqual, ErrClosed)
			_, err = s.GetMovie(ctx, 1)
			So(err, ShouldEqual, ErrClosed)
			_, err = s.ListMovies(ctx, attrs.Query{})
			So(err, ShouldEqual, ErrClosed)
			_, err = s.MergeAttributes(ctx, 1, nil)
			So(err, ShouldEqual, ErrClosed)
			So(s.DeleteMovie(ctx, 1), ShouldEqual, ErrClosed)
			_, err = s.CreateComment(ctx, types.NewComment{MovieID: 1, Body: "x"})
			So(err, ShouldEqual, ErrClosed)
			_, err = s.ListComments(ctx, nil)
			So(err, ShouldEqual, ErrClosed)
			_, err = s.CommentCounts(ctx, nil)
			So(err, ShouldEqual, ErrClosed)
			_, err = s.Stats(ctx)
			So(err, ShouldEqual, ErrClosed)
			So(s.Ping(ctx), ShouldEqual, ErrClosed)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given backend names", t, func() {
		ctx := context.Background()

		Convey("The memory backend needs no dsn", func() {
			s, err := Open(ctx, BackendMemory, "")
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &MemoryStore{})
			So(s.Close(), ShouldBeNil)
		})

		Convey("An unknown backend is refused", func() {
			s, err := Open(ctx, "sqlite", "")
			So(s, ShouldBeNil)
			So(errors.Is(err, ErrUnknownBackend), ShouldBeTrue)
		})
	})
}

func TestMovieListSQL(t *testing.T) {
	Convey("Given list queries", t, func() {
		Convey("An empty query orders by id", func() {
			sql, args := movieListSQL(attrs.Query{})
			So(sql, ShouldEqual, `SELECT id, imdb_id, attributes FROM movies ORDER BY id ASC`)
			So(args, ShouldBeEmpty)
		})

		Convey("Filter and sort bind their fields as parameters", func() {
			sql, args := movieListSQL(attrs.ParseQuery("Title", "Alien", "Year", "DESC"))
			So(sql, ShouldContainSubstring, `WHERE attributes -> $1::text = to_jsonb($2::text)`)
			So(sql, ShouldContainSubstring, `ORDER BY attributes -> $3::text DESC, id ASC`)
			So(args, ShouldResemble, []any{"Title", "Alien", "Year"})
		})

		Convey("A sort alone uses the first parameter", func() {
			sql, args := movieListSQL(attrs.ParseQuery("", "", "Year", ""))
			So(sql, ShouldContainSubstring, `ORDER BY attributes -> $1::text ASC, id ASC`)
			So(args, ShouldResemble, []any{"Year"})
		})
	})
}
