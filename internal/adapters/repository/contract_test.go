package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2000, time.May, 1, 10, 0, 0, 0, time.UTC)

func movieIDs(ms []types.Movie) []int64 {
	out := make([]int64, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func commentIDs(cs []types.Comment) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func titled(title, year string) attrs.Bag {
	return attrs.Bag{"Title": attrs.String(title), "Year": attrs.String(year)}
}

// storeContract runs the behaviour every Store must share against a fresh
// store returned by open.
func storeContract(open func() Store) {
	ctx := context.Background()

	Convey("Creating movies", func() {
		s := open()

		m, err := s.CreateMovie(ctx, "tt0076759", titled("Star Wars", "1977"))
		So(err, ShouldBeNil)
		So(m.ID, ShouldBeGreaterThan, 0)
		So(m.IMDbID, ShouldEqual, "tt0076759")
		So(m.Attributes.Text("Title"), ShouldEqual, "Star Wars")

		Convey("A second create with the same imdb id is a duplicate", func() {
			_, err := s.CreateMovie(ctx, "tt0076759", titled("Star Wars", "1977"))
			So(err, ShouldEqual, types.ErrDuplicateKey)

			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Movies, ShouldEqual, 1)
		})

		Convey("Concurrent creates with one imdb id yield exactly one movie", func() {
			var (
				wg   sync.WaitGroup
				ok   atomic.Int32
				dups atomic.Int32
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.CreateMovie(ctx, "tt0080684", titled("Empire", "1980"))
					switch err {
					case nil:
						ok.Add(1)
					case types.ErrDuplicateKey:
						dups.Add(1)
					}
				}()
			}
			wg.Wait()
			So(ok.Load(), ShouldEqual, 1)
			So(dups.Load(), ShouldEqual, 15)
		})

		Convey("Get returns the stored movie and unknown ids are not found", func() {
			got, err := s.GetMovie(ctx, m.ID)
			So(err, ShouldBeNil)
			So(got.IMDbID, ShouldEqual, m.IMDbID)

			_, err = s.GetMovie(ctx, m.ID+1000)
			So(err, ShouldEqual, types.ErrNotFound)
		})

		Convey("Merging attributes overwrites given keys and keeps the rest", func() {
			up, err := s.MergeAttributes(ctx, m.ID, attrs.Bag{"Year": attrs.String("1997"), "Edition": attrs.String("Special")})
			So(err, ShouldBeNil)
			So(up.Attributes.Text("Title"), ShouldEqual, "Star Wars")
			So(up.Attributes.Text("Year"), ShouldEqual, "1997")
			So(up.Attributes.Text("Edition"), ShouldEqual, "Special")

			_, err = s.MergeAttributes(ctx, m.ID+1000, attrs.Bag{})
			So(err, ShouldEqual, types.ErrNotFound)
		})
	})

	Convey("Listing movies", func() {
		s := open()
		seed := []attrs.Bag{
			titled("Star Wars", "1977"),
			titled("Alien", "1979"),
			titled("Blade Runner", "1982"),
			titled("Star Wars", "1997"),
			{"Title": attrs.String("Untitled")},
		}
		for i, b := range seed {
			_, err := s.CreateMovie(ctx, fmt.Sprintf("tt%07d", i+1), b)
			So(err, ShouldBeNil)
		}

		Convey("Without a query movies come back by id", func() {
			got, err := s.ListMovies(ctx, attrs.Query{})
			So(err, ShouldBeNil)
			So(movieIDs(got), ShouldResemble, []int64{1, 2, 3, 4, 5})
		})

		Convey("A filter keeps exact string matches only", func() {
			got, err := s.ListMovies(ctx, attrs.ParseQuery("Title", "Star Wars", "", ""))
			So(err, ShouldBeNil)
			So(movieIDs(got), ShouldResemble, []int64{1, 4})
		})

		Convey("Ascending order puts movies missing the key last", func() {
			got, err := s.ListMovies(ctx, attrs.ParseQuery("", "", "Year", ""))
			So(err, ShouldBeNil)
			So(movieIDs(got), ShouldResemble, []int64{1, 2, 3, 4, 5})
		})

		Convey("Descending order puts movies missing the key first", func() {
			got, err := s.ListMovies(ctx, attrs.ParseQuery("", "", "Year", "desc"))
			So(err, ShouldBeNil)
			So(movieIDs(got), ShouldResemble, []int64{5, 4, 3, 2, 1})
		})

		Convey("Filter and order combine", func() {
			got, err := s.ListMovies(ctx, attrs.ParseQuery("Title", "Star Wars", "Year", "desc"))
			So(err, ShouldBeNil)
			So(movieIDs(got), ShouldResemble, []int64{4, 1})
		})
	})

	Convey("Comments", func() {
		s := open()
		m1, err := s.CreateMovie(ctx, "tt1", titled("One", "2001"))
		So(err, ShouldBeNil)
		m2, err := s.CreateMovie(ctx, "tt2", titled("Two", "2002"))
		So(err, ShouldBeNil)

		c1, err := s.CreateComment(ctx, types.NewComment{MovieID: m1.ID, Body: "late", CreatedAt: day.Add(2 * time.Hour)})
		So(err, ShouldBeNil)
		c2, err := s.CreateComment(ctx, types.NewComment{MovieID: m1.ID, Body: "early", CreatedAt: day})
		So(err, ShouldBeNil)
		c3, err := s.CreateComment(ctx, types.NewComment{MovieID: m2.ID, Body: "other", CreatedAt: day.Add(time.Hour)})
		So(err, ShouldBeNil)

		So(c2.CreatedAt.Equal(day), ShouldBeTrue)
		So(c2.MovieID, ShouldEqual, m1.ID)

		Convey("A comment on a missing movie is rejected and nothing is written", func() {
			_, err := s.CreateComment(ctx, types.NewComment{MovieID: m2.ID + 1000, Body: "orphan"})
			So(err, ShouldEqual, types.ErrMovieNotFound)

			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Comments, ShouldEqual, 3)
		})

		Convey("A comment without a timestamp is stamped on insert", func() {
			c, err := s.CreateComment(ctx, types.NewComment{MovieID: m2.ID, Body: "now"})
			So(err, ShouldBeNil)
			So(c.CreatedAt.IsZero(), ShouldBeFalse)
			So(c.CreatedAt.Location(), ShouldEqual, time.UTC)
		})

		Convey("All comments are listed by id", func() {
			got, err := s.ListComments(ctx, nil)
			So(err, ShouldBeNil)
			So(commentIDs(got), ShouldResemble, []int64{c1.ID, c2.ID, c3.ID})
		})

		Convey("A movie's comments are listed oldest first", func() {
			got, err := s.ListComments(ctx, &m1.ID)
			So(err, ShouldBeNil)
			So(commentIDs(got), ShouldResemble, []int64{c2.ID, c1.ID})
		})

		Convey("Counts cover all comments or only a window", func() {
			all, err := s.CommentCounts(ctx, nil)
			So(err, ShouldBeNil)
			So(all, ShouldResemble, []types.MovieCount{{MovieID: m1.ID, Count: 2}, {MovieID: m2.ID, Count: 1}})

			w := &types.Window{From: day, To: day.Add(time.Hour)}
			windowed, err := s.CommentCounts(ctx, w)
			So(err, ShouldBeNil)
			So(windowed, ShouldResemble, []types.MovieCount{{MovieID: m1.ID, Count: 1}, {MovieID: m2.ID, Count: 1}})
		})

		Convey("Deleting a movie removes its comments", func() {
			So(s.DeleteMovie(ctx, m1.ID), ShouldBeNil)

			got, err := s.ListComments(ctx, &m1.ID)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)

			all, err := s.ListComments(ctx, nil)
			So(err, ShouldBeNil)
			So(commentIDs(all), ShouldResemble, []int64{c3.ID})

			counts, err := s.CommentCounts(ctx, nil)
			So(err, ShouldBeNil)
			So(counts, ShouldResemble, []types.MovieCount{{MovieID: m2.ID, Count: 1}})

			So(s.DeleteMovie(ctx, m1.ID), ShouldEqual, types.ErrNotFound)

			Convey("And the imdb id can be reused", func() {
				_, err := s.CreateMovie(ctx, "tt1", titled("One", "2001"))
				So(err, ShouldBeNil)
			})
		})

		Convey("Deleting while comments are created never leaves orphans", func() {
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = s.CreateComment(ctx, types.NewComment{MovieID: m1.ID, Body: fmt.Sprintf("c%d", i)})
				}(i)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.DeleteMovie(ctx, m1.ID)
			}()
			wg.Wait()

			all, err := s.ListComments(ctx, nil)
			So(err, ShouldBeNil)
			for _, c := range all {
				So(c.MovieID, ShouldEqual, m2.ID)
			}
		})
	})

	Convey("Ping succeeds on an open store", func() {
		s := open()
		So(s.Ping(ctx), ShouldBeNil)
	})
}
