package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/marquee/internal/adapters/metadata"
	"github.com/okian/marquee/internal/adapters/repository"
	service "github.com/okian/marquee/internal/app"
	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeFetcher serves records keyed by lower-cased title.
type fakeFetcher struct {
	mu      sync.Mutex
	records map[string]metadata.Record
	err     error
	calls   int
}

func newFakeFetcher() *fakeFetcher {
	f := &fakeFetcher{records: map[string]metadata.Record{}}
	f.add("Star Wars", "tt0076759", "1977")
	f.add("Alien", "tt0078748", "1979")
	f.add("Blade Runner", "tt0083658", "1982")
	return f
}

func (f *fakeFetcher) add(title, imdbID, year string) {
	bag := attrs.Bag{"Title": attrs.String(title), "Year": attrs.String(year)}
	if imdbID != "" {
		bag["imdbID"] = attrs.String(imdbID)
	}
	f.records[strings.ToLower(title)] = metadata.Record{IMDbID: imdbID, Attributes: bag}
}

func (f *fakeFetcher) Fetch(_ context.Context, title string) (metadata.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return metadata.Record{}, f.err
	}
	rec, ok := f.records[strings.ToLower(title)]
	if !ok {
		return metadata.Record{}, fmt.Errorf("%w: Movie not found!", metadata.ErrTitleNotFound)
	}
	return rec, nil
}

func startService(store repository.Store, f metadata.Fetcher) *service.Service {
	svc := service.New(service.WithStore(store), service.WithFetcher(f), service.WithLogger(logger.Nop()))
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service without a fetcher", t, func() {
		svc := service.New()

		Convey("Then Start refuses to run", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoFetcher)
		})

		Convey("And operations report that it is not started", func() {
			_, err := svc.ListMovies(context.Background(), attrs.Query{})
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithFetcher(newFakeFetcher()))
		So(svc.Start(context.Background()), ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then it is ready and reports stats", func() {
			So(svc.Ready(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["movies"], ShouldEqual, 0)
			So(stats["comments"], ShouldEqual, 0)
		})

		Convey("When stopping the service", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Ready(context.Background()), ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

func TestService_Movies(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		fetcher := newFakeFetcher()
		svc := startService(repository.NewMemoryStore(), fetcher)
		defer svc.Stop()

		Convey("When creating a movie by title", func() {
			m, err := svc.CreateMovie(ctx, "Star Wars")

			Convey("Then the fetched attributes and imdb id are stored", func() {
				So(err, ShouldBeNil)
				So(m.ID, ShouldEqual, 1)
				So(m.IMDbID, ShouldEqual, "tt0076759")
				So(m.Attributes.Text("Title"), ShouldEqual, "Star Wars")

				got, err := svc.GetMovie(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.IMDbID, ShouldEqual, m.IMDbID)
			})

			Convey("And creating it again is a duplicate", func() {
				_, err := svc.CreateMovie(ctx, "star wars")
				So(errors.Is(err, types.ErrDuplicateKey), ShouldBeTrue)
			})
		})

		Convey("When the title is blank", func() {
			_, err := svc.CreateMovie(ctx, "   ")

			Convey("Then it is a validation error and the provider is not asked", func() {
				So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
				So(fetcher.calls, ShouldEqual, 0)
			})
		})

		Convey("When the provider does not know the title", func() {
			_, err := svc.CreateMovie(ctx, "Unknown")
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the provider fails", func() {
			fetcher.err = errors.New("connection refused")
			_, err := svc.CreateMovie(ctx, "Alien")
			So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
		})

		Convey("When the record has no imdb id", func() {
			fetcher.add("Bootleg", "", "2001")
			_, err := svc.CreateMovie(ctx, "Bootleg")
			So(errors.Is(err, types.ErrUpstream), ShouldBeTrue)
		})

		Convey("When the same title is created concurrently", func() {
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				ok, dupes int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.CreateMovie(ctx, "Alien")
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						ok++
					} else if errors.Is(err, types.ErrDuplicateKey) {
						dupes++
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(ok, ShouldEqual, 1)
				So(dupes, ShouldEqual, 9)
			})
		})

		Convey("When updating and deleting", func() {
			m, err := svc.CreateMovie(ctx, "Blade Runner")
			So(err, ShouldBeNil)

			up, err := svc.UpdateMovie(ctx, m.ID, attrs.Bag{"Director": attrs.String("Ridley Scott")})
			So(err, ShouldBeNil)
			So(up.Attributes.Text("Director"), ShouldEqual, "Ridley Scott")
			So(up.Attributes.Text("Title"), ShouldEqual, "Blade Runner")
			So(up.IMDbID, ShouldEqual, "tt0083658")

			So(svc.DeleteMovie(ctx, m.ID), ShouldBeNil)

			Convey("Then the movie is gone", func() {
				_, err := svc.GetMovie(ctx, m.ID)
				So(err, ShouldEqual, types.ErrNotFound)
				So(svc.DeleteMovie(ctx, m.ID), ShouldEqual, types.ErrNotFound)
				_, err = svc.UpdateMovie(ctx, m.ID, attrs.Bag{})
				So(err, ShouldEqual, types.ErrNotFound)
			})
		})

		Convey("When listing with a filter", func() {
			for _, title := range []string{"Star Wars", "Alien", "Blade Runner"} {
				_, err := svc.CreateMovie(ctx, title)
				So(err, ShouldBeNil)
			}
			got, err := svc.ListMovies(ctx, attrs.ParseQuery("Title", "Star Wars", "", ""))

			Convey("Then only exact matches are returned", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Attributes.Text("Title"), ShouldEqual, "Star Wars")
			})

			Convey("And a substring matches nothing", func() {
				got, err := svc.ListMovies(ctx, attrs.ParseQuery("Title", "Star", "", ""))
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})

			Convey("And ordering by year descending reverses creation order", func() {
				got, err := svc.ListMovies(ctx, attrs.ParseQuery("", "", "Year", "desc"))
				So(err, ShouldBeNil)
				So(got[0].Attributes.Text("Title"), ShouldEqual, "Blade Runner")
				So(got[2].Attributes.Text("Title"), ShouldEqual, "Star Wars")
			})
		})
	})
}

func TestService_Comments(t *testing.T) {
	Convey("Given a service with one movie", t, func() {
		ctx := context.Background()
		svc := startService(repository.NewMemoryStore(), newFakeFetcher())
		defer svc.Stop()

		m, err := svc.CreateMovie(ctx, "Star Wars")
		So(err, ShouldBeNil)

		Convey("When commenting on it", func() {
			c, err := svc.CreateComment(ctx, m.ID, "Great movie")

			Convey("Then the comment is stored against the movie", func() {
				So(err, ShouldBeNil)
				So(c.MovieID, ShouldEqual, m.ID)
				So(c.Body, ShouldEqual, "Great movie")

				got, err := svc.ListComments(ctx, &m.ID)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
			})
		})

		Convey("When the body is empty", func() {
			_, err := svc.CreateComment(ctx, m.ID, " ")
			So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
		})

		Convey("When the movie does not exist", func() {
			_, err := svc.CreateComment(ctx, m.ID+99, "orphan")

			Convey("Then nothing is written", func() {
				So(err, ShouldEqual, types.ErrMovieNotFound)
				all, err := svc.ListComments(ctx, nil)
				So(err, ShouldBeNil)
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When listing comments of an unknown movie", func() {
			missing := m.ID + 99
			_, err := svc.ListComments(ctx, &missing)
			So(err, ShouldEqual, types.ErrNotFound)
		})

		Convey("When the movie is deleted", func() {
			_, err := svc.CreateComment(ctx, m.ID, "one")
			So(err, ShouldBeNil)
			_, err = svc.CreateComment(ctx, m.ID, "two")
			So(err, ShouldBeNil)
			So(svc.DeleteMovie(ctx, m.ID), ShouldBeNil)

			Convey("Then its comments are gone too", func() {
				all, err := svc.ListComments(ctx, nil)
				So(err, ShouldBeNil)
				So(all, ShouldBeEmpty)
				top, err := svc.Top(ctx, "", "")
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Top(t *testing.T) {
	Convey("Given three movies with dated comments", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := startService(store, newFakeFetcher())
		defer svc.Stop()

		var ids []int64
		for _, title := range []string{"Star Wars", "Alien", "Blade Runner"} {
			m, err := svc.CreateMovie(ctx, title)
			So(err, ShouldBeNil)
			ids = append(ids, m.ID)
		}
		at := func(movie int64, ts string) {
			when, err := time.Parse("2006-01-02 15:04:05", ts)
			So(err, ShouldBeNil)
			_, err = store.CreateComment(ctx, types.NewComment{MovieID: movie, Body: "c", CreatedAt: when})
			So(err, ShouldBeNil)
		}
		at(ids[0], "2000-05-10 10:00:00")
		at(ids[1], "2000-05-11 10:00:00")
		at(ids[1], "2000-05-12 10:00:00")
		at(ids[2], "2000-05-01 00:00:00")
		at(ids[2], "2000-05-31 23:59:59")
		at(ids[2], "2000-07-01 00:00:00")

		Convey("Then the all-time leaderboard ranks by count", func() {
			top, err := svc.Top(ctx, "", "")
			So(err, ShouldBeNil)
			So(top, ShouldResemble, []types.LeaderboardEntry{
				{MovieID: ids[2], TotalComments: 3, Rank: 1},
				{MovieID: ids[1], TotalComments: 2, Rank: 2},
				{MovieID: ids[0], TotalComments: 1, Rank: 3},
			})
		})

		Convey("Then a May window excludes the July comment and ties share a rank", func() {
			top, err := svc.Top(ctx, "2000-05-01 00:00:00", "2000-05-31 23:59:59")
			So(err, ShouldBeNil)
			So(top, ShouldResemble, []types.LeaderboardEntry{
				{MovieID: ids[1], TotalComments: 2, Rank: 1},
				{MovieID: ids[2], TotalComments: 2, Rank: 1},
				{MovieID: ids[0], TotalComments: 1, Rank: 2},
			})
		})

		Convey("Then invalid ranges are rejected", func() {
			_, err := svc.Top(ctx, "April", "2000-05-31 23:59:59")
			So(errors.Is(err, types.ErrBadDateFormat), ShouldBeTrue)

			_, err = svc.Top(ctx, "2000-06-01 00:00:00", "2000-05-01 00:00:00")
			So(errors.Is(err, types.ErrInvalidRange), ShouldBeTrue)

			_, err = svc.Top(ctx, "2000-05-01 00:00:00", "")
			So(errors.Is(err, types.ErrInvalidRange), ShouldBeTrue)
		})

		Convey("Then a window without comments is empty", func() {
			top, err := svc.Top(ctx, "1990-01-01 00:00:00", "1990-12-31 23:59:59")
			So(err, ShouldBeNil)
			So(top, ShouldNotBeNil)
			So(top, ShouldBeEmpty)
		})
	})
}
