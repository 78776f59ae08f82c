package habbo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/battletrack/internal/adapters/habbo"
)

func TestResolveUser(t *testing.T) {
	convey.Convey("Given the upstream user endpoint", t, func() {
		ctx := context.Background()

		convey.Convey("When the profile resolves", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users" || r.URL.Query().Get("name") != "alice" {
					http.NotFound(w, r)
					return
				}
				_ = json.NewEncoder(w).Encode(habbo.User{
					UniqueID:        "u-1",
					Name:            "alice",
					BouncerPlayerID: "bp-1",
				})
			}))
			defer srv.Close()

			c, err := habbo.NewClient(srv.URL, nil)
			convey.So(err, convey.ShouldBeNil)

			u, err := c.ResolveUser(ctx, "  Alice ")

			convey.Convey("Then the normalized name is queried and the id returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(u.BouncerPlayerID, convey.ShouldEqual, "bp-1")
			})
		})

		convey.Convey("When early attempts fail", func() {
			var calls atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				_ = json.NewEncoder(w).Encode(habbo.User{BouncerPlayerID: "bp-1"})
			}))
			defer srv.Close()

			c, err := habbo.NewClient(srv.URL, nil, habbo.WithMaxAttempts(5))
			convey.So(err, convey.ShouldBeNil)

			u, err := c.ResolveUser(ctx, "alice")

			convey.Convey("Then the retry ceiling absorbs them", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(u.BouncerPlayerID, convey.ShouldEqual, "bp-1")
				convey.So(calls.Load(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the profile has no bouncer id", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(habbo.User{Name: "alice"})
			}))
			defer srv.Close()

			c, err := habbo.NewClient(srv.URL, nil, habbo.WithMaxAttempts(2))
			convey.So(err, convey.ShouldBeNil)

			_, err = c.ResolveUser(ctx, "alice")

			convey.Convey("Then resolution fails with the sentinel", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, habbo.ErrResolutionFailed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestListMatchIDs(t *testing.T) {
	convey.Convey("Given a paged match-id history", t, func() {
		ctx := context.Background()
		pages := map[int][]string{
			0: {"m1", "m2"},
			2: {"m3"},
			4: {},
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			ids, ok := pages[offset]
			if !ok {
				ids = []string{}
			}
			_ = json.NewEncoder(w).Encode(ids)
		}))
		defer srv.Close()

		c, err := habbo.NewClient(srv.URL, nil, habbo.WithPageSize(2))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When listing all ids", func() {
			ids, err := c.ListMatchIDs(ctx, "bp-1")

			convey.Convey("Then pagination stops at the first empty page", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ids, convey.ShouldResemble, []string{"m1", "m2", "m3"})
			})
		})
	})

	convey.Convey("Given an endpoint that always fails", t, func() {
		ctx := context.Background()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, err := habbo.NewClient(srv.URL, nil, habbo.WithMaxAttempts(2))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When listing ids", func() {
			_, err := c.ListMatchIDs(ctx, "bp-1")

			convey.Convey("Then the page failure surfaces", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, habbo.ErrPageFetchFailed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestFetchMatch(t *testing.T) {
	convey.Convey("Given the match detail endpoint", t, func() {
		ctx := context.Background()

		convey.Convey("When the match exists", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(habbo.Match{
					Metadata: habbo.MatchMetadata{MatchID: "m1"},
					Info: habbo.MatchInfo{
						Ranked: true,
						Participants: []habbo.MatchParticipant{
							{GamePlayerID: "bp-1", GameScore: 42},
						},
					},
				})
			}))
			defer srv.Close()

			c, err := habbo.NewClient(srv.URL, nil)
			convey.So(err, convey.ShouldBeNil)

			m, err := c.FetchMatch(ctx, "m1")

			convey.Convey("Then detail and participant lookup work", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Metadata.MatchID, convey.ShouldEqual, "m1")

				p, ok := m.Participant("bp-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.GameScore, convey.ShouldEqual, 42)

				_, ok = m.Participant("bp-9")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When retries run out", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			c, err := habbo.NewClient(srv.URL, nil, habbo.WithMaxAttempts(2))
			convey.So(err, convey.ShouldBeNil)

			_, err = c.FetchMatch(ctx, "m1")

			convey.Convey("Then the match is reported unavailable", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, habbo.ErrMatchUnavailable), convey.ShouldBeTrue)
			})
		})
	})
}

func TestFetchMatchBatch(t *testing.T) {
	convey.Convey("Given a batch with one broken match", t, func() {
		ctx := context.Background()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/matches/v1/bad" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			id := r.URL.Path[len("/matches/v1/"):]
			_ = json.NewEncoder(w).Encode(habbo.Match{
				Metadata: habbo.MatchMetadata{MatchID: id},
			})
		}))
		defer srv.Close()

		c, err := habbo.NewClient(srv.URL, nil,
			habbo.WithMaxAttempts(2),
			habbo.WithConcurrency(2),
		)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When fetching the batch", func() {
			fetched := c.FetchMatchBatch(ctx, []string{"m1", "bad", "m2"})

			convey.Convey("Then only the successful subset returns, in order", func() {
				convey.So(len(fetched), convey.ShouldEqual, 2)
				convey.So(fetched[0].Metadata.MatchID, convey.ShouldEqual, "m1")
				convey.So(fetched[1].Metadata.MatchID, convey.ShouldEqual, "m2")
			})
		})
	})
}
