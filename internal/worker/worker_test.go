package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/battletrack/internal/adapters/habbo"
	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/internal/worker"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	nextID    int64
	bouncer   map[int64]string
	ledger    map[int64]map[string]struct{}
	recorded  []string
	deltasFor map[int64]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		bouncer:   make(map[int64]string),
		ledger:    make(map[int64]map[string]struct{}),
		deltasFor: make(map[int64]int64),
	}
}

func (f *fakeStore) EnsureUser(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		f.nextID++
		u = &model.User{ID: f.nextID, Username: username}
		f.users[username] = u
		f.ledger[u.ID] = make(map[string]struct{})
	}
	return *u, nil
}

func (f *fakeStore) SetBouncerID(_ context.Context, userID int64, bouncerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bouncer[userID] == "" {
		f.bouncer[userID] = bouncerID
	}
	return nil
}

func (f *fakeStore) ProcessedMatches(_ context.Context, userID int64) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.ledger[userID]))
	for id := range f.ledger[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) RecordMatch(_ context.Context, m model.ProcessedMatch) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.ledger[m.UserID][m.MatchID]; dup {
		return false, nil
	}
	f.ledger[m.UserID][m.MatchID] = struct{}{}
	f.recorded = append(f.recorded, m.MatchID)
	if m.Ranked {
		f.deltasFor[m.UserID] += m.GameScore
	}
	return true, nil
}

func (f *fakeStore) totalFor(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deltasFor[userID]
}

func (f *fakeStore) recordedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recorded...)
}

type fakeQueue struct {
	mu      sync.Mutex
	entries []model.QueueEntry
}

func (q *fakeQueue) push(username, requesterID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, model.QueueEntry{
		ID:          int64(len(q.entries) + 1),
		Username:    username,
		RequesterID: requesterID,
		Position:    len(q.entries) + 1,
	})
}

func (q *fakeQueue) Next(context.Context) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil, nil
	}
	e := q.entries[0]
	return &e, nil
}

func (q *fakeQueue) Remove(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

type fakeAPI struct {
	mu          sync.Mutex
	players     map[string]string
	history     map[string][]string
	matches     map[string]habbo.Match
	fetchedSets [][]string
	resolveErr  error
}

func (a *fakeAPI) ResolveUser(_ context.Context, username string) (habbo.User, error) {
	if a.resolveErr != nil {
		return habbo.User{}, a.resolveErr
	}
	id, ok := a.players[username]
	if !ok {
		return habbo.User{}, habbo.ErrResolutionFailed
	}
	return habbo.User{Name: username, BouncerPlayerID: id}, nil
}

func (a *fakeAPI) ListMatchIDs(_ context.Context, playerID string) ([]string, error) {
	return append([]string(nil), a.history[playerID]...), nil
}

func (a *fakeAPI) FetchMatchBatch(_ context.Context, ids []string) []habbo.Match {
	a.mu.Lock()
	a.fetchedSets = append(a.fetchedSets, append([]string(nil), ids...))
	a.mu.Unlock()

	var out []habbo.Match
	for _, id := range ids {
		if m, ok := a.matches[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (a *fakeAPI) fetched() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var flat []string
	for _, set := range a.fetchedSets {
		flat = append(flat, set...)
	}
	return flat
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, recipientID+": "+message)
	return nil
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func rankedMatch(id, playerID string, score int64) habbo.Match {
	return habbo.Match{
		Metadata: habbo.MatchMetadata{MatchID: id},
		Info: habbo.MatchInfo{
			Ranked: true,
			Participants: []habbo.MatchParticipant{
				{GamePlayerID: playerID, GameScore: score},
			},
		},
	}
}

func waitIdle(t *testing.T, w *worker.Worker) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for w.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("worker did not finish in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWorkerDrain(t *testing.T) {
	convey.Convey("Given a queued user with two ranked matches", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		queue := &fakeQueue{}
		notifier := &fakeNotifier{}
		api := &fakeAPI{
			players: map[string]string{"alice": "bp-1"},
			history: map[string][]string{"bp-1": {"m1", "m2"}},
			matches: map[string]habbo.Match{
				"m1": rankedMatch("m1", "bp-1", 100),
				"m2": rankedMatch("m2", "bp-1", -50),
			},
		}
		queue.push("alice", "req-1")

		w := worker.New(store, queue, api, notifier, worker.WithThrottle(time.Millisecond))

		convey.Convey("When the worker drains the queue", func() {
			convey.So(w.Start(ctx), convey.ShouldBeTrue)
			waitIdle(t, w)

			convey.Convey("Then both deltas land and the queue empties", func() {
				u, err := store.EnsureUser(ctx, "alice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.totalFor(u.ID), convey.ShouldEqual, 50)
				convey.So(store.recordedIDs(), convey.ShouldResemble, []string{"m1", "m2"})
				convey.So(queue.len(), convey.ShouldEqual, 0)
			})

			convey.Convey("And the requester is notified of completion", func() {
				msgs := notifier.all()
				convey.So(len(msgs), convey.ShouldEqual, 1)
				convey.So(msgs[0], convey.ShouldContainSubstring, "req-1")
				convey.So(msgs[0], convey.ShouldContainSubstring, "alice")
			})

			convey.Convey("And a rerun with one new match only fetches the new one", func() {
				api.history["bp-1"] = []string{"m1", "m2", "m3"}
				api.matches["m3"] = rankedMatch("m3", "bp-1", 25)
				queue.push("alice", "req-1")

				convey.So(w.Start(ctx), convey.ShouldBeTrue)
				waitIdle(t, w)

				u, err := store.EnsureUser(ctx, "alice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.totalFor(u.ID), convey.ShouldEqual, 75)
				convey.So(api.fetched(), convey.ShouldResemble, []string{"m1", "m2", "m3"})
			})
		})
	})
}

func TestWorkerSingleFlight(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		queue := &fakeQueue{}
		api := &fakeAPI{
			players: map[string]string{"alice": "bp-1"},
			history: map[string][]string{"bp-1": nil},
		}
		for i := 0; i < 20; i++ {
			queue.push("alice", "")
		}

		w := worker.New(store, queue, api, nil, worker.WithThrottle(5*time.Millisecond))

		convey.Convey("When Start is called twice", func() {
			first := w.Start(ctx)
			second := w.Start(ctx)

			convey.Convey("Then only the first call wins", func() {
				convey.So(first, convey.ShouldBeTrue)
				convey.So(second, convey.ShouldBeFalse)
			})

			w.Stop()
			waitIdle(t, w)
		})

		convey.Convey("When Stop is requested mid-drain", func() {
			convey.So(w.Start(ctx), convey.ShouldBeTrue)
			w.Stop()
			waitIdle(t, w)

			convey.Convey("Then the loop exits between items, not mid-job", func() {
				convey.So(w.IsRunning(), convey.ShouldBeFalse)
				convey.So(w.CurrentUser(), convey.ShouldEqual, "")
			})
		})
	})
}

func TestWorkerResolutionFailure(t *testing.T) {
	convey.Convey("Given a user the API cannot resolve", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		queue := &fakeQueue{}
		notifier := &fakeNotifier{}
		api := &fakeAPI{resolveErr: errors.New("boom")}
		queue.push("ghost", "req-9")

		w := worker.New(store, queue, api, notifier, worker.WithThrottle(time.Millisecond))

		convey.Convey("When the worker picks up the job", func() {
			convey.So(w.Start(ctx), convey.ShouldBeTrue)
			waitIdle(t, w)

			convey.Convey("Then the job is dropped, the queue drained and the requester told", func() {
				convey.So(queue.len(), convey.ShouldEqual, 0)
				convey.So(store.recordedIDs(), convey.ShouldBeEmpty)

				msgs := notifier.all()
				convey.So(len(msgs), convey.ShouldEqual, 1)
				convey.So(msgs[0], convey.ShouldContainSubstring, "req-9")
				convey.So(msgs[0], convey.ShouldContainSubstring, "ghost")
			})
		})
	})
}

func TestWorkerPartialBatch(t *testing.T) {
	convey.Convey("Given one match that cannot be fetched", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		queue := &fakeQueue{}
		api := &fakeAPI{
			players: map[string]string{"alice": "bp-1"},
			history: map[string][]string{"bp-1": {"m1", "m2"}},
			matches: map[string]habbo.Match{
				"m1": rankedMatch("m1", "bp-1", 10),
				// m2 missing: the fetch drops it from the batch.
			},
		}
		queue.push("alice", "")

		w := worker.New(store, queue, api, nil,
			worker.WithThrottle(time.Millisecond),
			worker.WithBatchSize(2),
		)

		convey.Convey("When the worker drains", func() {
			convey.So(w.Start(ctx), convey.ShouldBeTrue)
			waitIdle(t, w)

			convey.Convey("Then the fetched match scores and the broken one stays retryable", func() {
				u, err := store.EnsureUser(ctx, "alice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.totalFor(u.ID), convey.ShouldEqual, 10)
				convey.So(store.recordedIDs(), convey.ShouldResemble, []string{"m1"})

				seen, err := store.ProcessedMatches(ctx, u.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(seen, convey.ShouldNotContainKey, "m2")
			})
		})
	})
}

func TestWorkerNonRankedMatch(t *testing.T) {
	convey.Convey("Given a non-ranked match with a score", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		queue := &fakeQueue{}
		m := rankedMatch("m1", "bp-1", 500)
		m.Info.Ranked = false
		api := &fakeAPI{
			players: map[string]string{"alice": "bp-1"},
			history: map[string][]string{"bp-1": {"m1"}},
			matches: map[string]habbo.Match{"m1": m},
		}
		queue.push("alice", "")

		w := worker.New(store, queue, api, nil, worker.WithThrottle(time.Millisecond))

		convey.Convey("When the worker drains", func() {
			convey.So(w.Start(ctx), convey.ShouldBeTrue)
			waitIdle(t, w)

			convey.Convey("Then the ledger records it but the score stays put", func() {
				u, err := store.EnsureUser(ctx, "alice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.totalFor(u.ID), convey.ShouldEqual, 0)
				convey.So(store.recordedIDs(), convey.ShouldResemble, []string{"m1"})
			})
		})
	})
}
