package queue_test

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/battletrack/internal/adapters/repository"
	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/internal/queue"
)

type memStore struct {
	entries []model.QueueEntry
	nextID  int64
}

func (s *memStore) Enqueue(_ context.Context, username, requesterID string) (int, bool, error) {
	for _, e := range s.entries {
		if e.Username == username {
			return e.Position, false, nil
		}
	}
	s.nextID++
	e := model.QueueEntry{
		ID:          s.nextID,
		Username:    username,
		RequesterID: requesterID,
		Position:    len(s.entries) + 1,
	}
	s.entries = append(s.entries, e)
	return e.Position, true, nil
}

func (s *memStore) NextInQueue(context.Context) (model.QueueEntry, error) {
	if len(s.entries) == 0 {
		return model.QueueEntry{}, repository.ErrQueueEmpty
	}
	return s.entries[0], nil
}

func (s *memStore) RemoveFromQueue(_ context.Context, id int64) error {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	for i := range s.entries {
		s.entries[i].Position = i + 1
	}
	return nil
}

func (s *memStore) QueueLen(context.Context) (int, error) {
	return len(s.entries), nil
}

func (s *memStore) ListQueue(_ context.Context, limit, offset int) ([]model.QueueEntry, error) {
	out := s.entries
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return append([]model.QueueEntry(nil), out...), nil
}

func TestManagerEnqueue(t *testing.T) {
	convey.Convey("Given a queue manager", t, func() {
		ctx := context.Background()
		m := queue.NewManager(&memStore{})

		convey.Convey("When enqueuing a username with padding and mixed case", func() {
			pos, err := m.Enqueue(ctx, "  Alice ", "req-1")

			convey.Convey("Then it is admitted at position 1 under the normalized name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pos, convey.ShouldEqual, 1)

				entries, err := m.List(ctx, 0, 0)
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries[0].Username, convey.ShouldEqual, "alice")
			})

			convey.Convey("And re-enqueuing returns the same position", func() {
				again, err := m.Enqueue(ctx, "ALICE", "req-2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldEqual, 1)

				n, err := m.Len(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When enqueuing an empty username", func() {
			_, err := m.Enqueue(ctx, "   ", "req-1")

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldEqual, queue.ErrEmptyUsername)
			})
		})
	})
}

func TestManagerNextAndRemove(t *testing.T) {
	convey.Convey("Given a populated queue", t, func() {
		ctx := context.Background()
		m := queue.NewManager(&memStore{})
		for _, name := range []string{"alice", "bob"} {
			_, err := m.Enqueue(ctx, name, "")
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When peeking the head", func() {
			e, err := m.Next(ctx)

			convey.Convey("Then the head stays queued until removed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e, convey.ShouldNotBeNil)
				convey.So(e.Username, convey.ShouldEqual, "alice")

				n, err := m.Len(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When removing the head", func() {
			e, err := m.Next(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Remove(ctx, e.ID), convey.ShouldBeNil)

			convey.Convey("Then the next user moves to position 1", func() {
				next, err := m.Next(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(next.Username, convey.ShouldEqual, "bob")
				convey.So(next.Position, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the queue drains completely", func() {
			for {
				e, err := m.Next(ctx)
				convey.So(err, convey.ShouldBeNil)
				if e == nil {
					break
				}
				convey.So(m.Remove(ctx, e.ID), convey.ShouldBeNil)
			}

			convey.Convey("Then Next reports emptiness with a nil entry", func() {
				e, err := m.Next(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(e, convey.ShouldBeNil)
			})
		})
	})
}
