package optimistic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

type item struct {
	ID     string
	Status string
}

func (i item) Key() string { return i.ID }

func toggled(s string) string {
	if s == "active" {
		return "inactive"
	}
	return "active"
}

// fakeServer holds the authoritative state behind fetch and the requests.
type fakeServer struct {
	mu         sync.Mutex
	order      []string
	status     map[string]string
	fetchCalls int
	fetchErr   error
}

func newFakeServer(items ...item) *fakeServer {
	s := &fakeServer{status: map[string]string{}}
	for _, it := range items {
		s.order = append(s.order, it.ID)
		s.status[it.ID] = it.Status
	}
	return s
}

func (s *fakeServer) fetch(context.Context) ([]item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, item{ID: id, Status: s.status[id]})
	}
	return out, nil
}

func (s *fakeServer) toggle(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = toggled(s.status[id])
	return s.status[id]
}

func (s *fakeServer) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.status, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *fakeServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func newTestController(t *testing.T, srv *fakeServer, opts ...Option) (*Controller[item], *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewController[item](srv.fetch, rec, opts...)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return c, rec
}

func toggleMutation(srv *fakeServer, id string) Mutation[item] {
	return Mutation[item]{
		RecordID: id,
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			status := srv.toggle(id)
			return Reply[item]{Merge: func(i item) item { i.Status = status; return i }, Message: "Status updated"}, nil
		},
	}
}

func statusOf(t *testing.T, c *Controller[item], id string) string {
	t.Helper()
	it, ok := c.Collection().Get(id)
	if !ok {
		t.Fatalf("record %s missing", id)
	}
	return it.Status
}

func TestOptimisticValueVisibleBeforeResponse(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, _ := newTestController(t, srv)

	release := make(chan struct{})
	m := toggleMutation(srv, "p1")
	inner := m.Request
	m.Request = func(ctx context.Context, optimistic item) (Reply[item], error) {
		<-release
		return inner(ctx, optimistic)
	}

	p := c.Go(context.Background(), m)
	if got := statusOf(t, c, "p1"); got != "inactive" {
		t.Fatalf("expected optimistic inactive, got %s", got)
	}
	settled := make(chan struct{})
	go func() { p.Wait(); close(settled) }()
	select {
	case <-settled:
		t.Fatal("mutation settled before the request returned")
	default:
	}

	close(release)
	if out := p.Wait(); out.State != Confirmed {
		t.Fatalf("expected confirmed, got %s", out.State)
	}
}

func TestServerValueWinsOnSuccess(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, rec := newTestController(t, srv)

	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "p1",
		Field:    "status",
		Change:   func(i item) item { i.Status = "pending"; return i },
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{Merge: func(i item) item { i.Status = "inactive"; return i }}, nil
		},
		SuccessMessage: "Product updated",
	})

	if out.State != Confirmed {
		t.Fatalf("expected confirmed, got %s", out.State)
	}
	if got := statusOf(t, c, "p1"); got != "inactive" {
		t.Fatalf("expected server value inactive, got %s", got)
	}
	last, _ := rec.Last()
	if last.Level != Success || last.Message != "Product updated" {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestFailureRefetchesCollection(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, rec := newTestController(t, srv)
	before := srv.calls()

	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "p1",
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{}, result.New(result.ServerRejected, "Not permitted")
		},
	})

	if out.State != RolledBack || out.Kind != result.ServerRejected {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if srv.calls() != before+1 {
		t.Fatalf("expected one refetch, got %d", srv.calls()-before)
	}
	if got := statusOf(t, c, "p1"); got != "active" {
		t.Fatalf("expected rollback to active, got %s", got)
	}
	last, _ := rec.Last()
	if last.Level != Failure || !strings.Contains(last.Message, "Not permitted") {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestFailedRefetchRestoresRememberedValue(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"}, item{ID: "p2", Status: "active"})
	c, _ := newTestController(t, srv)
	srv.fetchErr = errors.New("offline")

	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "p1",
		Remove:   true,
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{}, result.New(result.NetworkUnreachable, "")
		},
	})

	if out.State != RolledBack {
		t.Fatalf("expected rolled back, got %s", out.State)
	}
	snap := c.Collection().Snapshot()
	if len(snap) != 2 || snap[0].ID != "p1" {
		t.Fatalf("expected p1 restored at its position, got %+v", snap)
	}
}

func TestGuardRejectsBeforeNetwork(t *testing.T) {
	srv := newFakeServer(item{ID: "me", Status: "active"})
	c, rec := newTestController(t, srv)

	called := false
	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "me",
		Field:    "status",
		Change:   func(i item) item { i.Status = "banned"; return i },
		Guard:    func(item) error { return result.New(result.Rejected, "You cannot ban your own account") },
		Request: func(context.Context, item) (Reply[item], error) {
			called = true
			return Reply[item]{}, nil
		},
	})

	if out.State != Rejected || out.Kind != result.Rejected {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if called {
		t.Fatal("request must not run when the guard rejects")
	}
	if got := statusOf(t, c, "me"); got != "active" {
		t.Fatalf("collection changed: %s", got)
	}
	last, _ := rec.Last()
	if last.Message != "You cannot ban your own account" {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestToggleTwiceReturnsOriginal(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, _ := newTestController(t, srv)

	for i := 0; i < 2; i++ {
		if out := c.Apply(context.Background(), toggleMutation(srv, "p1")); out.State != Confirmed {
			t.Fatalf("toggle %d: %s", i, out.State)
		}
	}
	if got := statusOf(t, c, "p1"); got != "active" {
		t.Fatalf("expected active after two toggles, got %s", got)
	}
}

func TestIndependentRecordsSettleIndependently(t *testing.T) {
	srv := newFakeServer(item{ID: "a", Status: "active"}, item{ID: "b", Status: "active"})
	c, _ := newTestController(t, srv)

	releaseA := make(chan struct{})
	releaseB := make(chan struct{})

	failA := Mutation[item]{
		RecordID: "a",
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			<-releaseA
			return Reply[item]{}, result.New(result.ServerRejected, "Not permitted")
		},
	}
	okB := toggleMutation(srv, "b")
	innerB := okB.Request
	okB.Request = func(ctx context.Context, optimistic item) (Reply[item], error) {
		<-releaseB
		return innerB(ctx, optimistic)
	}

	pa := c.Go(context.Background(), failA)
	pb := c.Go(context.Background(), okB)

	close(releaseB)
	if out := pb.Wait(); out.State != Confirmed {
		t.Fatalf("b: %s", out.State)
	}
	close(releaseA)
	if out := pa.Wait(); out.State != RolledBack {
		t.Fatalf("a: %s", out.State)
	}

	if got := statusOf(t, c, "a"); got != "active" {
		t.Fatalf("a should be rolled back, got %s", got)
	}
	if got := statusOf(t, c, "b"); got != "inactive" {
		t.Fatalf("b should keep its confirmed value, got %s", got)
	}
}

func TestConfirmedDeleteSurvivesRefetchFromOtherFailure(t *testing.T) {
	srv := newFakeServer(item{ID: "a", Status: "active"}, item{ID: "b", Status: "active"})
	c, _ := newTestController(t, srv)

	releaseB := make(chan struct{})
	pb := c.Go(context.Background(), Mutation[item]{
		RecordID: "b",
		Remove:   true,
		Request: func(context.Context, item) (Reply[item], error) {
			<-releaseB
			srv.remove("b")
			return Reply[item]{Message: "Product deleted"}, nil
		},
	})

	// The refetch runs while b is still on the server and brings it back.
	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "a",
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{}, result.New(result.ServerRejected, "Not permitted")
		},
	})
	if out.State != RolledBack {
		t.Fatalf("a: %s", out.State)
	}
	if _, ok := c.Collection().Get("b"); !ok {
		t.Fatal("refetch should have returned b while its delete was in flight")
	}

	close(releaseB)
	if out := pb.Wait(); out.State != Confirmed {
		t.Fatalf("b: %s", out.State)
	}
	snap := c.Collection().Snapshot()
	if len(snap) != 1 || snap[0].ID != "a" || snap[0].Status != "active" {
		t.Fatalf("expected only a, active; got %+v", snap)
	}
}

func TestConfirmedFieldChangeSurvivesRefetchFromOtherFailure(t *testing.T) {
	srv := newFakeServer(item{ID: "a", Status: "active"}, item{ID: "b", Status: "active"})
	c, _ := newTestController(t, srv)

	releaseB := make(chan struct{})
	pb := c.Go(context.Background(), Mutation[item]{
		RecordID: "b",
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			<-releaseB
			srv.toggle("b")
			return Reply[item]{}, nil
		},
	})

	c.Apply(context.Background(), Mutation[item]{
		RecordID: "a",
		Field:    "status",
		Change:   func(i item) item { i.Status = toggled(i.Status); return i },
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{}, result.New(result.NetworkUnreachable, "")
		},
	})
	if got := statusOf(t, c, "b"); got != "active" {
		t.Fatalf("refetch should have reverted b while in flight, got %s", got)
	}

	close(releaseB)
	pb.Wait()
	if got := statusOf(t, c, "b"); got != "inactive" {
		t.Fatalf("confirmed change lost to the refetch, got %s", got)
	}
	if got := statusOf(t, c, "a"); got != "active" {
		t.Fatalf("a should be rolled back, got %s", got)
	}
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	hits := 0
	c, _ := newTestController(t, srv, WithOnUnauthorized(func() { hits++ }))

	out := c.Apply(context.Background(), Mutation[item]{
		RecordID: "p1",
		Change:   func(i item) item { return i },
		Request: func(context.Context, item) (Reply[item], error) {
			return Reply[item]{}, result.New(result.Unauthorized, "")
		},
	})
	if out.Kind != result.Unauthorized || hits != 1 {
		t.Fatalf("kind=%s hits=%d", out.Kind, hits)
	}
}

func TestUnknownRecordIsRejected(t *testing.T) {
	srv := newFakeServer()
	c, _ := newTestController(t, srv)
	out := c.Apply(context.Background(), Mutation[item]{RecordID: "missing", Change: func(i item) item { return i }})
	if out.State != Rejected || !errors.Is(out.Err, ErrUnknownRecord) {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestClosedControllerDropsCompletion(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, rec := newTestController(t, srv)
	notified := len(rec.All())

	release := make(chan struct{})
	p := c.Go(context.Background(), Mutation[item]{
		RecordID: "p1",
		Change:   func(i item) item { i.Status = "inactive"; return i },
		Request: func(context.Context, item) (Reply[item], error) {
			<-release
			return Reply[item]{Merge: func(i item) item { i.Status = "merged"; return i }}, nil
		},
	})
	c.Close()
	close(release)
	p.Wait()

	if got := statusOf(t, c, "p1"); got != "inactive" {
		t.Fatalf("closed controller must not merge, got %s", got)
	}
	if len(rec.All()) != notified {
		t.Fatal("closed controller must not notify")
	}
}

func TestSerializedRecordsRunInOrder(t *testing.T) {
	srv := newFakeServer(item{ID: "p1", Status: "active"})
	c, _ := newTestController(t, srv, WithSerializedRecords())

	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string

	first := toggleMutation(srv, "p1")
	innerFirst := first.Request
	first.Request = func(ctx context.Context, optimistic item) (Reply[item], error) {
		<-release
		mu.Lock()
		seen = append(seen, "first:"+optimistic.Status)
		mu.Unlock()
		return innerFirst(ctx, optimistic)
	}
	second := toggleMutation(srv, "p1")
	innerSecond := second.Request
	second.Request = func(ctx context.Context, optimistic item) (Reply[item], error) {
		mu.Lock()
		seen = append(seen, "second:"+optimistic.Status)
		mu.Unlock()
		return innerSecond(ctx, optimistic)
	}

	p1 := c.Go(context.Background(), first)
	// Give the first mutation time to take the record lock.
	time.Sleep(20 * time.Millisecond)
	p2 := c.Go(context.Background(), second)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	if len(seen) != 0 {
		mu.Unlock()
		t.Fatalf("second mutation ran before first settled: %v", seen)
	}
	mu.Unlock()

	close(release)
	p1.Wait()
	p2.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "first:inactive" || seen[1] != "second:active" {
		t.Fatalf("unexpected order %v", seen)
	}
	if got := statusOf(t, c, "p1"); got != "active" {
		t.Fatalf("expected active, got %s", got)
	}
}

func TestCollectionListenersSeeChanges(t *testing.T) {
	coll := NewCollection(item{ID: "a", Status: "active"})
	var got []Change[item]
	coll.OnChange(func(ch Change[item]) { got = append(got, ch) })

	coll.update("a", func(i item) item { i.Status = "inactive"; return i })
	coll.Replace([]item{{ID: "b", Status: "active"}})
	coll.remove("b")

	if len(got) != 3 || got[0].Items[0].Status != "inactive" || got[1].Items[0].ID != "b" || len(got[2].Items) != 0 {
		t.Fatalf("unexpected notifications %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Version <= got[i-1].Version {
			t.Fatalf("versions must grow: %d then %d", got[i-1].Version, got[i].Version)
		}
	}
}

func TestMissingRecordWriteDoesNotNotify(t *testing.T) {
	coll := NewCollection(item{ID: "a", Status: "active"})
	calls := 0
	coll.OnChange(func(Change[item]) { calls++ })
	if _, ok := coll.update("zz", func(i item) item { return i }); ok {
		t.Fatal("update of missing record reported success")
	}
	if calls != 0 {
		t.Fatalf("listener called %d times", calls)
	}
}
