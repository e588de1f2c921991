package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/catalog"
)

// gatedRecomputer blocks each call until released or canceled.
type gatedRecomputer struct {
	mu       sync.Mutex
	started  chan Request
	release  chan struct{}
	canceled []string
}

func newGatedRecomputer() *gatedRecomputer {
	return &gatedRecomputer{
		started: make(chan Request, 10),
		release: make(chan struct{}),
	}
}

func (g *gatedRecomputer) Recompute(ctx context.Context, region string, state InterventionState) (*ResultBundle, error) {
	g.started <- Request{Region: region, State: state}
	select {
	case <-ctx.Done():
		g.mu.Lock()
		g.canceled = append(g.canceled, region)
		g.mu.Unlock()
		return nil, ctx.Err()
	case <-g.release:
		return &ResultBundle{Region: catalog.Region{Name: region}, State: state, Status: Status{ClimateAvailable: true}}, nil
	}
}

func (g *gatedRecomputer) canceledRegions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.canceled...)
}

func TestScheduler_LatestWins(t *testing.T) {
	g := newGatedRecomputer()
	s := NewScheduler(context.Background(), g)
	t.Cleanup(s.Close)

	first := s.Submit(Request{Region: "uk"})
	select {
	case req := <-g.started:
		assert.Equal(t, "uk", req.Region)
	case <-time.After(time.Second):
		t.Fatal("first request never started")
	}

	second := s.Submit(Request{Region: "chile", State: InterventionState{RuminantLevel: 3}})
	assert.Greater(t, second, first)

	select {
	case req := <-g.started:
		assert.Equal(t, "chile", req.Region)
	case <-time.After(time.Second):
		t.Fatal("second request never started")
	}
	close(g.release)

	select {
	case res := <-s.Results():
		assert.Equal(t, second, res.Seq)
		require.NoError(t, res.Err)
		assert.Equal(t, "chile", res.Bundle.Region.Name)
		assert.Equal(t, 3, res.Bundle.State.RuminantLevel)
		assert.Equal(t, OutcomeOK, res.Outcome())
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	assert.Equal(t, []string{"uk"}, g.canceledRegions())

	// The superseded request never produces a result.
	select {
	case res := <-s.Results():
		t.Fatalf("unexpected extra result for seq %d", res.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_PendingIsReplaced(t *testing.T) {
	g := newGatedRecomputer()
	s := NewScheduler(context.Background(), g)
	t.Cleanup(s.Close)

	s.Submit(Request{Region: "a"})
	<-g.started

	// Both arrive while "a" runs; only "c" may start next.
	s.Submit(Request{Region: "b"})
	last := s.Submit(Request{Region: "c"})

	var startedNext []string
	require.Eventually(t, func() bool {
		select {
		case req := <-g.started:
			startedNext = append(startedNext, req.Region)
		default:
		}
		return len(startedNext) > 0 && startedNext[len(startedNext)-1] == "c"
	}, time.Second, 5*time.Millisecond)
	close(g.release)

	res := <-s.Results()
	assert.Equal(t, last, res.Seq)
	assert.Equal(t, "c", res.Request.Region)
	assert.NotContains(t, startedNext[:len(startedNext)-1], "c")
}

func TestScheduler_CloseClosesResults(t *testing.T) {
	s := NewScheduler(context.Background(), newGatedRecomputer())
	s.Close()

	_, ok := <-s.Results()
	assert.False(t, ok)
}

func TestScheduler_WithPipeline(t *testing.T) {
	p := newTestPipeline(t, cumulativeModel())
	s := NewScheduler(context.Background(), p)
	t.Cleanup(s.Close)

	s.Submit(Request{Region: "atlantis"})
	res := <-s.Results()
	assert.Equal(t, OutcomeInvalidSelection, res.Outcome())

	s.Submit(Request{Region: "uk", State: InterventionState{RuminantLevel: 4, Basis: catalog.BasisProtein}})
	res = <-s.Results()
	require.NoError(t, res.Err)
	assert.True(t, res.Bundle.Status.ClimateAvailable)
}
