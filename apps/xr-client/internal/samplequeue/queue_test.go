package samplequeue

import "testing"

type recordingPool struct {
	released []Sample
}

func (p *recordingPool) Release(s Sample) { p.released = append(p.released, s) }

func TestPublishReturnsDisplacedSample(t *testing.T) {
	pool := &recordingPool{}
	q := New(pool)

	q.Publish(Sample{FrameSequenceID: 1})
	q.Publish(Sample{FrameSequenceID: 2})

	if len(pool.released) != 1 || pool.released[0].FrameSequenceID != 1 {
		t.Fatalf("expected sample 1 released on displacement, got %+v", pool.released)
	}

	s, ok := q.TryPull()
	if !ok || s.FrameSequenceID != 2 {
		t.Fatalf("expected to pull sample 2, got %+v ok=%v", s, ok)
	}
}

func TestTryPullEmpty(t *testing.T) {
	q := New(&recordingPool{})
	if _, ok := q.TryPull(); ok {
		t.Fatal("expected no sample pending")
	}
}

func TestHandBackReleasesToPool(t *testing.T) {
	pool := &recordingPool{}
	q := New(pool)

	q.Publish(Sample{FrameSequenceID: 5})
	s, ok := q.TryPull()
	if !ok {
		t.Fatal("expected a pending sample")
	}
	q.HandBack(s)

	if len(pool.released) != 1 || pool.released[0].FrameSequenceID != 5 {
		t.Fatalf("expected sample 5 released via hand-back, got %+v", pool.released)
	}
}

func TestQueueNeverHoldsMoreThanOnePending(t *testing.T) {
	pool := &recordingPool{}
	q := New(pool)

	for i := uint64(1); i <= 10; i++ {
		q.Publish(Sample{FrameSequenceID: i})
	}

	s, ok := q.TryPull()
	if !ok || s.FrameSequenceID != 10 {
		t.Fatalf("expected only the latest sample (10) to survive, got %+v", s)
	}
	if _, ok := q.TryPull(); ok {
		t.Fatal("expected queue to be empty after single pull")
	}
}
