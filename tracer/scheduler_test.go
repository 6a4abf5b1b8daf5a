package tracer

import "testing"

func TestNaiveScheduler(t *testing.T) {
	type spec struct {
		speed1, speed2     uint32
		totalTiles         uint32
		expTiles1, expTiles2 uint32
	}
	specs := []spec{
		{1, 2, 9, 3, 6},
		{2, 1, 9, 6, 3},
		{1, 1000, 10, 1, 9},
	}

	for index, s := range specs {
		tr1 := newMockTracer("mock-1", s.speed1)
		tr2 := newMockTracer("mock-2", s.speed2)
		tracers := []Tracer{tr1, tr2}

		sch := NaiveScheduler()
		assignment := sch.Schedule(tracers, s.totalTiles)

		if assignment[0] != s.expTiles1 {
			t.Fatalf("[spec %d] expected tracer 0 to be assigned %d tiles; got %d", index, s.expTiles1, assignment[0])
		}
		if assignment[1] != s.expTiles2 {
			t.Fatalf("[spec %d] expected tracer 1 to be assigned %d tiles; got %d", index, s.expTiles2, assignment[1])
		}
	}
}

func TestPerfectScheduler(t *testing.T) {
	type spec struct {
		totalTiles         uint32
		batchTime1, batchTime2 int64
		expTiles1, expTiles2 uint32
	}
	specs := []spec{
		// First call behaves like the naive scheduler (equal speed estimates).
		{10, 1, 5, 5, 5},
		// Second call uses the previous batch's throughput.
		{10, 1, 5, 9, 1},
		// Tracer 2 performed much better this time.
		{10, 5, 1, 7, 3},
	}

	tr1 := newMockTracer("mock-1", 1)
	tr2 := newMockTracer("mock-2", 1)
	tracers := []Tracer{tr1, tr2}

	sch := PerfectScheduler()
	for index, s := range specs {
		tr1.stats.BatchTime = s.batchTime1
		tr2.stats.BatchTime = s.batchTime2

		assignment := sch.Schedule(tracers, s.totalTiles)

		if assignment[0] != s.expTiles1 {
			t.Fatalf("[spec %d] expected tracer 0 to be assigned %d tiles; got %d", index, s.expTiles1, assignment[0])
		}
		if assignment[1] != s.expTiles2 {
			t.Fatalf("[spec %d] expected tracer 1 to be assigned %d tiles; got %d", index, s.expTiles2, assignment[1])
		}

		tr1.stats.TileCount = assignment[0]
		tr2.stats.TileCount = assignment[1]
	}
}

type mockTracer struct {
	id    string
	speed uint32
	stats *Stats
}

func newMockTracer(id string, speed uint32) *mockTracer {
	return &mockTracer{id: id, speed: speed, stats: &Stats{}}
}

func (mt *mockTracer) Id() string                                  { return mt.id }
func (mt *mockTracer) Close()                                      {}
func (mt *mockTracer) SpeedEstimate() float32                      { return float32(mt.speed) }
func (mt *mockTracer) Setup(uint32, uint32, []float32, []uint8) error { return nil }
func (mt *mockTracer) Enqueue(TileRequest)                         {}
func (mt *mockTracer) AppendChange(ChangeType, interface{})        {}
func (mt *mockTracer) ApplyPendingChanges() error                  { return nil }
func (mt *mockTracer) Stats() *Stats                               { return mt.stats }
