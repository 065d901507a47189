package pipeline

import "testing"

type doublerStation struct{}

func (doublerStation) Name() string { return "doubler" }
func (doublerStation) Process(in int) (*int, error) {
	out := in * 2
	return &out, nil
}
func (doublerStation) Shutdown() *int { return nil }

type evenFilterStation struct{}

func (evenFilterStation) Name() string { return "even-filter" }
func (evenFilterStation) Process(in int) (*int, error) {
	if in%2 != 0 {
		return nil, nil
	}
	out := in
	return &out, nil
}
func (evenFilterStation) Shutdown() *int { return nil }

type failingStation struct {
	failOn  int
	seen    int
	lastOut *int
}

func (s *failingStation) Name() string { return "failing" }
func (s *failingStation) Process(in int) (*int, error) {
	s.seen++
	if s.seen == s.failOn {
		return nil, Recoverable("synthetic failure at message %d", in)
	}
	out := in
	return &out, nil
}
func (s *failingStation) Shutdown() *int { return s.lastOut }

func drain(ch <-chan int) []int {
	var out []int
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func TestRunStationProcessesInOrder(t *testing.T) {
	in := make(chan int, 4)
	out := make(chan int, 4)
	for _, v := range []int{1, 2, 3} {
		in <- v
	}
	close(in)

	RunStation[int, int](doublerStation{}, in, out, &CollectingReporter{})

	got := drain(out)
	want := []int{2, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRunStationFiltersNoneOutputs(t *testing.T) {
	in := make(chan int, 5)
	out := make(chan int, 5)
	for _, v := range []int{1, 2, 3, 4, 5} {
		in <- v
	}
	close(in)

	RunStation[int, int](evenFilterStation{}, in, out, &CollectingReporter{})

	got := drain(out)
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("got %v, want [2 4]", got)
	}
}

func TestRunStationContinuesAfterRecoverableError(t *testing.T) {
	in := make(chan int, 3)
	out := make(chan int, 3)
	for _, v := range []int{10, 20, 30} {
		in <- v
	}
	close(in)

	reporter := &CollectingReporter{}
	RunStation[int, int](&failingStation{failOn: 2}, in, out, reporter)

	got := drain(out)
	if len(got) != 2 || got[0] != 10 || got[1] != 30 {
		t.Fatalf("got %v, want [10 30] (message 2 dropped)", got)
	}
	if len(reporter.All()) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(reporter.All()))
	}
}

type fatalStation struct {
	failOn int
	seen   int
}

func (s *fatalStation) Name() string { return "fatal" }
func (s *fatalStation) Process(in int) (*int, error) {
	s.seen++
	if s.seen == s.failOn {
		return nil, Fatal("unrecoverable condition at message %d", in)
	}
	out := in
	return &out, nil
}
func (s *fatalStation) Shutdown() *int { return nil }

func TestRunStationStopsOnFatalError(t *testing.T) {
	in := make(chan int, 5)
	out := make(chan int, 5)
	for _, v := range []int{1, 2, 3, 4, 5} {
		in <- v
	}
	close(in)

	reporter := &CollectingReporter{}
	RunStation[int, int](&fatalStation{failOn: 2}, in, out, reporter)

	got := drain(out)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1] (stage exits at message 2)", got)
	}
	reports := reporter.All()
	if len(reports) != 1 || reports[0].Kind != KindFatal {
		t.Fatalf("reports = %v, want one fatal report", reports)
	}
}

func TestRunStationClosesOutputOnInputClose(t *testing.T) {
	in := make(chan int)
	out := make(chan int)
	close(in)

	done := make(chan struct{})
	go func() {
		RunStation[int, int](doublerStation{}, in, out, &CollectingReporter{})
		close(done)
	}()
	if _, ok := <-out; ok {
		t.Fatal("expected output channel to be closed with no values")
	}
	<-done
}

func TestRunStationCallsShutdownFinalOutput(t *testing.T) {
	in := make(chan int)
	out := make(chan int, 1)
	close(in)

	final := 99
	station := &failingStation{failOn: -1, lastOut: &final}
	RunStation[int, int](station, in, out, &CollectingReporter{})

	got := drain(out)
	if len(got) != 1 || got[0] != 99 {
		t.Fatalf("got %v, want [99] from Shutdown", got)
	}
}
