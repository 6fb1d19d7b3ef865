package stage

import "sync"

// Merge fans multiple InputPorts into one, for wiring more than one
// configured reduce stage onto a single storage stage (spec.md §6's
// "[[reducers]]" table is repeatable, but each storage backend exposes a
// single input port). The merged port closes once every source port has
// been drained and closed, preserving each source's own ordering while
// making no ordering guarantee across sources.
func Merge[T any](ins ...*InputPort[T]) *InputPort[T] {
	out := &InputPort[T]{ch: make(chan T, DefaultCapacity)}
	if len(ins) == 0 {
		close(out.ch)
		return out
	}

	var wg sync.WaitGroup
	wg.Add(len(ins))
	for _, in := range ins {
		in := in
		go func() {
			defer wg.Done()
			for v := range in.ch {
				out.ch <- v
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out.ch)
	}()
	return out
}
