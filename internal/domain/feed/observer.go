package feed

// Observer is notified after the store has committed a visible state
// change and before the originating call returns. Indices refer to
// positions in the local collection after the mutation has been applied.
// The store does not own the observer; implementations must not call
// back into the store synchronously.
type Observer interface {
	// Reloaded fires when the whole collection was replaced or cleared.
	Reloaded()
	Inserted(indices []int)
	Updated(indices []int)
	Deleted(indices []int)
}

// NopObserver is an Observer that ignores every event.
type NopObserver struct{}

func (NopObserver) Reloaded()        {}
func (NopObserver) Inserted(_ []int) {}
func (NopObserver) Updated(_ []int)  {}
func (NopObserver) Deleted(_ []int)  {}
