package notifications

// Filter is a subset of event Kinds a subscriber wants to receive. The zero
// Filter matches nothing; use NewFilter or All to build one.
type Filter map[Kind]struct{}

// NewFilter builds a Filter matching exactly the given kinds.
func NewFilter(kinds ...Kind) Filter {
	f := make(Filter, len(kinds))
	for _, k := range kinds {
		f[k] = struct{}{}
	}
	return f
}

// All returns a Filter matching every known Kind.
func All() Filter {
	return NewFilter(KindSystem, KindScan, KindQueue, KindPlugin)
}

// Matches reports whether the event's Kind is in the filter.
func (f Filter) Matches(e Event) bool {
	_, ok := f[e.Kind]
	return ok
}
