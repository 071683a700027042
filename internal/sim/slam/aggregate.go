package slam

// Merge combines two beliefs about the same cell: Solid dominates, then any
// observation beats Unseen. It is commutative, associative and idempotent.
func Merge(a, b Status) Status {
	if a == Solid || b == Solid {
		return Solid
	}
	if a == Open || b == Open {
		return Open
	}
	return Unseen
}

// AggregateOptimistic folds a block of cells: Solid if any is Solid, else
// Open if any is Open, else Unseen.
func AggregateOptimistic(statuses ...Status) Status {
	out := Unseen
	for _, s := range statuses {
		out = Merge(out, s)
	}
	return out
}

// AggregatePessimistic folds a block of cells: Solid if any is Solid, else
// Unseen if any is Unseen, else Open. An empty block is Unseen.
func AggregatePessimistic(statuses ...Status) Status {
	if len(statuses) == 0 {
		return Unseen
	}
	out := Open
	for _, s := range statuses {
		switch {
		case s == Solid:
			return Solid
		case s == Unseen:
			out = Unseen
		}
	}
	return out
}
