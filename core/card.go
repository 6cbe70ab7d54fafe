package core

// Card is the caller supplied parameter set for one logical operation.
// Equal must report value equality; it is used to coalesce identical
// requests while an operation is still in flight.
type Card[C any] interface {
	Equal(other C) bool
}

// Cloner is implemented by mutable cards. The proxy keeps a private clone
// so that later mutation by the caller cannot corrupt an in-flight operation.
// Immutable cards do not need to implement it.
type Cloner[C any] interface {
	Clone() C
}

// CloneCard returns card.Clone() when the card implements Cloner and the
// card itself otherwise.
func CloneCard[C any](card C) C {
	if c, ok := any(card).(Cloner[C]); ok {
		return c.Clone()
	}

	return card
}
