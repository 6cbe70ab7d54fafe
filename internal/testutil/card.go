package testutil

// LoginCard is the request card of the login scenario.
type LoginCard struct {
	User string
	Pass string
}

// Equal implements core.Card.
func (c LoginCard) Equal(other LoginCard) bool { return c == other }

// ScopedCard is a mutable card that implements core.Cloner.
type ScopedCard struct {
	User   string
	Scopes []string
}

// Equal implements core.Card.
func (c *ScopedCard) Equal(other *ScopedCard) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.User != other.User || len(c.Scopes) != len(other.Scopes) {
		return false
	}
	for i := range c.Scopes {
		if c.Scopes[i] != other.Scopes[i] {
			return false
		}
	}
	return true
}

// Clone implements core.Cloner.
func (c *ScopedCard) Clone() *ScopedCard {
	return &ScopedCard{User: c.User, Scopes: append([]string(nil), c.Scopes...)}
}
