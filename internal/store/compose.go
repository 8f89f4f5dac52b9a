package store

// Enhancer wraps store construction. It receives the next Creator and
// returns a Creator that may decorate or replace the store it builds.
type Enhancer func(next Creator) Creator

// Identity is the pass-through Enhancer.
func Identity(next Creator) Creator {
	return next
}

// Compose chains enhancers outermost first: Compose(a, b)(c) is a(b(c)).
// Nil entries are skipped; Compose() is Identity.
func Compose(enhancers ...Enhancer) Enhancer {
	live := make([]Enhancer, 0, len(enhancers))
	for _, e := range enhancers {
		if e != nil {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return Identity
	}

	return func(next Creator) Creator {
		c := next
		for i := len(live) - 1; i >= 0; i-- {
			c = live[i](c)
		}
		return c
	}
}
