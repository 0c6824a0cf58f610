package args

// Call is the raw argument list of one invocation.
// Named keeps call order; it matters for the var-keyword collector.
type Call struct {
	Positional []any
	Named      []Pair
}

// Of starts a call with the given positional values.
func Of(positional ...any) Call {
	return Call{Positional: positional}
}

// With returns a copy of c with one more named value appended.
func (c Call) With(name string, v any) Call {
	named := make([]Pair, len(c.Named), len(c.Named)+1)
	copy(named, c.Named)
	return Call{
		Positional: c.Positional,
		Named:      append(named, Pair{Name: name, Value: v}),
	}
}
