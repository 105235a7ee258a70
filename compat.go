package top

// CheckCompatibility checks that every atom and connection type in T can be
// written by an engine or format that only supports the accepted templates.
// It returns, for each type, the template it matches. The first type that
// matches none is returned as an *EngineIncompatibilityError.
func CheckCompatibility(T *Topology, accepted []*Template) (map[Potential]*Template, error) {
	ps := make([]Potential, 0)
	for _, at := range T.AtomTypes() {
		ps = append(ps, at)
	}
	for _, ct := range T.ConnectionTypes() {
		ps = append(ps, ct)
	}
	r := make(map[Potential]*Template, len(ps))
	for _, p := range ps {
		found := false
		for _, t := range accepted {
			if t.valid() && t.Matches(p) {
				r[p] = t
				found = true
				break
			}
		}
		if !found {
			err := &EngineIncompatibilityError{Potential: p.Name(), Expression: p.base().Expression()}
			err.Decorate("CheckCompatibility")
			return nil, err
		}
	}
	return r, nil
}
