package vm

// Property is both a stored property and a descriptor passed to
// DefineOwnProperty. Accessor properties carry Getter/Setter callables
// (or Undefined); data properties carry Value.
type Property struct {
	Value        Value
	Getter       Value
	Setter       Value
	Accessor     bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// DataProperty returns a writable, enumerable, configurable data property.
func DataProperty(v Value) Property {
	return Property{Value: v, Getter: Undefined, Setter: Undefined, Writable: true, Enumerable: true, Configurable: true}
}

// AccessorProperty returns a non-enumerable, non-configurable accessor.
func AccessorProperty(get, set Value) Property {
	return Property{Value: Undefined, Getter: get, Setter: set, Accessor: true}
}

func (p *Property) trace(t *Tracer) {
	t.Mark(p.Value)
	t.Mark(p.Getter)
	t.Mark(p.Setter)
}

// PropertyTable is a string-keyed property store that remembers insertion
// order for enumeration.
type PropertyTable struct {
	index map[string]int
	props []Property
	keys  []string
}

func (pt *PropertyTable) get(key string) (*Property, bool) {
	i, ok := pt.index[key]
	if !ok {
		return nil, false
	}
	return &pt.props[i], true
}

func (pt *PropertyTable) set(key string, p Property) {
	if p.Getter == 0 {
		p.Getter = Undefined
	}
	if p.Setter == 0 {
		p.Setter = Undefined
	}
	if p.Value == 0 && p.Accessor {
		p.Value = Undefined
	}
	if i, ok := pt.index[key]; ok {
		pt.props[i] = p
		return
	}
	if pt.index == nil {
		pt.index = make(map[string]int)
	}
	pt.index[key] = len(pt.props)
	pt.props = append(pt.props, p)
	pt.keys = append(pt.keys, key)
}

func (pt *PropertyTable) remove(key string) bool {
	i, ok := pt.index[key]
	if !ok {
		return false
	}
	delete(pt.index, key)
	pt.props = append(pt.props[:i], pt.props[i+1:]...)
	pt.keys = append(pt.keys[:i], pt.keys[i+1:]...)
	for j := i; j < len(pt.keys); j++ {
		pt.index[pt.keys[j]] = j
	}
	return true
}

// Len returns the number of properties.
func (pt *PropertyTable) Len() int {
	return len(pt.props)
}

func (pt *PropertyTable) enumerable() []string {
	keys := make([]string, 0, len(pt.keys))
	for i, k := range pt.keys {
		if pt.props[i].Enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

func (pt *PropertyTable) trace(t *Tracer) {
	for i := range pt.props {
		pt.props[i].trace(t)
	}
}
