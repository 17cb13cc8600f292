package record

// Attr is one named attribute of a record.
type Attr struct {
	Name  string
	Value Value
}

// Record is a named, typed, attribute-bearing unit of scene data. Two records
// sharing a name are assumed to carry identical content.
type Record struct {
	Name  string
	Type  string
	attrs []Attr
	index map[string]int
}

// New creates an empty record.
func New(typ, name string) *Record {
	return &Record{Name: name, Type: typ, index: make(map[string]int)}
}

// Set assigns an attribute, keeping its original position when it already
// exists. It returns r for chaining.
func (r *Record) Set(name string, v Value) *Record {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.attrs[i].Value = v
		return r
	}
	r.index[name] = len(r.attrs)
	r.attrs = append(r.attrs, Attr{Name: name, Value: v})
	return r
}

// Get returns the attribute value by name.
func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.attrs[i].Value, true
}

// Attrs returns the attributes in insertion order. The slice must not be
// modified.
func (r *Record) Attrs() []Attr {
	return r.attrs
}

// Len returns the number of attributes.
func (r *Record) Len() int {
	return len(r.attrs)
}

// Clone returns a copy whose attribute table can be modified independently.
// Values themselves are shared.
func (r *Record) Clone() *Record {
	c := New(r.Type, r.Name)
	for _, a := range r.attrs {
		c.Set(a.Name, a.Value)
	}
	return c
}
