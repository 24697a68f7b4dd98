package xmldoc

// Attr is a single attribute. Names may carry a literal prefix such as
// "xmlns:cc" or "xsi:type".
type Attr struct {
	Name  string
	Value string
}

// Element is a node in a document tree. An element has either text or
// children, never both.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// Document wraps the root element of one XML file.
type Document struct {
	Root *Element
}

// New returns a document rooted at root.
func New(root *Element) *Document {
	return &Document{Root: root}
}

// NewElement creates an empty element.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// Text creates an element holding text content.
func Text(name, value string) *Element {
	return &Element{Name: name, Text: value}
}

// WithAttr creates an empty element carrying one attribute.
func WithAttr(name, attr, value string) *Element {
	return &Element{Name: name, Attrs: []Attr{{Name: attr, Value: value}}}
}

// AttrText creates an element carrying one attribute and text content.
func AttrText(name, attr, value, text string) *Element {
	return &Element{Name: name, Attrs: []Attr{{Name: attr, Value: value}}, Text: text}
}

// Attr sets (or replaces) an attribute and returns e for chaining.
func (e *Element) Attr(name, value string) *Element {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// Add appends children, skipping nils, and returns e for chaining.
func (e *Element) Add(children ...*Element) *Element {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
	return e
}

