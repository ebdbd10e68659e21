package browser

import "strings"

// Element is one node of a snapshot: enough attribute surface for the
// extractors' fallback strategies, nothing more.
type Element struct {
	Tag       string
	ID        string
	Class     string
	Text      string
	Href      string
	Src       string
	AriaLabel string
}

// Snapshot is the opaque structured-data view of a loaded document.
type Snapshot struct {
	URL      string
	Title    string
	BodyText string
	Elements []Element
	Cards    []Card
}

// Find returns the first element matching all predicates.
func (s *Snapshot) Find(preds ...func(Element) bool) (Element, bool) {
	for _, el := range s.Elements {
		if matchAll(el, preds) {
			return el, true
		}
	}
	return Element{}, false
}

// FindAll returns every element matching all predicates, in document order.
func (s *Snapshot) FindAll(preds ...func(Element) bool) []Element {
	var out []Element
	for _, el := range s.Elements {
		if matchAll(el, preds) {
			out = append(out, el)
		}
	}
	return out
}

func matchAll(el Element, preds []func(Element) bool) bool {
	for _, p := range preds {
		if !p(el) {
			return false
		}
	}
	return true
}

// WithTag matches elements whose tag is any of the given names.
func WithTag(tags ...string) func(Element) bool {
	return func(el Element) bool {
		for _, t := range tags {
			if strings.EqualFold(el.Tag, t) {
				return true
			}
		}
		return false
	}
}

// WithClassContains matches elements whose class attribute contains the
// fragment, case-insensitive.
func WithClassContains(fragment string) func(Element) bool {
	lower := strings.ToLower(fragment)
	return func(el Element) bool {
		return strings.Contains(strings.ToLower(el.Class), lower)
	}
}

// WithHrefContains matches links whose href contains the fragment.
func WithHrefContains(fragment string) func(Element) bool {
	return func(el Element) bool {
		return el.Href != "" && strings.Contains(el.Href, fragment)
	}
}

// WithAriaContains matches elements whose aria-label contains the fragment,
// case-insensitive.
func WithAriaContains(fragment string) func(Element) bool {
	lower := strings.ToLower(fragment)
	return func(el Element) bool {
		return strings.Contains(strings.ToLower(el.AriaLabel), lower)
	}
}

// WithText matches elements with non-empty trimmed text.
func WithText() func(Element) bool {
	return func(el Element) bool {
		return strings.TrimSpace(el.Text) != ""
	}
}
