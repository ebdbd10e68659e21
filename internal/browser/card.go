package browser

// Card is a grouped region of the document: one list tile or product tile
// with its descendant elements. Page implementations decide the grouping; the
// extractors only see the result. Pages with no recognizable card containers
// leave Cards empty and extractors fall back to flat link scans.
type Card struct {
	Class    string
	Text     string
	Elements []Element
}

// Find returns the first card element matching all predicates.
func (c *Card) Find(preds ...func(Element) bool) (Element, bool) {
	for _, el := range c.Elements {
		if matchAll(el, preds) {
			return el, true
		}
	}
	return Element{}, false
}

// FindAll returns every card element matching all predicates.
func (c *Card) FindAll(preds ...func(Element) bool) []Element {
	var out []Element
	for _, el := range c.Elements {
		if matchAll(el, preds) {
			out = append(out, el)
		}
	}
	return out
}
