package wpml

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

import (
	"github.com/beevik/etree"
)

func is_wpml(e *etree.Element) bool {
	return e.Space == "wpml" || strings.HasPrefix(e.NamespaceURI(), WPMLNamespacePrefix)
}

// children yields the child elements of el with local name tag, taken from
// the WPML namespace when wpml is set and from anything else otherwise.
func children(el *etree.Element, wpml bool, tag string) iter.Seq[*etree.Element] {
	return func(yield func(*etree.Element) bool) {
		if el == nil {
			return
		}
		for _, c := range el.ChildElements() {
			if c.Tag == tag && is_wpml(c) == wpml {
				if !yield(c) {
					return
				}
			}
		}
	}
}

func child(el *etree.Element, wpml bool, tag string) *etree.Element {
	for c := range children(el, wpml, tag) {
		return c
	}
	return nil
}

func text_of(el *etree.Element, tag string) (string, bool) {
	c := child(el, true, tag)
	if c == nil {
		return "", false
	}
	s := strings.TrimSpace(c.Text())
	return s, s != ""
}

func float_of(el *etree.Element, tag string) (float64, bool, error) {
	s, ok := text_of(el, tag)
	if !ok {
		return 0, false, nil
	}
	v, err := parse_float(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q", ErrInvalidCoordinate, tag, s)
	}
	return v, true, nil
}

// parse_float is strconv.ParseFloat that also refuses NaN and infinities.
func parse_float(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func int_of(el *etree.Element, tag string) (int, bool, error) {
	s, ok := text_of(el, tag)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q", ErrInvalidCoordinate, tag, s)
	}
	return v, true, nil
}

func entries_of(el *etree.Element) []ConfigEntry {
	var ents []ConfigEntry
	for _, c := range el.ChildElements() {
		if len(c.ChildElements()) > 0 {
			continue
		}
		if s := strings.TrimSpace(c.Text()); s != "" {
			ents = append(ents, ConfigEntry{Key: c.Tag, Value: s})
		}
	}
	return ents
}
