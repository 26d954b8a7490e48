package domain

// Classification is a parsed spot together with the rule that produced it.
type Classification struct {
	Category Category
	Dialect  Dialect
	Spot     Spot
}

// Parse classifies line with the default registry and returns the spot.
//
// A line no rule matches yields an *UnrecognizedError; a matched line with a
// field that does not convert yields a *MalformedFieldError. Both can be
// tested with errors.Is against ErrUnrecognized and ErrMalformedField.
func Parse(line string) (Spot, error) {
	return DefaultRegistry.Parse(line)
}

// Classify is Parse that also reports the matching dialect.
func Classify(line string) (Classification, error) {
	return DefaultRegistry.Classify(line)
}

// Parse classifies line against r. See the package-level Parse.
func (r *Registry) Parse(line string) (Spot, error) {
	c, err := r.Classify(line)
	if err != nil {
		return nil, err
	}
	return c.Spot, nil
}

// Classify trims line, finds the first matching rule and runs its extractor.
func (r *Registry) Classify(line string) (Classification, error) {
	m, ok := r.Match(line)
	if !ok {
		return Classification{}, &UnrecognizedError{Line: line}
	}
	spot, err := m.rule.extract(m.Captures)
	if err != nil {
		return Classification{}, err
	}
	return Classification{Category: m.Category, Dialect: m.Dialect, Spot: spot}, nil
}
