package argparams

// Parse splits text into positional arguments and parameters.
//
// The returned error is always a parameter file failure (see FileError).
// In that case the Result is still returned and holds everything collected
// before the failing file.
func Parse(text string, opts Options) (*Result, error) {
	p := &parser{
		opts:   opts.withDefaults(),
		params: newMap(opts.IgnoreCase),
	}
	result := &Result{Text: text, Params: p.params}

	pos := 0
	for {
		pos = skipSpace(text, pos)
		if pos >= len(text) {
			break
		}

		if !isStarter(text[pos]) {
			var arg string
			arg, pos = scanValue(text, pos)
			result.Arguments = append(result.Arguments, arg)
			continue
		}

		var key, value string
		key, value, pos = scanParameter(text, pos)
		if err := p.add(key, value, 0); err != nil {
			return result, err
		}
	}

	return result, nil
}

// scanParameter reads a parameter whose starter is at pos.
func scanParameter(text string, pos int) (key, value string, next int) {
	key, pos = scanKey(text, pos+1)
	pos = skipSpace(text, pos)

	// Ran into the end or the next parameter: no value
	if pos >= len(text) || isStarter(text[pos]) {
		return key, "", pos
	}

	if isValueSeparator(text[pos]) {
		pos = skipSpace(text, pos+1)
	}

	value, pos = scanValue(text, pos)
	return key, value, pos
}

type parser struct {
	opts   Options
	params *Map
}

// add stores a key/value pair. depth is the parameter file nesting level the
// pair was read at (0 for the raw text).
func (p *parser) add(key, value string, depth int) error {
	if existing, ok := p.params.Get(key); ok {
		p.params.set(key, p.opts.Merge.merge(existing, value))
		return nil
	}

	if p.isFileKey(key) {
		return p.expand(value, depth+1)
	}

	p.params.set(key, value)
	return nil
}

func (p *parser) isFileKey(key string) bool {
	for _, fileKey := range p.opts.FileKeys {
		if p.params.equalKeys(key, fileKey) {
			return true
		}
	}
	return false
}
