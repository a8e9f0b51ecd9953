package refinery

// namedStep pairs a step with the flag that enables it
type namedStep struct {
	name    string
	enabled bool
	step    ProcessingStep
}

// StandardRefinery runs the enabled processing nodes in a fixed order
type StandardRefinery struct {
	version     string
	name        string
	description string
	config      *RefineryConfig
	steps       []namedStep
}

func newStandardRefinery(version, name, description string, config *RefineryConfig, custom map[string]interface{}) *StandardRefinery {
	if custom != nil {
		applyCustomConfig(config, custom)
	}

	nodes := NewProcessingNodes(config)
	steps := []namedStep{
		{"mask_entities", config.MaskEntities, nodes.MaskEntities},
		{"strip_accents", config.StripAccents, nodes.StripAccents},
		{"replace_separators", config.ReplaceSeparators, nodes.ReplaceSeparators},
		{"remove_special_chars", config.RemoveSpecialChars, nodes.RemoveSpecialChars},
		{"remove_multiple_whitespace", config.RemoveMultipleWhitespace, nodes.RemoveMultipleWhitespace},
		{"make_lowercase", config.MakeLowercase, nodes.MakeLowercase},
		{"remove_stop_words", config.RemoveStopWords, nodes.RemoveStopWords},
		{"remove_words_by_min_len", config.RemoveWordsByMinLen, nodes.RemoveWordsByMinLen},
	}

	return &StandardRefinery{
		version:     version,
		name:        name,
		description: description,
		config:      config,
		steps:       steps,
	}
}

// NewEntityRefinery masks person names and collapses whitespace, leaving the
// rest of the text untouched
func NewEntityRefinery(custom map[string]interface{}) *StandardRefinery {
	config := &RefineryConfig{
		EntityPlaceholder:        "<NAME>",
		MaskEntities:             true,
		RemoveMultipleWhitespace: true,
	}
	return newStandardRefinery("v1", "Entity Masking",
		"Replaces titled person names (Mr., Mrs., Dr., Prof., Sir) with a placeholder",
		config, custom)
}

// NewNormalizingRefinery produces lowercase, accent-free tokens for modelling
func NewNormalizingRefinery(custom map[string]interface{}) *StandardRefinery {
	config := &RefineryConfig{
		StopWords:                DefaultStopWords,
		MinLen:                   2,
		SepChars:                 ".,-/+&|_",
		SeparatorReplacement:     " ",
		EntityPlaceholder:        "<NAME>",
		MaskEntities:             true,
		StripAccents:             true,
		ReplaceSeparators:        true,
		RemoveSpecialChars:       true,
		RemoveMultipleWhitespace: true,
		MakeLowercase:            true,
		RemoveStopWords:          true,
		RemoveWordsByMinLen:      true,
	}
	return newStandardRefinery("v2", "Text Normalization",
		"Entity masking, accent stripping, separator and symbol removal, lowercasing and stop-word filtering",
		config, custom)
}

// Process runs text through every enabled step
func (r *StandardRefinery) Process(text string) string {
	for _, s := range r.steps {
		if s.enabled {
			text = s.step(text)
		}
	}
	return text
}

// GetVersion returns the version identifier
func (r *StandardRefinery) GetVersion() string {
	return r.version
}

// GetName returns the human-readable name
func (r *StandardRefinery) GetName() string {
	return r.name
}

// GetDescription returns what this refinery does
func (r *StandardRefinery) GetDescription() string {
	return r.description
}

// GetPipelineSteps returns the enabled step names
func (r *StandardRefinery) GetPipelineSteps() []string {
	names := make([]string, 0, len(r.steps))
	for _, s := range r.steps {
		if s.enabled {
			names = append(names, s.name)
		}
	}
	return names
}
