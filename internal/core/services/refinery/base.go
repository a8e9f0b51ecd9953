package refinery

// BaseRefinery is implemented by every text cleaning version. Versions are
// looked up through the registry so callers can switch by name.
type BaseRefinery interface {
	// Process cleans a single text value
	Process(text string) string

	// GetVersion returns the version identifier (e.g. "v1", "v2")
	GetVersion() string

	GetName() string
	GetDescription() string

	// GetPipelineSteps returns the enabled step names in execution order
	GetPipelineSteps() []string
}

// ProcessingStep is a single text transformation
type ProcessingStep func(string) string

// RefineryConfig holds the word lists and step flags of a refinery
type RefineryConfig struct {
	StopWords            []string `json:"stop_words"`
	MinLen               int      `json:"min_len"`
	SepChars             string   `json:"sep_chars"`
	SeparatorReplacement string   `json:"separator_replacement"`
	EntityPlaceholder    string   `json:"entity_placeholder"`

	MaskEntities             bool `json:"mask_entities"`
	StripAccents             bool `json:"strip_accents"`
	ReplaceSeparators        bool `json:"replace_separators"`
	RemoveSpecialChars       bool `json:"remove_special_chars"`
	RemoveMultipleWhitespace bool `json:"remove_multiple_whitespace"`
	MakeLowercase            bool `json:"make_lowercase"`
	RemoveStopWords          bool `json:"remove_stop_words"`
	RemoveWordsByMinLen      bool `json:"remove_words_by_min_len"`
}

// DefaultStopWords is a short English stop-word list
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "in", "is",
	"it", "of", "on", "or", "that", "the", "this", "to", "was", "with",
}

func applyCustomConfig(config *RefineryConfig, custom map[string]interface{}) {
	if v, ok := custom["stop_words"].([]string); ok {
		config.StopWords = v
	}
	if v, ok := custom["min_len"].(int); ok {
		config.MinLen = v
	}
	if v, ok := custom["min_len"].(float64); ok {
		config.MinLen = int(v)
	}
	if v, ok := custom["sep_chars"].(string); ok {
		config.SepChars = v
	}
	if v, ok := custom["separator_replacement"].(string); ok {
		config.SeparatorReplacement = v
	}
	if v, ok := custom["entity_placeholder"].(string); ok {
		config.EntityPlaceholder = v
	}

	flags := map[string]*bool{
		"mask_entities":              &config.MaskEntities,
		"strip_accents":              &config.StripAccents,
		"replace_separators":         &config.ReplaceSeparators,
		"remove_special_chars":       &config.RemoveSpecialChars,
		"remove_multiple_whitespace": &config.RemoveMultipleWhitespace,
		"make_lowercase":             &config.MakeLowercase,
		"remove_stop_words":          &config.RemoveStopWords,
		"remove_words_by_min_len":    &config.RemoveWordsByMinLen,
	}
	for key, target := range flags {
		if v, ok := custom[key].(bool); ok {
			*target = v
		}
	}
}
