package refinery

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	entityPattern     = regexp.MustCompile(`\b(Mr\.|Mrs\.|Dr\.|Prof\.|Sir)\s[\p{L}\p{N}_]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ProcessingNodes holds the individual text transformations. Each node is a
// no-op when its flag is off.
type ProcessingNodes struct {
	config    *RefineryConfig
	stopWords map[string]bool
}

// NewProcessingNodes creates the nodes for a config
func NewProcessingNodes(config *RefineryConfig) *ProcessingNodes {
	stopWords := make(map[string]bool, len(config.StopWords))
	for _, word := range config.StopWords {
		stopWords[strings.ToLower(word)] = true
	}

	return &ProcessingNodes{
		config:    config,
		stopWords: stopWords,
	}
}

// MaskEntities replaces honorific + name pairs such as "Dr. Smith"
func (p *ProcessingNodes) MaskEntities(text string) string {
	if !p.config.MaskEntities {
		return text
	}
	placeholder := p.config.EntityPlaceholder
	if placeholder == "" {
		placeholder = "<NAME>"
	}
	return entityPattern.ReplaceAllLiteralString(text, placeholder)
}

// StripAccents removes combining marks after NFD decomposition
func (p *ProcessingNodes) StripAccents(text string) string {
	if !p.config.StripAccents {
		return text
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return result
}

// ReplaceSeparators replaces separator characters
func (p *ProcessingNodes) ReplaceSeparators(text string) string {
	if !p.config.ReplaceSeparators {
		return text
	}

	result := text
	for _, sep := range p.config.SepChars {
		result = strings.ReplaceAll(result, string(sep), p.config.SeparatorReplacement)
	}
	return result
}

// RemoveSpecialChars keeps letters, digits and whitespace. Entity
// placeholders survive.
func (p *ProcessingNodes) RemoveSpecialChars(text string) string {
	if !p.config.RemoveSpecialChars {
		return text
	}

	placeholder := p.config.EntityPlaceholder
	if placeholder == "" {
		placeholder = "<NAME>"
	}

	parts := strings.Split(text, placeholder)
	for i, part := range parts {
		var b strings.Builder
		for _, r := range part {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				b.WriteRune(r)
			}
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, placeholder)
}

// RemoveMultipleWhitespace collapses runs of whitespace and trims
func (p *ProcessingNodes) RemoveMultipleWhitespace(text string) string {
	if !p.config.RemoveMultipleWhitespace {
		return text
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// MakeLowercase lowercases everything except entity placeholders
func (p *ProcessingNodes) MakeLowercase(text string) string {
	if !p.config.MakeLowercase {
		return text
	}
	placeholder := p.config.EntityPlaceholder
	if placeholder == "" {
		placeholder = "<NAME>"
	}
	parts := strings.Split(text, placeholder)
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, placeholder)
}

// RemoveStopWords drops words found in the stop-word list
func (p *ProcessingNodes) RemoveStopWords(text string) string {
	if !p.config.RemoveStopWords {
		return text
	}

	words := strings.Fields(text)
	filtered := words[:0]
	for _, word := range words {
		if !p.stopWords[strings.ToLower(word)] {
			filtered = append(filtered, word)
		}
	}
	return strings.Join(filtered, " ")
}

// RemoveWordsByMinLen drops words shorter than MinLen runes
func (p *ProcessingNodes) RemoveWordsByMinLen(text string) string {
	if !p.config.RemoveWordsByMinLen {
		return text
	}

	words := strings.Fields(text)
	filtered := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) >= p.config.MinLen {
			filtered = append(filtered, word)
		}
	}
	return strings.Join(filtered, " ")
}

// CountEntities reports how many honorific + name pairs text contains
func CountEntities(text string) int {
	return len(entityPattern.FindAllStringIndex(text, -1))
}
