// Package hsk holds the fixed HSK exam layouts: total question count per
// level and the orderNo ranges that partition the paper into skill sections.
package hsk

import "fmt"

// Section title markers used on parent question labels. An explicit marker
// in the label wins over the numeric-range fallback.
const (
	MarkerListening = "听力"
	MarkerReading   = "阅读"
	MarkerWriting   = "写作"
)

// Template describes one fixed HSK paper layout. Slots 1..ListeningEnd are
// listening, ..ReadingEnd reading, the rest writing.
type Template struct {
	Level        string
	Total        int
	ListeningEnd int
	ReadingEnd   int
}

var templates = map[string]Template{
	"HSK2": {Level: "HSK2", Total: 80, ListeningEnd: 35, ReadingEnd: 70},
}

// TemplateForLevel returns the fixed layout for a level, if one is defined.
// Levels without a registered template must use the free-form edit flow.
func TemplateForLevel(level string) (Template, bool) {
	t, ok := templates[level]
	return t, ok
}

// SectionTypeFor partitions an order number into a skill by range.
func (t Template) SectionTypeFor(orderNo int) string {
	switch {
	case orderNo >= 1 && orderNo <= t.ListeningEnd:
		return "listening"
	case orderNo <= t.ReadingEnd:
		return "reading"
	default:
		return "writing"
	}
}

// PlaceholderLabel builds the parent label used when a slot was not supplied
// by the upload, e.g. "HSK 2 - 听力 - Câu 12".
func (t Template) PlaceholderLabel(orderNo int) string {
	marker := MarkerListening
	switch t.SectionTypeFor(orderNo) {
	case "reading":
		marker = MarkerReading
	case "writing":
		marker = MarkerWriting
	}
	return fmt.Sprintf("HSK %s - %s - Câu %d", t.Level[3:], marker, orderNo)
}
