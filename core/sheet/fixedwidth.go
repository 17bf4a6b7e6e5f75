package sheet

import "github.com/morris0411/ManavisGradesApp/core"

// span is a half-open rune range; to < 0 runs to the end of the value.
type span struct{ from, to int }

// choiceLayout is the fixed-width packing of a choice cell:
// university, faculty, department.
var choiceLayout = [3]span{{0, 10}, {10, 20}, {20, -1}}

// SplitChoice cuts a packed choice cell into university, faculty and department
// names, with all whitespace removed from each part.
func SplitChoice(cell string) (university, faculty, department string) {
	runes := []rune(cell)
	parts := [3]string{}
	for i, sp := range choiceLayout {
		parts[i] = core.StripSpaces(sliceRunes(runes, sp))
	}
	return parts[0], parts[1], parts[2]
}

func sliceRunes(runes []rune, sp span) string {
	from, to := sp.from, sp.to
	if to < 0 || to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
