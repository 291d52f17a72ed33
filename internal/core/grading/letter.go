package grading

// letterThresholds is ordered descending; the first threshold at or below the
// score wins.
var letterThresholds = []struct {
	min    float64
	letter string
}{
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

func LetterGrade(score float64) string {
	for _, t := range letterThresholds {
		if score >= t.min {
			return t.letter
		}
	}
	return "F"
}
