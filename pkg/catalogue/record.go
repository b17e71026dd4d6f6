package catalogue

import "strconv"

// ListSeparator joins multi-valued labels into one text field. Downstream
// analysis splits on exactly this string.
const ListSeparator = ", "

// Columns is the header of the persisted dataset, in order.
var Columns = []string{
	"title",
	"year",
	"score",
	"scored_by",
	"members",
	"rank",
	"genres",
	"demographics",
}

// Record is one normalized catalogue entry. A nil pointer means the value
// was absent (null or missing) upstream, which is not the same as zero.
type Record struct {
	Title    string
	Year     *int
	Score    *float64
	ScoredBy *int
	Members  *int // popularity proxy
	Rank     *int

	// Genres and Demographics are the source label lists joined with
	// ListSeparator, in source order.
	Genres       string
	Demographics string
}

// Row renders the record in Columns order. Absent values become empty fields.
func (r Record) Row() []string {
	return []string{
		r.Title,
		formatInt(r.Year),
		formatFloat(r.Score),
		formatInt(r.ScoredBy),
		formatInt(r.Members),
		formatInt(r.Rank),
		r.Genres,
		r.Demographics,
	}
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
