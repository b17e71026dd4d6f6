package catalogue

import "strings"

// Extract maps a page's raw items to records, preserving item order.
func Extract(items []RawItem) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, extractOne(item))
	}
	return records
}

func extractOne(item RawItem) Record {
	var title string
	if item.Title != nil {
		title = *item.Title
	}

	return Record{
		Title:        title,
		Year:         copyPtr(item.Aired.Prop.From.Year),
		Score:        copyPtr(item.Score),
		ScoredBy:     copyPtr(item.ScoredBy),
		Members:      copyPtr(item.Members),
		Rank:         copyPtr(item.Rank),
		Genres:       joinNames(item.Genres),
		Demographics: joinNames(item.Demographics),
	}
}

// copyPtr detaches the record from the decoded payload.
func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func joinNames(entries []NamedEntry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return strings.Join(names, ListSeparator)
}
