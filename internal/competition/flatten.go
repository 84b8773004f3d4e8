package competition

import (
	"strconv"
	"strings"
)

// FlatRow is the denormalized projection of one ResultRow together with its
// parent record and group fields. It exists only in memory and in exported
// analysis files, never in result snapshots.
type FlatRow struct {
	URL         string  `json:"url"`
	Date        string  `json:"datum"`
	Location    string  `json:"plats"`
	Type        string  `json:"typ"`
	Class       string  `json:"klass"`
	Organizer   string  `json:"arrangör"`
	Coordinator string  `json:"anordnare"`
	Search      string  `json:"typ_av_sök"`
	Judges      string  `json:"domare"`
	Handler     string  `json:"förare"`
	DogCallName string  `json:"hund_namn"`
	DogFullName string  `json:"stamtavlenamn"`
	DogBreed    string  `json:"hundras"`
	StartNumber int     `json:"start_position"`
	Placement   int     `json:"placering"`
	Points      int     `json:"poäng"`
	Faults      int     `json:"fel"`
	Time        string  `json:"tid"`
	TimeSeconds float64 `json:"tid_sekunder,omitempty"`
}

// Flatten produces one FlatRow per ResultRow in the record, carrying the
// record- and group-level fields forward unchanged. A record with no result
// groups flattens to an empty slice.
func Flatten(rec *Record) []FlatRow {
	rows := make([]FlatRow, 0)
	if rec == nil {
		return rows
	}

	for _, group := range rec.Groups {
		judges := strings.Join(group.Judges, ", ")
		for _, r := range group.Rows {
			seconds, _ := TimeSeconds(r.Time)
			rows = append(rows, FlatRow{
				URL:         rec.URL,
				Date:        rec.Date,
				Location:    rec.Location,
				Type:        rec.Type,
				Class:       rec.Class,
				Organizer:   rec.Organizer,
				Coordinator: rec.Coordinator,
				Search:      group.Search,
				Judges:      judges,
				Handler:     r.Handler,
				DogCallName: r.DogCallName,
				DogFullName: r.DogFullName,
				DogBreed:    r.DogBreed,
				StartNumber: r.StartNumber,
				Placement:   r.Placement,
				Points:      r.Points,
				Faults:      r.Faults,
				Time:        r.Time,
				TimeSeconds: seconds,
			})
		}
	}

	return rows
}

// TimeSeconds converts a result time string to seconds. The site formats
// times as "m:ss,cc", "h:mm:ss" or a plain number, with a comma as the
// decimal separator. Returns false for empty or unparsable input.
func TimeSeconds(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, false
		}
		return v, true
	case 2:
		m, err1 := strconv.ParseFloat(parts[0], 64)
		sec, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return m*60 + sec, true
	case 3:
		h, err1 := strconv.ParseFloat(parts[0], 64)
		m, err2 := strconv.ParseFloat(parts[1], 64)
		sec, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, false
		}
		return h*3600 + m*60 + sec, true
	}
	return 0, false
}
