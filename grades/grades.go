package grades

// Assessment is one graded component of a course (mid exam, project, ...).
type Assessment struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// Grade is a course's final record for a term as returned by the scrape backend.
// AcademicYear, Year and Semester are optional and may be missing or inconsistent.
type Grade struct {
	No           string       `json:"no"`
	CourseTitle  string       `json:"courseTitle"`
	Code         string       `json:"code"`
	CreditHour   string       `json:"creditHour"`
	ECTS         string       `json:"ects"`
	Grade        string       `json:"grade"`
	AcademicYear string       `json:"academicYear,omitempty"`
	Year         string       `json:"year,omitempty"`
	Semester     string       `json:"semester,omitempty"`
	Assessments  []Assessment `json:"assessments"`
}

// Clone returns a deep copy of gs so callers can't mutate a shared snapshot.
func Clone(gs []Grade) []Grade {
	if gs == nil {
		return nil
	}
	out := make([]Grade, len(gs))
	for i, g := range gs {
		out[i] = g
		if g.Assessments != nil {
			out[i].Assessments = make([]Assessment, len(g.Assessments))
			copy(out[i].Assessments, g.Assessments)
		}
	}
	return out
}
