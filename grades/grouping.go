package grades

import "sort"

const (
	UnknownYear     = "Unknown Year"
	UnknownSemester = "Unknown Semester"
)

type SemesterGroup struct {
	Semester string
	Grades   []Grade
}

type YearGroup struct {
	AcademicYear string
	Semesters    []SemesterGroup
}

// GroupByTerm buckets grades by academic year then semester. Records without a
// year or semester go to the Unknown buckets, never dropped. Years are ordered
// newest first, semesters ascending, and the Unknown buckets always sort last.
// Grades keep their input order inside a semester.
func GroupByTerm(gs []Grade) []YearGroup {
	byYear := make(map[string]map[string][]Grade)
	for _, g := range gs {
		year := g.AcademicYear
		if year == "" {
			year = UnknownYear
		}
		semester := g.Semester
		if semester == "" {
			semester = UnknownSemester
		}
		if _, ok := byYear[year]; !ok {
			byYear[year] = make(map[string][]Grade)
		}
		byYear[year][semester] = append(byYear[year][semester], g)
	}

	years := make([]string, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool {
		if years[i] == UnknownYear || years[j] == UnknownYear {
			return years[j] == UnknownYear && years[i] != UnknownYear
		}
		return years[i] > years[j]
	})

	groups := make([]YearGroup, 0, len(years))
	for _, year := range years {
		semesters := make([]string, 0, len(byYear[year]))
		for semester := range byYear[year] {
			semesters = append(semesters, semester)
		}
		sort.Slice(semesters, func(i, j int) bool {
			if semesters[i] == UnknownSemester || semesters[j] == UnknownSemester {
				return semesters[j] == UnknownSemester && semesters[i] != UnknownSemester
			}
			return semesters[i] < semesters[j]
		})

		yg := YearGroup{AcademicYear: year}
		for _, semester := range semesters {
			yg.Semesters = append(yg.Semesters, SemesterGroup{Semester: semester, Grades: byYear[year][semester]})
		}
		groups = append(groups, yg)
	}
	return groups
}

// AcademicYears lists the distinct years in display order (see GroupByTerm).
func AcademicYears(gs []Grade) []string {
	groups := GroupByTerm(gs)
	years := make([]string, len(groups))
	for i, g := range groups {
		years[i] = g.AcademicYear
	}
	return years
}
