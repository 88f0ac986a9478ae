package grades

import (
	"sort"
	"strconv"
	"strings"
)

// gradePoints maps letter grades onto the 4.0 scale used by the portal.
var gradePoints = map[string]float64{
	"A+": 4.0,
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D":  1.0,
	"F":  0.0,
}

// GradePoint returns the grade point of a letter grade. ok is false for letters
// that don't count towards GPA (NG, I, W, ...).
func GradePoint(letter string) (point float64, ok bool) {
	point, ok = gradePoints[strings.ToUpper(strings.TrimSpace(letter))]
	return point, ok
}

// Credit parses the credit hour of g. ok is false when it is missing, malformed
// or not positive.
func Credit(g Grade) (credit float64, ok bool) {
	credit, err := strconv.ParseFloat(strings.TrimSpace(g.CreditHour), 64)
	if err != nil || credit <= 0 {
		return 0, false
	}
	return credit, true
}

// YearGPA is the credit weighted GPA for one academic year.
type YearGPA struct {
	AcademicYear string
	GPA          float64
	Credits      float64
}

// GPAByYear computes the yearly GPA trend, oldest year first. Grades without an
// academic year, a counted letter or a positive credit are skipped.
func GPAByYear(gs []Grade) []YearGPA {
	type totals struct{ points, credits float64 }
	byYear := make(map[string]*totals)
	for _, g := range gs {
		if g.AcademicYear == "" {
			continue
		}
		point, ok := GradePoint(g.Grade)
		if !ok {
			continue
		}
		credit, ok := Credit(g)
		if !ok {
			continue
		}
		t, ok := byYear[g.AcademicYear]
		if !ok {
			t = &totals{}
			byYear[g.AcademicYear] = t
		}
		t.points += point * credit
		t.credits += credit
	}

	trend := make([]YearGPA, 0, len(byYear))
	for year, t := range byYear {
		trend = append(trend, YearGPA{AcademicYear: year, GPA: t.points / t.credits, Credits: t.credits})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].AcademicYear < trend[j].AcademicYear })
	return trend
}

// CumulativeGPA is the credit weighted GPA over every counted grade, regardless
// of academic year. It returns 0, 0 when nothing counts.
func CumulativeGPA(gs []Grade) (gpa float64, credits float64) {
	var points float64
	for _, g := range gs {
		point, ok := GradePoint(g.Grade)
		if !ok {
			continue
		}
		credit, ok := Credit(g)
		if !ok {
			continue
		}
		points += point * credit
		credits += credit
	}
	if credits == 0 {
		return 0, 0
	}
	return points / credits, credits
}
