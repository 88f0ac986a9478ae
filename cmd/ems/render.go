package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jrsteele09/go-ems-client/grades"
)

var (
	yearStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	semesterStyle = lipgloss.NewStyle().Bold(true).PaddingLeft(2)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderGrades(w io.Writer, groups []grades.YearGroup, details bool) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No grades yet. Run `ems sync` to fetch them.")
		return
	}
	headers := []string{"No", "Code", "Course", "Cr", "ECTS", "Grade"}
	if details {
		headers = append(headers, "Assessments")
	}
	for _, year := range groups {
		fmt.Fprintln(w, yearStyle.Render(year.AcademicYear))
		for _, sem := range year.Semesters {
			fmt.Fprintln(w, semesterStyle.Render(sem.Semester))
			t := newTable(headers...)
			for _, g := range sem.Grades {
				row := []string{g.No, g.Code, g.CourseTitle, g.CreditHour, g.ECTS, g.Grade}
				if details {
					row = append(row, assessments(g.Assessments))
				}
				t.Row(row...)
			}
			fmt.Fprintln(w, t.Render())
		}
	}
}

func assessments(as []grades.Assessment) string {
	parts := make([]string, 0, len(as))
	for _, a := range as {
		parts = append(parts, a.Name+" "+a.Result)
	}
	return strings.Join(parts, ", ")
}

func renderGPA(w io.Writer, gs []grades.Grade) {
	trend := grades.GPAByYear(gs)
	if len(trend) == 0 {
		fmt.Fprintln(w, "No graded courses with an academic year yet.")
		return
	}
	t := newTable("Year", "GPA", "Credits")
	for _, y := range trend {
		t.Row(y.AcademicYear, fmt.Sprintf("%.2f", y.GPA), fmt.Sprintf("%g", y.Credits))
	}
	fmt.Fprintln(w, t.Render())
	if gpa, credits := grades.CumulativeGPA(gs); credits > 0 {
		fmt.Fprintf(w, "Cumulative GPA: %.2f over %g credits\n", gpa, credits)
	}
}
