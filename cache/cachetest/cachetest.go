// Package cachetest checks that a cache.Store honours the cache contract.
package cachetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/grades"
	"github.com/stretchr/testify/require"
)

// SampleGrades returns a collection whose order and optional fields must survive a round trip.
func SampleGrades() []grades.Grade {
	return []grades.Grade{
		{
			No: "2", CourseTitle: "Physics", Code: "PHYS101", CreditHour: "4", ECTS: "7", Grade: "B+",
			AcademicYear: "2023/24", Year: "1", Semester: "I",
			Assessments: []grades.Assessment{{Name: "Mid", Result: "25"}, {Name: "Final", Result: "40"}},
		},
		{
			No: "1", CourseTitle: "Calculus", Code: "MATH101", CreditHour: "3", ECTS: "5", Grade: "A",
			Assessments: []grades.Assessment{},
		},
		{
			No: "3", CourseTitle: "Ethics", Code: "PHIL101", CreditHour: "2", ECTS: "3", Grade: "C",
			AcademicYear: "2022/23", Semester: "II",
			Assessments: []grades.Assessment{{Name: "Essay", Result: "18"}},
		},
	}
}

// RunStoreTests exercises newStore against the cache.Store contract. Each subtest
// gets a fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) cache.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty get", func(t *testing.T) {
		gs, err := newStore(t).Get(ctx)
		require.NoError(t, err)
		require.Empty(t, gs)
	})

	t.Run("round trip keeps order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, SampleGrades()))
		gs, err := s.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, SampleGrades(), gs)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, SampleGrades()))
		require.NoError(t, s.Put(ctx, SampleGrades()[:1]))
		gs, err := s.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, SampleGrades()[:1], gs)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, SampleGrades()))
		require.NoError(t, s.Delete(ctx))
		gs, err := s.Get(ctx)
		require.NoError(t, err)
		require.Empty(t, gs)
		require.NoError(t, s.Delete(ctx), "deleting an absent record succeeds")
	})
}
