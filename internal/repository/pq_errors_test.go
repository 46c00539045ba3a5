package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	ownerViolation := &pq.Error{Code: pqUniqueViolation, Constraint: constraintProfilesOwner}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, constraintProfilesOwner, false},
		{"non-pq error", errors.New("boom"), constraintProfilesOwner, false},
		{"matching constraint", ownerViolation, constraintProfilesOwner, true},
		{"wrapped matching constraint", fmt.Errorf("insert: %w", ownerViolation), constraintProfilesOwner, true},
		{"other constraint", ownerViolation, constraintUsersEmail, false},
		{"any constraint", ownerViolation, "", true},
		{"other sqlstate", &pq.Error{Code: "23503", Constraint: constraintProfilesOwner}, constraintProfilesOwner, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
