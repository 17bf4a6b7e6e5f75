package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStripSpaces(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "東京大学", want: "東京大学"},
		{in: " 東京 大学 ", want: "東京大学"},
		{in: "京都　大学\t", want: "京都大学"},
		{in: "　　", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSpaces(tt.in))
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOk bool
	}{
		{in: "2025", want: 2025, wantOk: true},
		{in: " 12 ", want: 12, wantOk: true},
		{in: "2025.0", want: 2025, wantOk: true},
		{in: "2025.5", wantOk: false},
		{in: "abc", wantOk: false},
		{in: "", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseInt(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryAfterRepair(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name         string
		results      []error
		repairErr    error
		wantAttempts int
		wantRepairs  int
		wantErr      error
	}{
		{name: "first attempt succeeds", results: []error{nil}, wantAttempts: 1},
		{name: "other error is not retried", results: []error{boom}, wantAttempts: 1, wantErr: boom},
		{name: "collision then success", results: []error{errors.Wrap(ErrPKCollision, "inserting"), nil}, wantAttempts: 2, wantRepairs: 1},
		{
			name:         "collision twice is fatal",
			results:      []error{ErrPKCollision, ErrPKCollision},
			wantAttempts: 2, wantRepairs: 1, wantErr: ErrPKCollision,
		},
		{name: "repair failure", results: []error{ErrPKCollision}, repairErr: boom, wantAttempts: 1, wantRepairs: 1, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts, repairs int
			err := RetryAfterRepair(
				func() error {
					res := tt.results[attempts]
					attempts++
					return res
				},
				func() error {
					repairs++
					return tt.repairErr
				},
			)
			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantRepairs, repairs)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsValidation(errors.Wrap(NewValidationError(errors.New("bad")), "parsing")))
	assert.False(t, IsValidation(NewRejectionError("no")))
	assert.True(t, IsRejection(errors.Wrap(NewRejectionError("no"), "checking")))
	assert.False(t, IsRejection(errors.New("plain")))
}
