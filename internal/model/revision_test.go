package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRevision(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"01", "02"},
		{"09", "10"},
		{"10", "11"},
		{"98", "99"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NextRevision(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRevisionOverflow(t *testing.T) {
	_, err := NextRevision("99")
	assert.ErrorIs(t, err, ErrRevisionOverflow)

}

func TestNextRevisionProduction(t *testing.T) {
	for _, rev := range []string{"A", "Y", "Z"} {
		_, err := NextRevision(rev)
		assert.ErrorIs(t, err, ErrProductionRevision, rev)
		assert.NotErrorIs(t, err, ErrRevisionOverflow, rev)
	}
}

func TestNextRevisionInvalid(t *testing.T) {
	for _, rev := range []string{"", "1", "001", "00", "a", "AA", "1A"} {
		_, err := NextRevision(rev)
		assert.Error(t, err, rev)
		assert.False(t, ValidRevision(rev), rev)
	}
}

func TestRevisionForms(t *testing.T) {
	assert.True(t, IsPreProduction("01"))
	assert.True(t, IsPreProduction("99"))
	assert.False(t, IsPreProduction("A"))
	assert.True(t, IsProduction("A"))
	assert.False(t, IsProduction("01"))
}
