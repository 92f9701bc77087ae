package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	a := NewID[User]()
	b := NewID[User]()

	require.False(t, a.IsZero())
	require.NotEqual(t, a, b)
}

func TestParseID(t *testing.T) {
	original := NewID[User]()

	parsed, err := ParseID[User](original.String())
	require.NoError(t, err)
	require.Equal(t, original, parsed)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not a uuid", "not-a-uuid"},
		{"truncated", "123e4567-e89b-12d3-a456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseID[User](tt.input)
			require.ErrorIs(t, err, ErrInvalidID)
		})
	}
}

func TestIDFromUUID(t *testing.T) {
	u := uuid.New()
	id := IDFromUUID[User](u)

	require.Equal(t, u, id.UUID())
	require.Equal(t, u.String(), id.String())
}

func TestIDTextMarshalling(t *testing.T) {
	id := NewID[User]()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, id, decoded)
}

func TestIDUnmarshalRejectsGarbage(t *testing.T) {
	var id UserID
	require.ErrorIs(t, id.UnmarshalText([]byte("nope")), ErrInvalidID)
}
