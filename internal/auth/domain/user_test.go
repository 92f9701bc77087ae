package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUserName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"minimum length", "ab", false},
		{"typical name", "Alice Example", false},
		{"maximum length", strings.Repeat("a", 40), false},
		{"unicode counts runes not bytes", strings.Repeat("ü", 40), false},
		{"too short", "a", true},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 41), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewUserName(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidUserName)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.input, got.String())
		})
	}
}

func TestNewEmailAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple address", "user@example.com", "user@example.com", false},
		{"uppercase is lowered", "User@Example.COM", "user@example.com", false},
		{"surrounding whitespace trimmed", "  user@example.com  ", "user@example.com", false},
		{"plus addressing", "user+tag@example.com", "user+tag@example.com", false},
		{"missing at sign", "example.com", "", true},
		{"missing domain dot", "user@example", "", true},
		{"embedded space", "us er@example.com", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEmailAddress(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestNewRawPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"meets all classes", "Sup3r-Secret", false},
		{"minimum length", "Aa1!aaaa", false},
		{"too short", "Aa1!aaa", true},
		{"no uppercase", "aa1!aaaa", true},
		{"no lowercase", "AA1!AAAA", true},
		{"no digit", "Aa!!aaaa", true},
		{"no symbol", "Aa1aaaaa", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRawPassword(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrWeakPassword)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.input, got.Expose())
		})
	}
}

func TestRawPasswordRedaction(t *testing.T) {
	p, err := NewRawPassword("Sup3r-Secret")
	require.NoError(t, err)

	require.NotContains(t, fmt.Sprintf("%s %v %+v %#v", p, p, p, p), "Sup3r-Secret")
}
