package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HBO Network", "HBO"},
		{"hbo", "HBO"},
		{"", ""},
		{"   ", ""},
		{"  the   CW  ", "The Cw"},
		{"BBC One", "BBC"},
		{"Fox Broadcasting Company", "FOX"},
		{"Sky Atlantic TV", "Sky Atlantic"},
		{"channel 4", "4"},
		{"Abcde", "Abcde"},
		{"Netflix", "Netflix"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("HBO", "HBO"))
	assert.Equal(t, 1.0, Similarity("hbo", "HBO"))
	assert.Equal(t, 0.0, Similarity("", "HBO"))
	assert.Equal(t, 0.0, Similarity("HBO", ""))
	assert.Equal(t, 0.8, Similarity("abcde", "abcdx"))
	assert.InDelta(t, 0.5, Similarity("abcd", "abxy"), 1e-9)
}

type memStore struct {
	names   []string
	created []string
}

func (m *memStore) FindByName(_ context.Context, name string) (string, bool, error) {
	for _, n := range m.names {
		if strings.EqualFold(n, name) {
			return n, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) List(context.Context) ([]string, error) {
	return m.names, nil
}

func (m *memStore) Create(_ context.Context, name string) (string, error) {
	m.names = append(m.names, name)
	m.created = append(m.created, name)
	return name, nil
}

func newResolver(store *memStore) NameResolver[string] {
	return NameResolver[string]{Store: store, NameOf: func(s string) string { return s }}
}

func TestNameResolverExactMatch(t *testing.T) {
	store := &memStore{names: []string{"Sky Atlantic", "HBO"}}
	got, created, err := newResolver(store).FindOrCreate(context.Background(), "HBO Network")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "HBO", got)
	assert.Empty(t, store.created)
}

func TestNameResolverThresholdIsExclusive(t *testing.T) {
	// "Abcdx" scores exactly 0.8 against "Abcde"
	store := &memStore{names: []string{"Abcde"}}
	got, created, err := newResolver(store).FindOrCreate(context.Background(), "abcdx")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Abcdx", got)
}

func TestNameResolverFuzzyMatch(t *testing.T) {
	// four edits over 21 characters scores about 0.81
	store := &memStore{names: []string{"Abcdefghijklmnopqrstu"}}
	got, created, err := newResolver(store).FindOrCreate(context.Background(), "abcdefghijklmnopqwxyz")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Abcdefghijklmnopqrstu", got)
}

func TestNameResolverFirstMatchWins(t *testing.T) {
	store := &memStore{names: []string{"Sky Atlantix", "Sky Atlantiq"}}
	got, created, err := newResolver(store).FindOrCreate(context.Background(), "Sky Atlantic")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Sky Atlantix", got)
}
