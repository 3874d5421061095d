package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		def  Scope
		want Scope
	}{
		{"runner", "runner", ScopeBuild, ScopeThisRunner},
		{"next runner", "next-runner", ScopeThisRunner, ScopeNextRunner},
		{"build", "build", ScopeThisRunner, ScopeBuild},
		{"empty uses default", "", ScopeThisRunner, ScopeThisRunner},
		{"empty uses supplied default", "", ScopeBuild, ScopeBuild},
		{"case sensitive", "Build", ScopeThisRunner, ScopeThisRunner},
		{"upper case", "RUNNER", ScopeNextRunner, ScopeNextRunner},
		{"no trimming", " build", ScopeThisRunner, ScopeThisRunner},
		{"unknown", "project", ScopeNextRunner, ScopeNextRunner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveScope(tt.raw, tt.def))
		})
	}
}

func TestScopes(t *testing.T) {
	assert.Equal(t, []Scope{ScopeThisRunner, ScopeNextRunner, ScopeBuild}, Scopes())

	s := Scopes()
	s[0] = "mutated"
	assert.Equal(t, ScopeThisRunner, Scopes()[0])
}

func TestDefaultScope(t *testing.T) {
	assert.Equal(t, ScopeThisRunner, DefaultScope)
	assert.Equal(t, "next-runner", ScopeNextRunner.String())
}
