package domain

import (
	"encoding/json"
	"testing"
)

func TestScopeBuildQuery(t *testing.T) {
	tests := []struct {
		scope Scope
		topic string
		want  string
	}{
		{ScopeWeb, "openai", "openai"},
		{ScopeX, "openai", "site:x.com openai"},
		{ScopeReddit, "openai", "site:reddit.com openai"},
		{ScopeX, "", "site:x.com "},
		{ScopeWeb, "", ""},
	}
	for _, tt := range tests {
		if got := tt.scope.BuildQuery(tt.topic); got != tt.want {
			t.Errorf("%s.BuildQuery(%q) = %q, want %q", tt.scope, tt.topic, got, tt.want)
		}
	}
}

func TestSearchResultNullFields(t *testing.T) {
	title := "A"
	data, err := json.Marshal(SearchResult{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"title":"A","url":null,"snippet":null}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
