package tokenize

import (
	"reflect"
	"testing"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		keep Filter
		want []string
	}{
		{"empty", "", nil, nil},
		{"punctuation only", " -- ,. ", nil, nil},
		{"splits and lowercases", "PostgreSQL-Database, managed!", nil,
			[]string{"postgresql", "database", "managed"}},
		{"dedupes keeping order", "db DB Db cache db", nil, []string{"db", "cache"}},
		{"digits kept", "s3 bucket v2", nil, []string{"s3", "bucket", "v2"}},
		{"unicode letters", "Größe café", nil, []string{"größe", "café"}},
		{"min length", "a db sql redis", MinLength(3), []string{"sql", "redis"}},
		{"stop words", "I need a database for my app", StopWords(EnglishStopWords...),
			[]string{"database", "app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.text, tt.keep)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMinLength_Runes(t *testing.T) {
	keep := MinLength(3)
	if !keep("äöü") {
		t.Error("three-rune token should pass")
	}
	if keep("db") {
		t.Error("two-rune token should be dropped")
	}
}

func TestStopWords_CaseInsensitiveList(t *testing.T) {
	keep := StopWords("The", "AND")
	if keep("the") || keep("and") {
		t.Error("stop words should be dropped")
	}
	if !keep("theory") {
		t.Error("non stop word dropped")
	}
}

func TestAll(t *testing.T) {
	keep := All(MinLength(3), StopWords("with"), nil)
	got := Tokens("db with postgres", keep)
	if !reflect.DeepEqual(got, []string{"postgres"}) {
		t.Errorf("got %v", got)
	}
}

func TestOverlap(t *testing.T) {
	text := "sqls.devopstoolkit.live postgresql database aws"
	tests := []struct {
		query []string
		want  float64
	}{
		{nil, 0},
		{[]string{"postgresql"}, 1},
		{[]string{"postgresql", "redis"}, 0.5},
		{[]string{"postgres"}, 0},
		{[]string{"sqls", "devopstoolkit", "live", "mysql"}, 0.75},
	}
	for _, tt := range tests {
		if got := Overlap(tt.query, text); got != tt.want {
			t.Errorf("Overlap(%v) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
