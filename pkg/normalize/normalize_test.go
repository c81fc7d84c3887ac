package normalize

import (
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "uppercases plain ascii",
			input: "gaze esteril",
			want:  "GAZEESTERIL",
		},
		{
			name:  "strips accents",
			input: "Soro Fisiológico",
			want:  "SOROFISIOLOGICO",
		},
		{
			name:  "keeps digits drops punctuation",
			input: "Álcool 70%",
			want:  "ALCOOL70",
		},
		{
			name:  "preserves cedilla",
			input: "Avental de proteção",
			want:  "AVENTALDEPROTEÇAO",
		},
		{
			name:  "uppercase cedilla input",
			input: "PROTEÇÃO",
			want:  "PROTEÇAO",
		},
		{
			name:  "collapses internal whitespace",
			input: "  luva   nitrílica  ",
			want:  "LUVANITRILICA",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal("Soro Fisiológico 0,9%", "soro fisiologico 09") {
		t.Error("expected accented and plain spellings to match")
	}
	if Equal("MAÇA", "MACA") {
		t.Error("cedilla must keep distinct names apart")
	}
}
