package profile

import (
	"strings"
	"testing"

	"github.com/dshills/lexiscan/internal/schema"
)

func TestLoad_AllBuiltins(t *testing.T) {
	for _, name := range Names() {
		p, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q) error: %v", name, err)
			continue
		}
		if p.Name != name {
			t.Errorf("Load(%q).Name = %q, want %q", name, p.Name, name)
		}
		if p.SystemPromptAddendum == "" {
			t.Errorf("Load(%q).SystemPromptAddendum is empty", name)
		}
		if p.Description == "" {
			t.Errorf("Load(%q).Description is empty", name)
		}
	}
}

func TestLoad_EmptyIsGeneral(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "general" {
		t.Errorf("Load(\"\").Name = %q", p.Name)
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nonexistent")
	if err == nil {
		t.Fatal("Load(\"nonexistent\") expected error, got nil")
	}
	if !strings.Contains(err.Error(), "contract") {
		t.Errorf("error should list available profiles: %v", err)
	}
}

func TestLoad_DefaultMode(t *testing.T) {
	cases := []struct {
		name string
		mode schema.Mode
	}{
		{"general", schema.ModeDocument},
		{"contract", schema.ModeClause},
		{"lease", schema.ModeClause},
	}
	for _, c := range cases {
		p, err := Load(c.name)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", c.name, err)
		}
		if p.DefaultMode != c.mode {
			t.Errorf("Load(%q).DefaultMode = %q, want %q", c.name, p.DefaultMode, c.mode)
		}
	}
}
