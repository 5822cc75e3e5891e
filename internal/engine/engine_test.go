package engine

import "testing"

type described string

func (d described) Description() string          { return string(d) }
func (d described) ChangedResources() []Resource { return nil }

type summarized struct{ described }

func (summarized) Summary() string { return "Short" }

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		cs   ChangeSet
		want string
	}{
		{"first line", described("Rename\n-a\n+b\n"), "Rename"},
		{"single line", described("Rename"), "Rename"},
		{"empty", described(""), ""},
		{"summarizer", summarized{described("Long\npreview")}, "Short"},
	}
	for _, tt := range tests {
		if got := Summary(tt.cs); got != tt.want {
			t.Errorf("%s: Summary() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
