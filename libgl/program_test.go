package libgl_test

import (
	"envlight/libgl"
	"strings"
	"testing"
)

func TestInjectDefines(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		defines map[string]string
		want    string
	}{
		{
			name:   "none",
			source: "#version 450 core\nvoid main() {}\n",
			want:   "#version 450 core\nvoid main() {}\n",
		},
		{
			name:    "after version",
			source:  "#version 450 core\nvoid main() {}\n",
			defines: map[string]string{"SAMPLE_COUNT": "64", "USE_MIS": ""},
			want:    "#version 450 core\n#define SAMPLE_COUNT 64\n#define USE_MIS\nvoid main() {}\n",
		},
		{
			name:    "indented version",
			source:  "  #version 450\nvoid main() {}",
			defines: map[string]string{"A": "1"},
			want:    "  #version 450\n#define A 1\nvoid main() {}",
		},
		{
			name:    "no version",
			source:  "void main() {}",
			defines: map[string]string{"B": "2", "A": "1"},
			want:    "#define A 1\n#define B 2\nvoid main() {}",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := libgl.InjectDefines(test.source, test.defines)
			if got != test.want {
				t.Errorf("expected:\n%s\ngot:\n%s", test.want, got)
			}
		})
	}
}

func TestInjectDefinesKeepsBody(t *testing.T) {
	source := "#version 450 core\n#define KEEP 1\nlayout(location = 0) out vec4 o;\n"
	got := libgl.InjectDefines(source, map[string]string{"X": "3"})
	if !strings.HasSuffix(got, "#define KEEP 1\nlayout(location = 0) out vec4 o;\n") {
		t.Errorf("body changed: %q", got)
	}
	if strings.Count(got, "#version") != 1 {
		t.Errorf("expected a single version directive: %q", got)
	}
}
