package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		allowed   []string
		boolFlags []string
		want      []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-x", "1"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-d", "reminder.db"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-d", "-l", "250"},
			allowed: []string{"-d", "-l"},
			want:    []string{"-d", "-l", "250"},
		},
		{
			name:    "flag at the end without value",
			args:    []string{"-d"},
			allowed: []string{"-d"},
			want:    []string{"-d"},
		},
		{
			name:      "bool flag does not swallow the next argument",
			args:      []string{"-p", "positional", "-l", "0"},
			allowed:   []string{"-l"},
			boolFlags: []string{"-p"},
			want:      []string{"-p", "-l", "0"},
		},
		{
			name:      "bool flag in equals form",
			args:      []string{"-p=false"},
			boolFlags: []string{"-p"},
			want:      []string{"-p=false"},
		},
		{
			name:    "repeated flag preserved in order",
			args:    []string{"-r", "0 8 * * *", "-r", "@hourly"},
			allowed: []string{"-r"},
			want:    []string{"-r", "0 8 * * *", "-r", "@hourly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed, tt.boolFlags...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c", func(t *testing.T) {
		os.Args = []string{"testbin", "-d", "x.db", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", JsonConfigFlags())
	})

	t.Run("long -config", func(t *testing.T) {
		os.Args = []string{"testbin", "-config=/path/long.json"}
		assert.Equal(t, "/path/long.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"testbin", "-l", "0"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("last wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", JsonConfigFlags())
	})
}
