package repl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/config"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"var x = 1;", true},
		{"if (x) {", false},
		{"if (x) {\n  print(x);\n}", true},
		{`print("a`, false},
		{`print("${x}");`, true},
		{"print([1, 2", false},
		{"print(1)) ;", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Complete(tt.src), "Complete(%q)", tt.src)
	}
}

func testSession() *Session {
	cfg := config.Default()
	cfg.Workers = 1
	return NewSession(cfg)
}

func TestSessionKeepsSuccessfulSnippets(t *testing.T) {
	s := testSession()
	ctx := context.Background()

	out, err := s.Eval(ctx, "var x = 1;")
	require.NoError(t, err)
	assert.Contains(t, out, "graph ::main (")

	_, err = s.Eval(ctx, "print(y);")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E0101")

	_, err = s.Eval(ctx, "print(x);")
	require.NoError(t, err)

	assert.Equal(t, "library repl;\nfun main() {\nvar x = 1;\nprint(x);\n}\n", s.Source(""))
	assert.Equal(t, out[:len("graph ::main (")], s.Graph()[:len("graph ::main (")])
}

func TestSessionClosuresAreRendered(t *testing.T) {
	s := testSession()

	out, err := s.Eval(context.Background(), "var n = 0;\nvar f = fun () => n = n + 1;\nf();")
	require.NoError(t, err)
	assert.Contains(t, out, "graph ::main (")
	assert.Contains(t, out, "graph ::main.")
}

func TestSessionReset(t *testing.T) {
	s := testSession()

	_, err := s.Eval(context.Background(), "var x = 1;")
	require.NoError(t, err)

	s.Reset()
	assert.Empty(t, s.Graph())
	assert.Equal(t, "library repl;\nfun main() {\n}\n", s.Source(""))
}

func TestLoadLowersLibrary(t *testing.T) {
	s := testSession()

	out, err := s.Load(context.Background(), "../examples/shapes.dil")
	require.NoError(t, err)
	assert.Contains(t, out, "graph ::classify (")
	assert.Contains(t, out, "graph Point::dist2 (")
	assert.Equal(t, "library repl;\nfun main() {\n}\n", s.Source(""), "loading leaves the session alone")

	_, err = s.Load(context.Background(), "../examples/missing.dil")
	require.Error(t, err)
}
