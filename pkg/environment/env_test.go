package environment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOsEnvProviderFound(t *testing.T) {
	t.Setenv("DOCQA_TEST1", "VALUE1")

	provider := NewOsEnvProvider()
	assert.Equal(t, "VALUE1", provider.Get(t.Context(), "DOCQA_TEST1"))
}

func TestOsEnvProviderNotFound(t *testing.T) {
	t.Setenv("DOCQA_TEST2", "")

	provider := NewOsEnvProvider()
	assert.Empty(t, provider.Get(t.Context(), "DOCQA_TEST2"))
}

func TestDotEnvProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("OPENAI_API_KEY=sk-first\n# comment\nSHARED=one\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("SHARED=two\nGEMINI_API_KEY=\"g-key\"\n"), 0o600))

	provider := NewDotEnvProvider(first, filepath.Join(dir, "missing.env"), second)

	assert.Equal(t, "sk-first", provider.Get(t.Context(), "OPENAI_API_KEY"))
	assert.Equal(t, "g-key", provider.Get(t.Context(), "GEMINI_API_KEY"))
	assert.Equal(t, "one", provider.Get(t.Context(), "SHARED"))
	assert.Empty(t, provider.Get(t.Context(), "UNKNOWN"))
}

func TestRequire(t *testing.T) {
	t.Parallel()

	provider := MapProvider{"OPENAI_API_KEY": "sk"}

	values, err := Require(t.Context(), provider, "OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk", values["OPENAI_API_KEY"])

	_, err = Require(t.Context(), provider, "OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY")
	var envErr *RequiredEnvError
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY"}, envErr.Missing)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY, ANTHROPIC_API_KEY")
}

func TestFirstOf(t *testing.T) {
	t.Parallel()

	v, err := FirstOf(t.Context(), MapProvider{"GOOGLE_API_KEY": "g"}, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "g", v)

	_, err = FirstOf(t.Context(), MapProvider{}, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	var envErr *RequiredEnvError
	require.ErrorAs(t, err, &envErr)
	assert.True(t, envErr.AnyOf)
}

func TestRequiredEnvError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *RequiredEnvError
		want string
	}{
		{
			name: "single",
			err:  &RequiredEnvError{Missing: []string{"OPENAI_API_KEY"}},
			want: "environment variable OPENAI_API_KEY is not set",
		},
		{
			name: "several",
			err:  &RequiredEnvError{Missing: []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY"}},
			want: "environment variables GEMINI_API_KEY, ANTHROPIC_API_KEY are not set",
		},
		{
			name: "alternatives",
			err:  &RequiredEnvError{Missing: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, AnyOf: true},
			want: "none of GEMINI_API_KEY, GOOGLE_API_KEY is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}
