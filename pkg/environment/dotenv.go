package environment

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// DotEnvProvider reads values from .env files. Files are parsed lazily on
// first use; missing files are skipped and earlier files win.
type DotEnvProvider struct {
	files []string

	once   sync.Once
	values map[string]string
}

func NewDotEnvProvider(files ...string) *DotEnvProvider {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return &DotEnvProvider{files: files}
}

func (p *DotEnvProvider) Get(_ context.Context, name string) string {
	p.once.Do(p.load)
	return p.values[name]
}

func (p *DotEnvProvider) load() {
	p.values = make(map[string]string)

	for _, file := range p.files {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		values, err := godotenv.Read(file)
		if err != nil {
			slog.Warn("Failed to parse env file", "path", file, "error", err)
			continue
		}

		for k, v := range values {
			if _, ok := p.values[k]; !ok {
				p.values[k] = v
			}
		}
	}
}
