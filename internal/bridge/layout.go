package bridge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Layout is where the engine project keeps its data and model files
type Layout struct {
	ProjectDir string
	DataDir    string
	ModelsDir  string
}

// DefaultLayout places data/ and models/ inside projectDir
func DefaultLayout(projectDir string) Layout {
	return Layout{
		ProjectDir: projectDir,
		DataDir:    filepath.Join(projectDir, "data"),
		ModelsDir:  filepath.Join(projectDir, "models"),
	}
}

// Paths are the files materialized for one model
type Paths struct {
	Data     string
	Query    string
	Document string
}

// Paths returns the absolute file locations for a model
func (l Layout) Paths(model string) (Paths, error) {
	dataDir, err := filepath.Abs(l.DataDir)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	modelsDir, err := filepath.Abs(l.ModelsDir)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve models directory: %w", err)
	}

	return Paths{
		Data:     filepath.Join(dataDir, model+".csv"),
		Query:    filepath.Join(modelsDir, model+".sql"),
		Document: filepath.Join(modelsDir, model+".yml"),
	}, nil
}

// Materialize writes the dataset, a query selecting every row of it, and the
// rule document next to the query.
func (l Layout) Materialize(dataset io.Reader, document []byte, model string) (Paths, error) {
	if err := validateModelName(model); err != nil {
		return Paths{}, err
	}

	paths, err := l.Paths(model)
	if err != nil {
		return Paths{}, err
	}

	for _, dir := range []string{filepath.Dir(paths.Data), filepath.Dir(paths.Query)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Paths{}, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := writeFrom(paths.Data, dataset); err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(paths.Query, []byte(ViewSQL(paths.Data)), 0644); err != nil {
		return Paths{}, fmt.Errorf("failed to write query: %w", err)
	}
	if err := os.WriteFile(paths.Document, document, 0644); err != nil {
		return Paths{}, fmt.Errorf("failed to write document: %w", err)
	}

	return paths, nil
}

// ViewSQL is the model query reading the materialized CSV
func ViewSQL(dataPath string) string {
	escaped := strings.ReplaceAll(dataPath, "'", "''")
	return fmt.Sprintf("select * from read_csv_auto('%s')\n", escaped)
}

func writeFrom(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func validateModelName(model string) error {
	if model == "" {
		return fmt.Errorf("model name is required")
	}
	if strings.ContainsAny(model, `/\`) || model == "." || model == ".." {
		return fmt.Errorf("invalid model name %q", model)
	}
	return nil
}
