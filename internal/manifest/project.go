package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectFileName is looked up by FindProject.
const ProjectFileName = "hhdecl.toml"

// ErrDeclsSectionMissing indicates that [decls] is missing in a project file.
var ErrDeclsSectionMissing = errors.New("missing [decls]")

// Project is the parsed content of hhdecl.toml.
type Project struct {
	Root      string   // directory holding the project file
	Files     []string // manifest paths, absolute
	Snapshots []string // snapshot directories, absolute
	Jobs      int      // 0 means one per CPU
}

type projectFile struct {
	Decls struct {
		Files     []string `toml:"files"`
		Snapshots []string `toml:"snapshots"`
	} `toml:"decls"`
	Check struct {
		Jobs int `toml:"jobs"`
	} `toml:"check"`
}

// LoadProject parses a project file.
func LoadProject(path string) (*Project, error) {
	var cfg projectFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("decls") {
		return nil, fmt.Errorf("%s: %w", path, ErrDeclsSectionMissing)
	}
	if cfg.Check.Jobs < 0 {
		return nil, fmt.Errorf("%s: [check].jobs must not be negative", path)
	}
	root := filepath.Dir(path)
	p := &Project{Root: root, Jobs: cfg.Check.Jobs}
	for _, f := range cfg.Decls.Files {
		p.Files = append(p.Files, resolve(root, f))
	}
	for _, s := range cfg.Decls.Snapshots {
		p.Snapshots = append(p.Snapshots, resolve(root, s))
	}
	return p, nil
}

// FindProject walks up from startDir looking for hhdecl.toml.
func FindProject(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", false, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
