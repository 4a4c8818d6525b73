package masker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ProjectAllowlistFile is the per-project allowlist file name, looked up
// in the project directory.
const ProjectAllowlistFile = ".maskd-allowlist.toml"

// Allowlist contains content patterns exempt from rule-based detection.
// Exemptions never apply to explicitly registered literals.
type Allowlist struct {
	Regexes []string
}

// LoadAllowlists loads and merges project and user allowlists using union
// logic. Missing files are silently ignored; invalid TOML or regex
// patterns return errors.
//
// projectPath: directory containing .maskd-allowlist.toml (empty to skip)
// userPath: full path to a user allowlist file (empty to skip)
func LoadAllowlists(projectPath, userPath string) (*Allowlist, error) {
	merged := &Allowlist{Regexes: []string{}}

	if projectPath != "" {
		projectFile := filepath.Join(projectPath, ProjectAllowlistFile)
		project, err := loadAllowlistTOML(projectFile)
		switch {
		case err == nil:
			merged.Regexes = append(merged.Regexes, project.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if userPath != "" {
		user, err := loadAllowlistTOML(userPath)
		switch {
		case err == nil:
			merged.Regexes = append(merged.Regexes, user.Regexes...)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	return merged, nil
}

// loadAllowlistTOML loads and validates a single allowlist file.
func loadAllowlistTOML(path string) (*Allowlist, error) {
	var config struct {
		Allowlist struct {
			Regexes []string
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err // os.IsNotExist can identify this
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTOML, path)
	}

	// Validate patterns fail-fast. Errors carry the entry index and file,
	// never the pattern text.
	for i, pattern := range config.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: entry %d in %s", ErrInvalidAllowList, i, path)
		}
	}

	return &Allowlist{Regexes: config.Allowlist.Regexes}, nil
}
