// Package datadir creates and verifies the on-disk data directory the
// pipeline reads and writes. Every path the fetchers, feature builders
// and predictors touch lives under one root with a fixed layout.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Layout is the canonical set of subdirectories under the data root.
var Layout = []string{
	"raw/fixtures",
	"raw/odds",
	"raw/team_stats",
	"raw/referee_stats",
	"processed/features",
	"processed/training",
	"processed/predictions",
	"processed/results",
	"historical/results",
	"historical/odds_history",
	"cache",
}

const gitignore = `# Data files are regenerated from the APIs, keep only the layout.
*
!.gitignore
!.gitkeep
!README.md
!*/
`

const readme = `# Data directory

Layout used by the betting pipeline:

- raw/           unprocessed API output
  - fixtures/        upcoming and finished matches as fetched
  - odds/            bookmaker odds snapshots
  - team_stats/      per-team statistics
  - referee_stats/   per-referee statistics
- processed/     cleaned data derived from raw
  - features/        model input features
  - training/        training datasets
  - predictions/     model output
  - results/         settled prediction results
- historical/    long-term storage
  - results/         past seasons' results
  - odds_history/    closing odds archive
- cache/         disposable API response cache, safe to delete

Everything here is regenerable and git-ignored.
`

// Init creates the full layout under root, including a README, a
// .gitignore and a .gitkeep in each leaf directory. It is idempotent.
func Init(root string) error {
	for _, dir := range Layout {
		path := filepath.Join(root, filepath.FromSlash(dir))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		keep := filepath.Join(path, ".gitkeep")
		if _, err := os.Stat(keep); os.IsNotExist(err) {
			if err := os.WriteFile(keep, nil, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", keep, err)
			}
		}
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte(readme), 0o644); err != nil {
		return fmt.Errorf("writing data README: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing data .gitignore: %w", err)
	}
	return nil
}

// Verify checks that every directory in the layout exists under root
// and returns the missing ones sorted, empty when the layout is intact.
func Verify(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("data root %s: %w", root, err)
	}
	var missing []string
	for _, dir := range Layout {
		path := filepath.Join(root, filepath.FromSlash(dir))
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			missing = append(missing, dir)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		if !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// Path resolves a layout-relative path under the data root.
func Path(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, parts...)...)
}

// CacheDir is where the API clients keep their response cache.
func CacheDir(root string) string {
	return filepath.Join(root, "cache")
}
