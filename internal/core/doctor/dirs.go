package doctor

import (
	"context"
	"fmt"
	"os"
)

// DirsCheck verifies that the state, cache and lock directories are usable.
// Missing directories are fine; they are created on first write.
type DirsCheck struct {
	dirs []Dir
}

// Dir is a labelled directory such as cache.dir.
type Dir struct {
	Label string
	Path  string
}

// NewDirsCheck creates a directory check. An empty Path means the directory
// is not used by the current configuration.
func NewDirsCheck(dirs []Dir) *DirsCheck {
	return &DirsCheck{dirs: dirs}
}

func (c *DirsCheck) Name() string {
	return "Directories"
}

func (c *DirsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, d := range c.dirs {
		label, dir := d.Label, d.Path
		if dir == "" {
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusPass,
				Detail: "not used",
			})
			continue
		}

		info, err := os.Stat(dir)
		switch {
		case os.IsNotExist(err):
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusPass,
				Detail: dir + " (created on first use)",
			})
		case err != nil:
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusFail,
				Detail: fmt.Sprintf("inaccessible: %v", err),
			})
		case !info.IsDir():
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusFail,
				Detail: dir + " is not a directory",
			})
		default:
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusPass,
				Detail: dir,
			})
		}
	}

	return result
}
