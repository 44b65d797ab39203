package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/config"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/doctor"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/core/styles"
	"github.com/totallyGreg/tmux-powerkit-sub000/internal/powerkit"
	"github.com/totallyGreg/tmux-powerkit-sub000/pkg/iojson"
)

type DoctorCmd struct {
	flags   *Flags
	app     *App
	format  string
	autofix bool
}

// NewDoctorCmd creates a new doctor command
func NewDoctorCmd(flags *Flags, app *App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

// Register adds the doctor command to the application
func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your powerkit setup",
		UsageText:   "powerkit doctor [options]",
		Description: "Runs diagnostic checks on configuration, plugins, tools, state directories and refresh locks.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       formatText,
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "autofix",
				Usage:       "automatically fix issues (e.g., remove orphaned refresh locks)",
				Destination: &cmd.autofix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	checks, err := cmd.checks(ctx)
	if err != nil {
		return err
	}

	if cmd.autofix {
		fixed, err := doctor.FixAll(ctx, checks)
		if err != nil {
			return fmt.Errorf("autofix: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "fixed %d issue(s)\n", fixed)
	}

	results := doctor.RunAll(ctx, checks)

	if cmd.format == formatJSON {
		if err := cmd.outputJSON(c, results); err != nil {
			return err
		}
	} else {
		cmd.outputText(os.Stderr, results)
	}

	if _, _, failed := doctor.Summary(results); failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) checks(ctx context.Context) ([]doctor.Check, error) {
	cfg := cmd.app.Config

	pipe, err := cmd.app.Pipeline()
	if err != nil {
		return nil, err
	}

	return []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
		doctor.NewPluginCheck(cmd.pluginInfo(ctx, pipe)),
		doctor.NewToolsCheck(requiredTools(cfg)),
		doctor.NewDirsCheck([]doctor.Dir{
			{Label: "State", Path: cfg.StateDir},
			{Label: "Cache", Path: cfg.Cache.Dir},
			{Label: "Locks", Path: cfg.Lock.Dir},
		}),
		doctor.NewLocksCheck(cfg.Lock.Dir, cfg.Lock.ReclaimAfter, cmd.app.Clock),
	}, nil
}

// pluginInfo prepares every listed plugin and reports where each one ended
// up in its lifecycle. Names the registry does not know are reported as
// unknown.
func (cmd *DoctorCmd) pluginInfo(ctx context.Context, pipe *powerkit.Pipeline) []doctor.PluginInfo {
	descs, errs := pipe.Inspect(ctx)

	known := cmd.app.Registry.Names()
	var infos []doctor.PluginInfo
	for _, name := range cmd.app.Config.ListedPlugins() {
		if !slices.Contains(known, name) {
			infos = append(infos, doctor.PluginInfo{Name: name, Lifecycle: doctor.PluginUnknown})
		}
	}

	for _, d := range descs {
		info := doctor.PluginInfo{Name: d.ID, Detail: errorFor(d.ID, errs)}
		switch d.State {
		case powerkit.StateInvalid:
			info.Lifecycle = doctor.PluginInvalid
		case powerkit.StateInitFailed:
			info.Lifecycle = doctor.PluginInitFailed
			if errors.Is(findError(d.ID, errs), powerkit.ErrDependencyUnmet) {
				info.Detail = ""
			}
		default:
			info.Lifecycle = doctor.PluginInitialized
			if d.Group != "" {
				info.Detail = d.Group
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func findError(id string, errs []error) error {
	for _, err := range errs {
		if strings.HasPrefix(err.Error(), id+":") {
			return err
		}
	}
	return nil
}

func errorFor(id string, errs []error) string {
	if err := findError(id, errs); err != nil {
		return strings.TrimPrefix(err.Error(), id+": ")
	}
	return ""
}

// requiredTools lists the external programs the configuration relies on.
func requiredTools(cfg *config.Config) []doctor.Tool {
	tools := []doctor.Tool{
		{Name: "sh", Required: true, Purpose: "external plugin commands"},
		{Name: "tmux", Required: cfg.TmuxOptions, Purpose: "status line and @powerkit options"},
	}
	if slices.Contains(cfg.ListedPlugins(), "git") {
		tools = append(tools, doctor.Tool{Name: "git", Purpose: "git plugin"})
	}
	return tools
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	passed, warned, failed := doctor.Summary(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary summaryJSON     `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: failed == 0,
		Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
		Checks:  results,
	}

	return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
}

func (cmd *DoctorCmd) outputText(w io.Writer, results []doctor.Result) {
	divider := styles.MutedStyle.Render(strings.Repeat("─", 40))

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("Powerkit Doctor"))
	_, _ = fmt.Fprintln(w, divider)

	for _, result := range results {
		_, _ = fmt.Fprintln(w, styles.SectionStyle.Render(result.Name))

		for _, item := range result.Items {
			var detail string
			if item.Detail != "" {
				detail = " " + styles.MutedStyle.Render(item.Detail)
			}
			style, icon := styles.ForStatus(string(item.Status))
			_, _ = fmt.Fprintf(w, "  %s %s%s\n", style.Render(icon), item.Label, detail)
		}
	}

	passed, warned, failed := doctor.Summary(results)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n",
		styles.PassStyle.Render(fmt.Sprintf("%d passed", passed)),
		styles.WarnStyle.Render(fmt.Sprintf("%d warnings", warned)),
		styles.FailStyle.Render(fmt.Sprintf("%d failed", failed)),
	)

	if !cmd.autofix {
		if fixable := doctor.CountFixable(results); fixable > 0 {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("Run 'powerkit doctor --autofix' to fix %d issue(s)", fixable)))
		}
	}
}
