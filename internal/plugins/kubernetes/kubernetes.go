// Package kubernetes provides a plugin showing the current kubeconfig context.
package kubernetes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/totallyGreg/tmux-powerkit-sub000/internal/plugins"
)

// kubeconfig is the subset of a kubeconfig file the plugin reads.
type kubeconfig struct {
	CurrentContext string `yaml:"current-context"`
	Contexts       []struct {
		Name    string `yaml:"name"`
		Context struct {
			Cluster   string `yaml:"cluster"`
			Namespace string `yaml:"namespace"`
		} `yaml:"context"`
	} `yaml:"contexts"`
}

// Plugin renders "<context>" or "<context>:<namespace>".
type Plugin struct {
	getenv  func(string) string
	homeDir func() (string, error)
	opts    *plugins.Options

	context   string
	namespace string
}

// New creates a kubernetes plugin.
func New() *Plugin {
	return &Plugin{getenv: os.Getenv, homeDir: os.UserHomeDir, opts: plugins.NewOptions(nil)}
}

func (p *Plugin) ContentType() plugins.ContentType { return plugins.ContentDynamic }
func (p *Plugin) Presence() plugins.Presence       { return plugins.PresenceConditional }
func (p *Plugin) Icon() string                     { return p.opts.String("icon") }
func (p *Plugin) DefaultTTL() time.Duration        { return 15 * time.Second }

func (p *Plugin) DeclareOptions(opts *plugins.Options) {
	opts.Declare("show_namespace", "true", "append the context namespace")
	opts.Declare("warn_contexts", "", "comma separated globs of contexts shown with warning health")
	opts.Declare("icon", "", "icon shown before the context")
	p.opts = opts
}

// CheckDependencies requires a readable kubeconfig.
func (p *Plugin) CheckDependencies(_ context.Context) bool {
	for _, path := range p.configPaths() {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

func (p *Plugin) ShouldBeActive(_ context.Context) bool {
	cfg, err := p.load()
	return err == nil && cfg.CurrentContext != ""
}

func (p *Plugin) Collect(_ context.Context) error {
	cfg, err := p.load()
	if err != nil {
		return err
	}

	p.context = cfg.CurrentContext
	p.namespace = ""
	for _, c := range cfg.Contexts {
		if c.Name == cfg.CurrentContext {
			p.namespace = c.Context.Namespace
			break
		}
	}
	return nil
}

func (p *Plugin) State() plugins.State {
	if p.context == "" {
		return plugins.StateInactive
	}
	return plugins.StateActive
}

func (p *Plugin) Health() plugins.Health {
	for _, pattern := range strings.Split(p.opts.String("warn_contexts"), ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, p.context); ok {
			return plugins.HealthWarning
		}
	}
	return plugins.HealthOK
}

func (p *Plugin) Render() string {
	if p.namespace != "" && p.opts.Bool("show_namespace") {
		return p.context + ":" + p.namespace
	}
	return p.context
}

// configPaths mirrors kubectl: KUBECONFIG may list several files, otherwise
// ~/.kube/config.
func (p *Plugin) configPaths() []string {
	if env := p.getenv("KUBECONFIG"); env != "" {
		return filepath.SplitList(env)
	}
	home, err := p.homeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".kube", "config")}
}

// load merges kubeconfig files the way kubectl does for the fields read
// here: the first file that sets current-context wins, contexts accumulate.
func (p *Plugin) load() (kubeconfig, error) {
	var merged kubeconfig
	found := false
	for _, path := range p.configPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return kubeconfig{}, fmt.Errorf("read kubeconfig: %w", err)
		}
		found = true

		var cfg kubeconfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return kubeconfig{}, fmt.Errorf("parse kubeconfig %s: %w", path, err)
		}
		if merged.CurrentContext == "" {
			merged.CurrentContext = cfg.CurrentContext
		}
		merged.Contexts = append(merged.Contexts, cfg.Contexts...)
	}
	if !found {
		return kubeconfig{}, fmt.Errorf("no kubeconfig found")
	}
	return merged, nil
}
