package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/joomcode/errorx"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func outputFormat(value string) (format, error) {
	switch f := format(strings.ToLower(value)); f {
	case "", formatText:
		return formatText, nil
	case formatJSON, formatYAML:
		return f, nil
	}
	return "", errorx.IllegalFormat.New("unsupported output format: %s", value)
}

// PackageChange is what one pip operation did to one package.
type PackageChange struct {
	Package string                `json:"package" yaml:"package"`
	Change  packagemanager.Change `json:"change" yaml:"change"`
	Error   string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// HostReport is the outcome of a command on one host.
type HostReport struct {
	Host     string                         `json:"host" yaml:"host"`
	Packages []packagemanager.PackageRecord `json:"packages,omitempty" yaml:"packages,omitempty"`
	Changes  []PackageChange                `json:"changes,omitempty" yaml:"changes,omitempty"`
	Error    string                         `json:"error,omitempty" yaml:"error,omitempty"`
}

// reports collects HostReports from concurrent host actions.
type reports struct {
	mu   sync.Mutex
	list []HostReport
}

func (r *reports) add(report HostReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, report)
}

func (r *reports) sorted() []HostReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]HostReport(nil), r.list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

func render(w io.Writer, value string, v any, text func(io.Writer)) error {
	f, err := outputFormat(value)
	if err != nil {
		return err
	}

	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errorx.IllegalFormat.Wrap(err, "failed to encode output as JSON")
		}
	case formatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return errorx.IllegalFormat.Wrap(err, "failed to encode output as YAML")
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	default:
		text(w)
	}

	return nil
}

func writeReports(w io.Writer, list []HostReport) {
	for _, report := range list {
		fmt.Fprintf(w, "%s:\n", report.Host)
		if len(report.Packages) == 0 && len(report.Changes) == 0 && report.Error == "" {
			fmt.Fprintln(w, "  (none)")
		}
		for _, pkg := range report.Packages {
			fmt.Fprintf(w, "  %s==%s\n", pkg.Name, pkg.Version)
		}
		for _, change := range report.Changes {
			if change.Error != "" {
				fmt.Fprintf(w, "  %s: failed: %s\n", change.Package, change.Error)
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", change.Package, change.Change)
		}
		if report.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", report.Error)
		}
	}
}
