// Package config reads the pipcut INI file.
//
//	[pip]
//	command = /opt/venv/bin/pip
//	candidates = pip3, pip
//	sudo = true
//	lock_file = /var/lock/pipcut.lock
//
//	[index]
//	url = https://pypi.org/pypi
//	timeout = 30s
//	attempts = 3
//	backoff = 1s
//
//	[hosts]
//	web = web1.example.com, web2.example.com
//
//	[package "flask"]
//	ensure = 2.0.1
//	source = git+https://github.com/pallets/flask.git
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steelcutops/pipcut/pipcut/packagemanager"
	"github.com/steelcutops/pipcut/pipcut/pypi"
	"gopkg.in/ini.v1"
)

const packageSectionPrefix = "package "

type PipConfig struct {
	Command    string
	Candidates []string
	Sudo       bool
	LockFile   string
}

type IndexConfig struct {
	URL      string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// HostGroup is one named entry of the [hosts] section.
type HostGroup struct {
	Name  string
	Hosts []string
}

type Config struct {
	Pip        PipConfig
	Index      IndexConfig
	HostGroups []HostGroup
	Packages   []packagemanager.ResourceSpec
}

func Default() *Config {
	policy := pypi.DefaultRetryPolicy()
	return &Config{
		Pip: PipConfig{
			Candidates: []string{"pip"},
		},
		Index: IndexConfig{
			URL:      pypi.DefaultEndpoint,
			Timeout:  policy.Timeout,
			Attempts: policy.Attempts,
			Backoff:  policy.Backoff,
		},
	}
}

// Load reads path on top of the defaults.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, NewLoadError(err, path)
	}

	cfg := Default()

	pip := file.Section("pip")
	cfg.Pip.Command = pip.Key("command").String()
	if candidates := pip.Key("candidates").Strings(","); len(candidates) > 0 {
		cfg.Pip.Candidates = candidates
	}
	if pip.HasKey("sudo") {
		if cfg.Pip.Sudo, err = pip.Key("sudo").Bool(); err != nil {
			return nil, NewInvalidError(err, path, "pip.sudo")
		}
	}
	cfg.Pip.LockFile = pip.Key("lock_file").String()

	index := file.Section("index")
	cfg.Index.URL = index.Key("url").MustString(cfg.Index.URL)
	cfg.Index.Timeout = index.Key("timeout").MustDuration(cfg.Index.Timeout)
	cfg.Index.Backoff = index.Key("backoff").MustDuration(cfg.Index.Backoff)
	cfg.Index.Attempts = index.Key("attempts").MustInt(cfg.Index.Attempts)
	if cfg.Index.Attempts < 1 {
		return nil, NewInvalidError(fmt.Errorf("attempts must be at least 1, got %d", cfg.Index.Attempts), path, "index.attempts")
	}

	for _, key := range file.Section("hosts").Keys() {
		hosts := key.Strings(",")
		if len(hosts) == 0 {
			continue
		}
		cfg.HostGroups = append(cfg.HostGroups, HostGroup{Name: key.Name(), Hosts: hosts})
	}

	for _, section := range file.Sections() {
		name, ok := packageName(section.Name())
		if !ok {
			continue
		}
		if name == "" {
			return nil, NewInvalidError(errors.New("package section without a name"), path, section.Name())
		}
		cfg.Packages = append(cfg.Packages, packagemanager.ResourceSpec{
			Name:   name,
			Ensure: packagemanager.Ensure(section.Key("ensure").MustString(string(packagemanager.EnsureInstalled))),
			Source: section.Key("source").String(),
		})
	}

	return cfg, nil
}

// Hosts returns every configured host once, in file order.
func (c *Config) Hosts() []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, group := range c.HostGroups {
		for _, h := range group.Hosts {
			if !seen[h] {
				seen[h] = true
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}

func (c *Config) RetryPolicy() pypi.RetryPolicy {
	return pypi.RetryPolicy{
		Attempts: c.Index.Attempts,
		Backoff:  c.Index.Backoff,
		Timeout:  c.Index.Timeout,
	}
}

func packageName(section string) (string, bool) {
	rest, ok := strings.CutPrefix(section, packageSectionPrefix)
	if !ok {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(rest), `"`), true
}
