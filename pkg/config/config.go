// Package config holds the settings shared by every command: the remote
// host, the HTTP identity and the local directory layout.
// Defaults follow the XDG base directory layout and can be
// overridden by a config.star script.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName = "arxivdl"

	// DefaultHost serves e-prints without the rate limits of the main site.
	DefaultHost = "export.arxiv.org"
	// DefaultUserAgent is a browser identity; arXiv rejects some bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:113.0) Gecko/20100101 Firefox/113.0"
	// DefaultDownloadDir and DefaultExtractDir are relative to the working directory.
	DefaultDownloadDir = "dl"
	DefaultExtractDir  = "extracted"
	DefaultJobs        = 1

	ledgerFile = "history.json"
	scriptFile = "config.star"
	scriptEnv  = "ARXIVDL_CONFIG"
)

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetHost() string
	GetUserAgent() string
	GetDownloadDir() string
	GetExtractDir() string
	GetConfigDir() string
	GetStateDir() string
	GetLedgerPath() string
	GetJobs() int
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetHost(string)
	SetUserAgent(string)
	SetDownloadDir(string)
	SetExtractDir(string)
	SetStateDir(string)
	SetJobs(int)
}

// Config holds the remote endpoint and directories for arxivdl.
// Mutable
type Config struct {
	host      string
	userAgent string

	downloadDir string
	extractDir  string
	configDir   string
	stateDir    string

	ledgerPath string

	jobs int

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetHost() string        { return c.host }
func (c *Config) GetUserAgent() string   { return c.userAgent }
func (c *Config) GetDownloadDir() string { return c.downloadDir }
func (c *Config) GetExtractDir() string  { return c.extractDir }
func (c *Config) GetConfigDir() string   { return c.configDir }
func (c *Config) GetStateDir() string    { return c.stateDir }
func (c *Config) GetLedgerPath() string  { return c.ledgerPath }
func (c *Config) GetJobs() int           { return c.jobs }

func (c *Config) mustBeWritable() {
	if c.frozen {
		panic("cannot modify frozen config")
	}
}

func (c *Config) SetHost(s string) {
	c.mustBeWritable()
	c.host = s
}

func (c *Config) SetUserAgent(s string) {
	c.mustBeWritable()
	c.userAgent = s
}

func (c *Config) SetDownloadDir(s string) {
	c.mustBeWritable()
	c.downloadDir = s
}

func (c *Config) SetExtractDir(s string) {
	c.mustBeWritable()
	c.extractDir = s
}

func (c *Config) SetStateDir(s string) {
	c.mustBeWritable()
	c.stateDir = s
	c.updateDerived()
}

func (c *Config) SetJobs(n int) {
	c.mustBeWritable()
	c.jobs = max(n, 1)
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

func (c *Config) updateDerived() {
	c.ledgerPath = filepath.Join(c.stateDir, ledgerFile)
}

// Init initializes the configuration with built-in defaults and XDG base
// directories.
func Init() ReadOnly {
	c := &Config{
		host:        DefaultHost,
		userAgent:   DefaultUserAgent,
		downloadDir: DefaultDownloadDir,
		extractDir:  DefaultExtractDir,
		configDir:   filepath.Join(xdg.ConfigHome, appName),
		stateDir:    filepath.Join(xdg.StateHome, appName),
		jobs:        DefaultJobs,
	}

	c.updateDerived()

	return c
}
