// Package config loads server configuration from flags and environment
// variables.
package config

import (
	"os"
	"runtime"

	"github.com/koding/multiconfig"
)

// Config is the full set of knobs for the judge server: the domain
// fields enumerated for the job engine, plus the ambient fields every
// server in this stack carries (logging verbosity, auth, metrics).
type Config struct {
	// job engine
	DataDirectory     string `flagUsage:"directory holding packages/ and jobs/" default:"/var/lib/judge"`
	RunnerUIDMin      int    `flagUsage:"lower bound of the runner uid range" default:"10000"`
	RunnerUIDMax      int    `flagUsage:"upper bound of the runner uid range" default:"19999"`
	RunnerGIDMin      int    `flagUsage:"lower bound of the runner gid range" default:"10000"`
	RunnerGIDMax      int    `flagUsage:"upper bound of the runner gid range" default:"19999"`
	MaxProcessCount   uint64 `flagUsage:"prlimit --nproc applied to every child" default:"64"`
	MaxOpenFiles      uint64 `flagUsage:"prlimit --nofile applied to every child" default:"256"`
	OutputMaxSize     int64  `flagUsage:"max bytes buffered per stdout/stderr stream" default:"67108864"`
	DisableNetworking bool   `flagUsage:"prepend nosocket to every child command"`

	// server
	BindAddress   string `flagUsage:"http binding address" default:":8080"`
	MonitorAddr   string `flagUsage:"metrics binding address" default:":8081"`
	AuthToken     string `flagUsage:"bearer token auth for the job submission endpoint"`
	EnableMetrics bool   `flagUsage:"enable the prometheus metrics endpoint"`
	Parallelism   int    `flagUsage:"advisory worker parallelism hint reported by /version"`

	// logging
	LogLevel string `flagUsage:"zap log level (debug, info, warn, error)" default:"info"`
	Release  bool   `flagUsage:"release level of logs"`
	Silent   bool   `flagUsage:"do not print logs"`

	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flags and JUDGE_-prefixed environment variables.
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "JUDGE",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "JUDGE",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return cl.Load(c)
}
