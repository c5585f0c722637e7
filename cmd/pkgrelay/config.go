// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/pkgrelay/internal/version"
	"github.com/btcsuite/pkgrelay/mempool"
	"github.com/btcsuite/pkgrelay/store"
	flags "github.com/jessevdk/go-flags"
)

const (
	appName               = "pkgrelay"
	defaultConfigFilename = "pkgrelay.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "pkgrelay.log"
	defaultDbType         = store.TypeLevelDB
	defaultLogLevel       = "info"
)

var (
	defaultHomeDir    = btcutil.AppDataDir(appName, false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for pkgrelay.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DbType      string `long:"dbtype" description:"Database backend to use for the mempool and UTXO set {leveldb, pebble}"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	LimitAncestorCount   int     `long:"limitancestorcount" description:"Maximum number of in-mempool ancestors of a transaction, including itself"`
	LimitAncestorSize    int64   `long:"limitancestorsize" description:"Maximum total size in bytes of a transaction and its in-mempool ancestors"`
	LimitDescendantCount int     `long:"limitdescendantcount" description:"Maximum number of in-mempool descendants of a transaction, including itself"`
	LimitDescendantSize  int64   `long:"limitdescendantsize" description:"Maximum total size in bytes of a transaction and its in-mempool descendants"`
	MinRelayTxFee        float64 `long:"minrelaytxfee" description:"The minimum transaction fee in BTC/kB to be considered a non-zero fee"`
	MaxPackageCount      int     `long:"maxpackagecount" description:"Maximum number of transactions in a package"`
	MaxPackageSize       int64   `long:"maxpackagesize" description:"Maximum total size in bytes of a package"`
	MaxFeeRate           float64 `long:"maxfeerate" description:"Reject transactions paying more than this fee rate in BTC/kB -- Use 0 to disable"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range store.SupportedTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	parser.Usage = "[OPTIONS] <testaccept|submit|addutxo|connectblock|info> [ARGS]"
	return parser
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in pkgrelay functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence.
func loadConfig(args []string) (*config, []string, error) {
	policy := mempool.DefaultPolicy()
	cfg := config{
		ConfigFile:           defaultConfigFile,
		DataDir:              defaultDataDir,
		LogDir:               defaultLogDir,
		DbType:               defaultDbType,
		DebugLevel:           defaultLogLevel,
		LimitAncestorCount:   policy.MaxAncestorCount,
		LimitAncestorSize:    policy.MaxAncestorSize,
		LimitDescendantCount: policy.MaxDescendantCount,
		LimitDescendantSize:  policy.MaxDescendantSize,
		MinRelayTxFee:        policy.MinRelayTxFee.ToBTC(),
		MaxPackageCount:      policy.MaxPackageCount,
		MaxPackageSize:       policy.MaxPackageSize,
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified. Any errors aside from the help message error
	// can be ignored here since they will be caught by the final parse
	// below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, version.String())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	if fileExists(configFile) {
		err := flags.NewIniParser(parser).ParseFile(configFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				fmt.Fprintf(os.Stderr, "Error parsing config "+
					"file: %v\n", err)
				return nil, nil, err
			}
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "%s: The specified database type [%v] is invalid -- " +
			"supported types %v"
		err := fmt.Errorf(str, "loadConfig", cfg.DbType,
			store.SupportedTypes)
		return nil, nil, err
	}

	// Validate the policy the flags describe.
	if _, err := cfg.policy(); err != nil {
		return nil, nil, fmt.Errorf("loadConfig: %w", err)
	}
	if _, err := cfg.packageOptions(); err != nil {
		return nil, nil, fmt.Errorf("loadConfig: %w", err)
	}

	return &cfg, remainingArgs, nil
}

// policy returns the admission policy described by the config.
func (cfg *config) policy() (mempool.Policy, error) {
	minRelayTxFee, err := btcutil.NewAmount(cfg.MinRelayTxFee)
	if err != nil {
		return mempool.Policy{}, fmt.Errorf("invalid minrelaytxfee: %w",
			err)
	}

	policy := mempool.Policy{
		Limits: mempool.Limits{
			MaxAncestorCount:   cfg.LimitAncestorCount,
			MaxAncestorSize:    cfg.LimitAncestorSize,
			MaxDescendantCount: cfg.LimitDescendantCount,
			MaxDescendantSize:  cfg.LimitDescendantSize,
		},
		MaxPackageCount: cfg.MaxPackageCount,
		MaxPackageSize:  cfg.MaxPackageSize,
		MinRelayTxFee:   minRelayTxFee,
	}
	if err := policy.Validate(); err != nil {
		return mempool.Policy{}, err
	}
	return policy, nil
}

// packageOptions returns the per-call options described by the config.
func (cfg *config) packageOptions() (*mempool.PackageOptions, error) {
	maxFeeRate, err := btcutil.NewAmount(cfg.MaxFeeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid maxfeerate: %w", err)
	}
	if maxFeeRate < 0 {
		return nil, fmt.Errorf("maxfeerate must not be negative, got %v",
			maxFeeRate)
	}
	return &mempool.PackageOptions{MaxFeeRate: maxFeeRate}, nil
}
