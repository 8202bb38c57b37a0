// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fraunhofer-AISEC/mrverify/eventlog"
	"github.com/Fraunhofer-AISEC/mrverify/ima"
	"github.com/Fraunhofer-AISEC/mrverify/internal"
	"github.com/Fraunhofer-AISEC/mrverify/quote"
	"github.com/Fraunhofer-AISEC/mrverify/store"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/exp/maps"
)

type Config struct {
	Rtmrs          []int             `json:"rtmrs"`
	LogLevel       string            `json:"logLevel"`
	LogFile        string            `json:"logFile"`
	Ccel           string            `json:"ccel"`
	EventlogJson   string            `json:"eventlogJson,omitempty"`
	Ima            string            `json:"ima"`
	Cmdline        string            `json:"cmdline"`
	IncludeRuntime *bool             `json:"includeRuntime,omitempty"` // Detected from the kernel command line if not set
	Reference      string            `json:"reference,omitempty"`
	Reported       map[string]string `json:"reported,omitempty"` // RTMR index -> base64 value
	ReportedFile   string            `json:"reportedFile,omitempty"`
	Quote          string            `json:"quote,omitempty"`
	QuoteType      string            `json:"quoteType"`
	Live           bool              `json:"live,omitempty"`
	Nonce          string            `json:"nonce,omitempty"` // Hex encoded
	Format         string            `json:"format"`
	Out            string            `json:"out,omitempty"`
	Db             string            `json:"db,omitempty"`
	DbTable        string            `json:"dbTable"`
	DbMaxRows      int               `json:"dbMaxRows"`
}

const (
	// Global flags
	configFlag   = "config"
	logLevelFlag = "log-level"
	logFileFlag  = "log-file"
	rtmrsFlag    = "rtmrs"

	// Input flags
	ccelFlag         = "ccel"
	eventlogJsonFlag = "eventlog-json"
	imaFlag          = "ima"
	cmdlineFlag      = "cmdline"
	runtimeFlag      = "runtime"
	noRuntimeFlag    = "no-runtime"
	referenceFlag    = "reference"
	reportedFlag     = "reported"
	reportedFileFlag = "reported-file"
	quoteFlag        = "quote"
	quoteTypeFlag    = "quote-type"
	inFlag           = "in"
	liveFlag         = "live"
	nonceFlag        = "nonce"

	// Output flags
	formatFlag = "format"
	outFlag    = "out"
	dbFlag     = "db"
	idFlag     = "id"
	fullFlag   = "full"
	latestFlag = "latest"
	importFlag = "import"
)

var (
	// Log file opened via --log-file, closed on exit
	logFile *os.File

	logLevels = map[string]logrus.Level{
		"panic": logrus.PanicLevel,
		"fatal": logrus.FatalLevel,
		"error": logrus.ErrorLevel,
		"warn":  logrus.WarnLevel,
		"info":  logrus.InfoLevel,
		"debug": logrus.DebugLevel,
		"trace": logrus.TraceLevel,
	}
)

// Flags are created per command as they keep their parse state
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  configFlag,
			Usage: "JSON configuration file(s), comma-separated",
		},
		&cli.StringFlag{
			Name:  logLevelFlag,
			Usage: fmt.Sprintf("set log level. Possible: %v", strings.Join(maps.Keys(logLevels), ",")),
		},
		&cli.StringFlag{
			Name:  logFileFlag,
			Usage: "optional file to log to instead of stderr",
		},
		&cli.StringFlag{
			Name:  rtmrsFlag,
			Usage: "RTMRs to verify (comma-separated list of indices 0-3)",
		},
	}
}

func bootLogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  ccelFlag,
			Usage: "binary CC event log (ACPI CCEL table)",
		},
		&cli.StringFlag{
			Name:  eventlogJsonFlag,
			Usage: "JSON boot event log, used instead of the CCEL if set",
		},
		&cli.StringFlag{
			Name:  imaFlag,
			Usage: "IMA ascii runtime measurement list",
		},
		&cli.StringFlag{
			Name:  cmdlineFlag,
			Usage: "kernel command line used to detect whether IMA measures into RTMR2",
		},
		&cli.BoolFlag{
			Name:  runtimeFlag,
			Usage: "include the IMA runtime measurements in RTMR2",
		},
		&cli.BoolFlag{
			Name:  noRuntimeFlag,
			Usage: "do not include the IMA runtime measurements in RTMR2",
		},
	}
}

func newQuoteTypeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  quoteTypeFlag,
		Usage: fmt.Sprintf("type of the quote file (%v, %v)", quote.TypeTdx, quote.TypeTpm),
	}
}

func liveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  liveFlag,
			Usage: "retrieve a quote from the running trust domain via configfs",
		},
		&cli.StringFlag{
			Name:  nonceFlag,
			Usage: "hex encoded nonce for live quotes (random if not set)",
		},
	}
}

func defaultConfig() *Config {
	return &Config{
		Rtmrs:     []int{0, 1, 2, 3},
		LogLevel:  "info",
		Ccel:      eventlog.DEFAULT_CCEL_ACPI_TABLE,
		Ima:       ima.DEFAULT_ASCII_RUNTIME_MEASUREMENTS,
		Cmdline:   ima.DEFAULT_CMDLINE,
		QuoteType: string(quote.TypeTdx),
		Format:    "json",
		DbTable:   store.DefaultTable,
		DbMaxRows: store.DefaultMaxRows,
	}
}

// getConfig assembles the configuration from the defaults, the optional
// configuration files and the command line, in ascending precedence
func getConfig(cmd *cli.Command) (*Config, error) {

	c := defaultConfig()

	if cmd.IsSet(configFlag) {
		for _, f := range strings.Split(cmd.String(configFlag), ",") {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %v: %w", f, err)
			}
			err = json.Unmarshal(data, c)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file %v: %w", f, err)
			}
			// Paths within the config file are relative to the config file
			resolvePaths(c, filepath.Dir(f))
		}
	}

	if cmd.IsSet(rtmrsFlag) {
		rtmrs, err := internal.ParseIndexList(cmd.String(rtmrsFlag))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RTMRs: %w", err)
		}
		c.Rtmrs = rtmrs
	}
	if cmd.IsSet(logLevelFlag) {
		c.LogLevel = cmd.String(logLevelFlag)
	}
	if cmd.IsSet(logFileFlag) {
		c.LogFile = cmd.String(logFileFlag)
	}
	if cmd.IsSet(ccelFlag) {
		c.Ccel = cmd.String(ccelFlag)
	}
	if cmd.IsSet(eventlogJsonFlag) {
		c.EventlogJson = cmd.String(eventlogJsonFlag)
	}
	if cmd.IsSet(imaFlag) {
		c.Ima = cmd.String(imaFlag)
	}
	if cmd.IsSet(cmdlineFlag) {
		c.Cmdline = cmd.String(cmdlineFlag)
	}
	if cmd.IsSet(runtimeFlag) && cmd.IsSet(noRuntimeFlag) {
		return nil, fmt.Errorf("flags --%v and --%v are mutually exclusive", runtimeFlag, noRuntimeFlag)
	}
	if cmd.IsSet(runtimeFlag) {
		v := cmd.Bool(runtimeFlag)
		c.IncludeRuntime = &v
	}
	if cmd.IsSet(noRuntimeFlag) {
		v := !cmd.Bool(noRuntimeFlag)
		c.IncludeRuntime = &v
	}
	if cmd.IsSet(referenceFlag) {
		c.Reference = cmd.String(referenceFlag)
	}
	if cmd.IsSet(reportedFlag) {
		m, err := parseReportedFlags(cmd.StringSlice(reportedFlag))
		if err != nil {
			return nil, err
		}
		c.Reported = m
	}
	if cmd.IsSet(reportedFileFlag) {
		c.ReportedFile = cmd.String(reportedFileFlag)
	}
	if cmd.IsSet(quoteFlag) {
		c.Quote = cmd.String(quoteFlag)
	}
	if cmd.IsSet(inFlag) {
		c.Quote = cmd.String(inFlag)
	}
	if cmd.IsSet(quoteTypeFlag) {
		c.QuoteType = cmd.String(quoteTypeFlag)
	}
	if cmd.IsSet(liveFlag) {
		c.Live = cmd.Bool(liveFlag)
	}
	if cmd.IsSet(nonceFlag) {
		c.Nonce = cmd.String(nonceFlag)
	}
	if cmd.IsSet(formatFlag) {
		c.Format = cmd.String(formatFlag)
	}
	if cmd.IsSet(outFlag) {
		c.Out = cmd.String(outFlag)
	}
	if cmd.IsSet(dbFlag) {
		c.Db = cmd.String(dbFlag)
	}

	err := configureLogging(c)
	if err != nil {
		return nil, err
	}

	c.Print()

	return c, nil
}

func configureLogging(c *Config) error {
	if c.LogFile != "" {
		lf, err := filepath.Abs(c.LogFile)
		if err != nil {
			return fmt.Errorf("failed to get logfile path: %w", err)
		}
		file, err := os.OpenFile(lf, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open logfile: %w", err)
		}
		closeLogFile()
		logrus.SetOutput(file)
		logFile = file
	}

	if c.LogLevel != "" {
		l, ok := logLevels[strings.ToLower(c.LogLevel)]
		if !ok {
			log.Warnf("LogLevel %v does not exist. Default to info level", c.LogLevel)
			l = logrus.InfoLevel
		}
		logrus.SetLevel(l)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	return nil
}

// closeLogFile closes the log file opened by configureLogging, if any, and
// restores logging to stderr
func closeLogFile() {
	if logFile == nil {
		return
	}
	logrus.SetOutput(os.Stderr)
	if err := logFile.Close(); err != nil {
		log.Warnf("Failed to close logfile: %v", err)
	}
	logFile = nil
}

func resolvePaths(c *Config, base string) {
	for _, p := range []*string{&c.Ccel, &c.EventlogJson, &c.Ima, &c.Cmdline, &c.Reference,
		&c.ReportedFile, &c.Quote, &c.Db} {
		if *p == "" {
			continue
		}
		resolved, err := internal.GetFilePath(*p, &base)
		if err != nil {
			continue
		}
		*p = resolved
	}
}

// bootLogSource returns the path and format of the configured boot event log
func (c *Config) bootLogSource() (string, string) {
	if c.EventlogJson != "" {
		return c.EventlogJson, eventlog.FormatJson
	}
	return c.Ccel, eventlog.FormatCcel
}

func (c *Config) Print() {
	log.Debugf("Using the following configuration:")
	log.Debugf("\tRTMRs            : %v", c.Rtmrs)
	log.Debugf("\tLogLevel         : %v", c.LogLevel)
	if c.LogFile != "" {
		log.Debugf("\tLogFile          : %v", c.LogFile)
	}
	path, format := c.bootLogSource()
	log.Debugf("\tBoot Event Log   : %v (%v)", path, format)
	log.Debugf("\tIMA Runtime Log  : %v", c.Ima)
	log.Debugf("\tKernel Cmdline   : %v", c.Cmdline)
	if c.IncludeRuntime != nil {
		log.Debugf("\tInclude Runtime  : %v", *c.IncludeRuntime)
	} else {
		log.Debugf("\tInclude Runtime  : detect")
	}
	if c.Reference != "" {
		log.Debugf("\tReference        : %v", c.Reference)
	}
	if len(c.Reported) > 0 {
		log.Debugf("\tReported RTMRs   : %v", strings.Join(maps.Keys(c.Reported), ","))
	}
	if c.ReportedFile != "" {
		log.Debugf("\tReported File    : %v", c.ReportedFile)
	}
	if c.Quote != "" {
		log.Debugf("\tQuote            : %v (%v)", c.Quote, c.QuoteType)
	}
	log.Debugf("\tLive Quote       : %v", c.Live)
	log.Debugf("\tFormat           : %v", c.Format)
	if c.Out != "" {
		log.Debugf("\tOutput           : %v", c.Out)
	}
	if c.Db != "" {
		log.Debugf("\tDatabase         : %v (table %v, max. %v rows)", c.Db, c.DbTable, c.DbMaxRows)
	}
}
