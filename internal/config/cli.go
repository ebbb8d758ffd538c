// Package config declares the command line and config file surface.
package config

import "github.com/Alia5/keypipe/internal/cmd"

// CLI is the root command. Flags may also come from a JSON, YAML or TOML
// config file.
type CLI struct {
	ConfigFile string `name:"config" help:"Path to a config file (JSON, YAML or TOML)" type:"path" env:"KEYPIPE_CONFIG"`
	Log        Log    `embed:"" prefix:"log."`

	Run     cmd.Run           `cmd:"" help:"Replay a scan script through a keymap and print the HID reports"`
	Live    cmd.Live          `cmd:"" help:"Scan continuously while switch changes are typed on stdin"`
	Check   cmd.Check         `cmd:"" help:"Validate keymap descriptions"`
	Plugins cmd.PluginList    `cmd:"" help:"List the registered pipeline plugins"`
	Config  cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
}

// Log holds the logging flags.
type Log struct {
	Level      string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"KEYPIPE_LOG_LEVEL"`
	File       string `help:"Write logs to this file; warnings and errors still go to stderr" type:"path" env:"KEYPIPE_LOG_FILE"`
	JSON       bool   `help:"Write the log file as JSON" env:"KEYPIPE_LOG_JSON"`
	ReportFile string `help:"Write a hex dump of every HID report to this file" type:"path" env:"KEYPIPE_LOG_REPORT_FILE"`
}
