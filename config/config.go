/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package config loads the cryptocase settings from defaults, an optional
// configuration file and CRYPTOCASE_* environment variables.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables, e.g.
// CRYPTOCASE_SCAN_CHUNK_SIZE sets scan.chunk_size.
const EnvPrefix = "CRYPTOCASE"

// Config holds all settings.
type Config struct {
	// Examiner is recorded in new cases and the chain of custody.
	Examiner string `mapstructure:"examiner"`

	Log struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=console json"`
	} `mapstructure:"log"`

	Scan struct {
		ChunkSize       int    `mapstructure:"chunk_size" validate:"gte=16"`
		EvidenceKind    string `mapstructure:"evidence_kind" validate:"oneof=disk_image memory_dump config other"`
		CaptureHeaders  bool   `mapstructure:"capture_headers"`
		HeaderArchive   string `mapstructure:"header_archive" validate:"required"`
		MetricsTextfile string `mapstructure:"metrics_textfile"`
	} `mapstructure:"scan"`

	Index struct {
		// Disabled turns off the search index.
		Disabled bool   `mapstructure:"disabled"`
		File     string `mapstructure:"file" validate:"required"`
	} `mapstructure:"index"`

	Report struct {
		Format string `mapstructure:"format" validate:"oneof=json md markdown"`
	} `mapstructure:"report"`
}

// Default returns the built-in settings.
func Default() Config {
	var c Config
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Scan.ChunkSize = 1024 * 1024
	c.Scan.EvidenceKind = "disk_image"
	c.Scan.HeaderArchive = "artifacts/headers.sqlar"
	c.Index.File = "index.sqlite"
	c.Report.Format = "json"
	return c
}

// SetDefaults registers the defaults with v. Every key needs a default to
// be picked up from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("examiner", d.Examiner)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("scan.chunk_size", d.Scan.ChunkSize)
	v.SetDefault("scan.evidence_kind", d.Scan.EvidenceKind)
	v.SetDefault("scan.capture_headers", d.Scan.CaptureHeaders)
	v.SetDefault("scan.header_archive", d.Scan.HeaderArchive)
	v.SetDefault("scan.metrics_textfile", d.Scan.MetricsTextfile)
	v.SetDefault("index.disabled", d.Index.Disabled)
	v.SetDefault("index.file", d.Index.File)
	v.SetDefault("report.format", d.Report.Format)
}

// Load reads the settings into a Config. file is optional, its format is
// derived from the extension (yaml, toml, json).
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "could not read config %s", file)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	// empty values in a config file fall back to the defaults
	if err := mergo.Merge(&c, Default()); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &c, nil
}
