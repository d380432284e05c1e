// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads a4f's Settings: an explicit, read-only object
// threaded through command execution rather than a process-wide singleton.
// Settings are sourced from environment variables, optionally overlaid by
// a TOML file for multi-environment developer setups.
package config

import (
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/aliens4friends/a4f/internal/a4ferr"
	"github.com/aliens4friends/a4f/internal/logging"
)

// ScancodeMode selects how the external scanner is invoked.
type ScancodeMode string

const (
	ScancodeNative  ScancodeMode = "native"
	ScancodeWrapper ScancodeMode = "wrapper"
)

// Settings is the read-only configuration object threaded through every
// command's execution. Construct with Load; never mutate after.
type Settings struct {
	PoolPath       string // A4F_POOL, required
	PoolMirror     string // A4F_POOL_MIRROR, optional gs:// write-through mirror
	Cache          bool   // A4F_CACHE, default true
	LogLevel       logging.Level
	Scancode       ScancodeMode // A4F_SCANCODE
	PrintResult    bool         // A4F_PRINTRESULT
	SpdxToolsCmd   string       // SPDX_TOOLS_CMD
	SpdxDisclaimer string       // SPDX_DISCLAIMER
	PackageIDExt   string       // PACKAGE_ID_EXT

	FossyUser    string // FOSSY_USER
	FossyPass    string // FOSSY_PASSWORD
	FossyGroupID string // FOSSY_GROUP_ID
	FossyServer  string // FOSSY_SERVER

	LockKey string // A4F_LOCK_KEY

	MirrorDBHost string
	MirrorDBPort string
	MirrorDBName string
	MirrorDBUser string
	MirrorDBPass string
}

// fileOverlay mirrors the subset of Settings that may come from a TOML
// config file; field names match the TOML keys verbatim.
type fileOverlay struct {
	Pool     string `toml:"pool"`
	Cache    *bool  `toml:"cache"`
	LogLevel string `toml:"loglevel"`
	Scancode string `toml:"scancode"`

	FossyUser     string `toml:"fossy_user"`
	FossyPassword string `toml:"fossy_password"`
	FossyGroupID  string `toml:"fossy_group_id"`
	FossyServer   string `toml:"fossy_server"`

	MirrorDB struct {
		Host, Port, DBName, User, Password string
	} `toml:"mirror_db"`
}

// Load builds Settings from the environment, then applies a TOML file
// overlay when configPath is non-empty. For the pool path, the fossy_*
// fields and mirror_db, a file value only fills a setting whose
// environment variable is empty. The file's cache, loglevel and scancode
// values, when present, override the environment.
func Load(configPath string) (*Settings, error) {
	s := &Settings{
		PoolPath:       os.Getenv("A4F_POOL"),
		PoolMirror:     os.Getenv("A4F_POOL_MIRROR"),
		Cache:          envBoolDefault("A4F_CACHE", true),
		LogLevel:       logging.ParseLevel(os.Getenv("A4F_LOGLEVEL")),
		Scancode:       ScancodeMode(envDefault("A4F_SCANCODE", string(ScancodeNative))),
		PrintResult:    envBoolDefault("A4F_PRINTRESULT", false),
		SpdxToolsCmd:   os.Getenv("SPDX_TOOLS_CMD"),
		SpdxDisclaimer: os.Getenv("SPDX_DISCLAIMER"),
		PackageIDExt:   os.Getenv("PACKAGE_ID_EXT"),
		FossyUser:      os.Getenv("FOSSY_USER"),
		FossyPass:      os.Getenv("FOSSY_PASSWORD"),
		FossyGroupID:   os.Getenv("FOSSY_GROUP_ID"),
		FossyServer:    os.Getenv("FOSSY_SERVER"),
		LockKey:        os.Getenv("A4F_LOCK_KEY"),
		MirrorDBHost:   os.Getenv("MIRROR_DB_HOST"),
		MirrorDBPort:   os.Getenv("MIRROR_DB_PORT"),
		MirrorDBName:   os.Getenv("MIRROR_DB_DBNAME"),
		MirrorDBUser:   os.Getenv("MIRROR_DB_USER"),
		MirrorDBPass:   os.Getenv("MIRROR_DB_PASSWORD"),
	}
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrapf(a4ferr.ErrConfig, "reading config file: %v", err)
		}
		var overlay fileOverlay
		if err := toml.Unmarshal(b, &overlay); err != nil {
			return nil, errors.Wrapf(a4ferr.ErrConfig, "parsing config file: %v", err)
		}
		applyOverlay(s, &overlay)
	}
	if s.PoolPath == "" {
		return nil, errors.Wrap(a4ferr.ErrConfig, "A4F_POOL is required")
	}
	return s, nil
}

func applyOverlay(s *Settings, o *fileOverlay) {
	if s.PoolPath == "" && o.Pool != "" {
		s.PoolPath = o.Pool
	}
	if o.Cache != nil {
		s.Cache = *o.Cache
	}
	if o.LogLevel != "" {
		s.LogLevel = logging.ParseLevel(o.LogLevel)
	}
	if o.Scancode != "" {
		s.Scancode = ScancodeMode(o.Scancode)
	}
	if s.FossyUser == "" {
		s.FossyUser = o.FossyUser
	}
	if s.FossyPass == "" {
		s.FossyPass = o.FossyPassword
	}
	if s.FossyGroupID == "" {
		s.FossyGroupID = o.FossyGroupID
	}
	if s.FossyServer == "" {
		s.FossyServer = o.FossyServer
	}
	if s.MirrorDBHost == "" {
		s.MirrorDBHost = o.MirrorDB.Host
	}
	if s.MirrorDBPort == "" {
		s.MirrorDBPort = o.MirrorDB.Port
	}
	if s.MirrorDBName == "" {
		s.MirrorDBName = o.MirrorDB.DBName
	}
	if s.MirrorDBUser == "" {
		s.MirrorDBUser = o.MirrorDB.User
	}
	if s.MirrorDBPass == "" {
		s.MirrorDBPass = o.MirrorDB.Password
	}
}

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBoolDefault(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
