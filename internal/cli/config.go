// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command handler.
//
// Command: config [show|get|set|path|keys]
//
// Examples:
//
//	taxease config                               Show effective configuration
//	taxease config get api.base_url
//	taxease config set api.base_url https://api.example.ng/api/v1
//	taxease config set chat.preserve_on_new true
//	taxease config set ui.theme light
//	taxease config path
//	taxease config keys
//
// `show` and `get` report the effective values, environment overrides
// included. `set` edits the file only.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/taxease-tui/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) {
	exitOnError(HandleConfigCommand(args), args.JSON)
}

// HandleConfigCommand dispatches a config subcommand.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath(args)
	case "keys":
		return configKeys(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown config subcommand",
			"taxease config show")
	}
}

func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config show", cfg).Print()
	}
	body, err := cfg.TOML()
	if err != nil {
		return err
	}
	fmt.Print(body)
	return nil
}

func configGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "taxease config get api.base_url")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	value, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return NewValidationErrorWithExample("key", args.ConfigKey, err.Error(), "taxease config keys")
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{"key": args.ConfigKey, "value": value}).Print()
	}
	fmt.Println(value)
	return nil
}

// configSet loads the file without environment overrides, so a
// TAXEASE_* variable set for this shell is never written back.
func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "taxease config set ui.theme light")
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return NewValidationErrorWithExample(args.ConfigKey, args.ConfigVal, err.Error(), "taxease config keys")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{
			"key":   args.ConfigKey,
			"value": args.ConfigVal,
			"path":  path,
		}).Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
	return nil
}

func configPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config path", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}

func configKeys(args Args) error {
	keys := config.Keys()
	if args.JSON {
		return NewJSONResponse("config keys", keys).Print()
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
