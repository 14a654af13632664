package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// ScriptPath resolves which config script to load. An explicit path (from
// --config) wins over $ARXIVDL_CONFIG, which wins over the default location.
// explicit reports whether the file is required to exist.
func ScriptPath(cfg ReadOnly, flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(scriptEnv); env != "" {
		return env, true
	}
	return filepath.Join(cfg.GetConfigDir(), scriptFile), false
}

// LoadScript executes the Starlark config script at path and applies the
// globals it assigns to w. A missing file is only an error when required.
//
// Recognised names: host, user_agent, dl_dir, extract_dir, state_dir and
// jobs. Globals starting with an underscore are private to the script.
func LoadScript(w Writable, path string, required bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			slog.Debug("No config script", "path", path)
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	thread := &starlark.Thread{
		Name: "config",
		Print: func(thread *starlark.Thread, msg string) {
			slog.Info(msg, "source", path)
		},
	}
	predeclared := starlark.StringDict{
		"env": starlark.NewBuiltin("env", envBuiltin),
	}

	globals, err := starlark.ExecFile(thread, path, src, predeclared)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return fmt.Errorf("config %s: %s", path, evalErr.Backtrace())
		}
		return fmt.Errorf("config %s: %w", path, err)
	}

	return apply(w, globals)
}

func envBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, def string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return starlark.String(v), nil
	}
	return starlark.String(def), nil
}

type setter func(w Writable, v starlark.Value) error

var setters = map[string]setter{
	"host":        stringSetter(Writable.SetHost),
	"user_agent":  stringSetter(Writable.SetUserAgent),
	"dl_dir":      stringSetter(Writable.SetDownloadDir),
	"extract_dir": stringSetter(Writable.SetExtractDir),
	"state_dir":   stringSetter(Writable.SetStateDir),
	"jobs": func(w Writable, v starlark.Value) error {
		n, err := starlark.AsInt32(v)
		if err != nil {
			return fmt.Errorf("want int, got %s", v.Type())
		}
		if n < 1 {
			return fmt.Errorf("must be at least 1, got %d", n)
		}
		w.SetJobs(n)
		return nil
	},
}

func stringSetter(set func(Writable, string)) setter {
	return func(w Writable, v starlark.Value) error {
		s, ok := starlark.AsString(v)
		if !ok {
			return fmt.Errorf("want string, got %s", v.Type())
		}
		if s == "" {
			return errors.New("must not be empty")
		}
		set(w, s)
		return nil
	}
}

func apply(w Writable, globals starlark.StringDict) error {
	names := globals.Keys()
	sort.Strings(names)

	for _, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		set, ok := setters[name]
		if !ok {
			return fmt.Errorf("config: unknown setting %q", name)
		}
		if err := set(w, globals[name]); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		slog.Debug("Config override", "key", name, "value", globals[name].String())
	}
	return nil
}
