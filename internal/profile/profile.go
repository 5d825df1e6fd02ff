// Package profile loads the desk operator's profile: who is working the
// desk and which store and metadata settings their commands use.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"librarydesk/internal/entity"
)

// Roles a desk operator may act as.
var Roles = []string{"student", "staff", "admin"}

type User struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Role string `toml:"role"`
}

type Desk struct {
	// SQLitePath selects a single-file store; empty means PostgreSQL.
	SQLitePath   string `toml:"sqlite_path"`
	Offline      bool   `toml:"offline"`
	ScanDebounce string `toml:"scan_debounce"`
	LockDir      string `toml:"lock_dir"`
}

// Profile is the on-disk operator profile.
type Profile struct {
	User User `toml:"user"`
	Desk Desk `toml:"desk"`

	debounce time.Duration
}

// Default returns the profile used when no file exists.
func Default() Profile {
	return Profile{
		User: User{Role: "staff"},
		Desk: Desk{LockDir: os.TempDir()},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/librarydesk/profile.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "librarydesk", "profile.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "librarydesk", "profile.toml"), nil
}

// Load reads path, or DefaultPath when path is empty. A missing file is not
// an error; the bool result reports whether one was read.
func Load(path string) (Profile, string, bool, error) {
	p := Default()

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Profile{}, "", false, err
		}
	}
	path, err := expandPath(path)
	if err != nil {
		return Profile{}, "", false, err
	}

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := p.normalize(); err != nil {
			return Profile{}, "", false, err
		}
		return p, path, false, nil
	case err != nil:
		return Profile{}, "", false, fmt.Errorf("open profile: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&p); err != nil {
		return Profile{}, "", false, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.normalize(); err != nil {
		return Profile{}, "", false, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, path, true, nil
}

func (p *Profile) normalize() error {
	p.User.ID = strings.TrimSpace(p.User.ID)
	p.User.Name = strings.TrimSpace(p.User.Name)
	p.User.Role = strings.ToLower(strings.TrimSpace(p.User.Role))
	if p.User.Role == "" {
		p.User.Role = "staff"
	}
	if p.Desk.LockDir == "" {
		p.Desk.LockDir = os.TempDir()
	}

	var errs []error
	if !validRole(p.User.Role) {
		errs = append(errs, fmt.Errorf("user.role %q must be one of %s", p.User.Role, strings.Join(Roles, ", ")))
	}
	if p.Desk.ScanDebounce != "" {
		d, err := time.ParseDuration(p.Desk.ScanDebounce)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("desk.scan_debounce: %w", err))
		case d < 0:
			errs = append(errs, errors.New("desk.scan_debounce must not be negative"))
		default:
			p.debounce = d
		}
	}
	for _, field := range []*string{&p.Desk.SQLitePath, &p.Desk.LockDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*field = expanded
	}
	return errors.Join(errs...)
}

func validRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ScanDebounce returns the configured window and whether one was set.
func (p Profile) ScanDebounce() (time.Duration, bool) {
	return p.debounce, p.Desk.ScanDebounce != ""
}

// Operator is the identity loans are recorded against.
func (p Profile) Operator() entity.User {
	return entity.User{ID: p.User.ID, Name: p.User.Name, Role: p.User.Role}
}

// Save writes p to path, creating parent directories.
func Save(path string, p Profile) error {
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	return filepath.Clean(value), nil
}
