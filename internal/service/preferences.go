package service

import (
	"fmt"
	"sync"

	"github.com/medistore/medistore/internal/domain/storage"
)

// ThemeMode is the user's colour scheme choice.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// themeState is the persisted theme document.
type themeState struct {
	State struct {
		Mode ThemeMode `json:"mode"`
	} `json:"state"`
	Version int `json:"version"`
}

// Preferences holds device-local settings: the theme and whether onboarding
// was completed. Both survive restarts through the key-value store.
type Preferences struct {
	store      storage.Store
	systemDark func() bool
	mu         sync.Mutex
}

// NewPreferences creates the preferences service. systemDark reports the
// platform's scheme for ThemeSystem; nil means light.
func NewPreferences(store storage.Store, systemDark func() bool) *Preferences {
	if systemDark == nil {
		systemDark = func() bool { return false }
	}
	return &Preferences{store: store, systemDark: systemDark}
}

// Theme returns the stored mode. A missing or unreadable value is
// ThemeSystem.
func (p *Preferences) Theme() ThemeMode {
	st, ok := storage.GetObject[themeState](p.store, storage.KeyTheme)
	if !ok || !validTheme(st.State.Mode) {
		return ThemeSystem
	}
	return st.State.Mode
}

// IsDark resolves the stored mode against the platform scheme.
func (p *Preferences) IsDark() bool {
	return p.resolve(p.Theme())
}

// SetTheme stores mode.
func (p *Preferences) SetTheme(mode ThemeMode) error {
	if !validTheme(mode) {
		return fmt.Errorf("unknown theme %q (want light, dark or system)", mode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(mode)
}

// ToggleTheme switches to the opposite of what is currently shown and
// returns the new mode. ThemeSystem resolves first, so the result is always
// explicit.
func (p *Preferences) ToggleTheme() (ThemeMode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := ThemeDark
	if p.resolve(p.Theme()) {
		next = ThemeLight
	}
	return next, p.write(next)
}

// OnboardingComplete reports whether onboarding was finished.
func (p *Preferences) OnboardingComplete() bool {
	done, ok := storage.GetBool(p.store, storage.KeyOnboardingComplete)
	return ok && done
}

// SetOnboardingComplete records onboarding state.
func (p *Preferences) SetOnboardingComplete(done bool) error {
	return storage.SetBool(p.store, storage.KeyOnboardingComplete, done)
}

func (p *Preferences) resolve(mode ThemeMode) bool {
	if mode == ThemeSystem {
		return p.systemDark()
	}
	return mode == ThemeDark
}

func (p *Preferences) write(mode ThemeMode) error {
	var st themeState
	st.State.Mode = mode
	if err := storage.SetObject(p.store, storage.KeyTheme, st); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	return nil
}

func validTheme(m ThemeMode) bool {
	return m == ThemeLight || m == ThemeDark || m == ThemeSystem
}
