// Package hotkeys binds global X11 keyboard shortcuts to overlay actions.
package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/overlaycat/internal/config"
	"github.com/1broseidon/overlaycat/internal/platform"
)

// ErrUnsupported is returned for backends without an X11 connection.
var ErrUnsupported = errors.New("global hotkeys require the X11 backend")

// Actions are the operations hotkeys can trigger.
type Actions interface {
	ResetWindowPositions(ctx context.Context) error
	ShowOnAllMonitors(ctx context.Context) ([]string, error)
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Binding pairs a key sequence such as "Mod4-Shift-r" with an action.
type Binding struct {
	Name   string
	Keys   string
	Action func(ctx context.Context) error
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu      *xgbutil.XUtil
	root    xproto.Window
	actions Actions
	logger  *slog.Logger
	ctx     context.Context
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler. Callbacks run with ctx.
func NewHandler(ctx context.Context, backend platform.Backend, actions Actions, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, ErrUnsupported
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	xu := accessor.XUtil()
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:      xu,
		root:    accessor.RootWindow(),
		actions: actions,
		logger:  logger,
		ctx:     ctx,
	}, nil
}

// Bindings lists the configured hotkeys. Empty key sequences are skipped.
func Bindings(cfg config.HotkeyConfig, actions Actions) []Binding {
	var out []Binding
	if keys := strings.TrimSpace(cfg.Reset); keys != "" {
		out = append(out, Binding{Name: "reset", Keys: keys, Action: actions.ResetWindowPositions})
	}
	if keys := strings.TrimSpace(cfg.ShowAll); keys != "" {
		out = append(out, Binding{Name: "show_all", Keys: keys, Action: func(ctx context.Context) error {
			_, err := actions.ShowOnAllMonitors(ctx)
			return err
		}})
	}
	return out
}

// Register binds every configured hotkey. A failing binding does not prevent
// the others; the failures are returned together.
func (h *Handler) Register(cfg config.HotkeyConfig) error {
	var errs []error
	for _, b := range Bindings(cfg, h.actions) {
		err := h.RegisterFunc(b.Keys, func() {
			h.logger.Info("hotkey triggered", "action", b.Name)
			// Off the event loop: actions wait on window-system round trips.
			go func() {
				if err := b.Action(h.ctx); err != nil {
					h.logger.Warn("hotkey action failed", "action", b.Name, "error", err)
				}
			}()
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to register %s hotkey %q: %w", b.Name, b.Keys, err))
			continue
		}
		h.logger.Info("hotkey registered", "action", b.Name, "keys", b.Keys)
	}
	return errors.Join(errs...)
}

// Unregister drops every key grab on the root window.
func (h *Handler) Unregister() {
	keybind.Detach(h.xu, h.root)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
