package common

import "errors"

// ErrModulePaused rejects mutations while governance has paused a module.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switches controlled by the protocol authority.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the named module is paused. A nil view
// means no pause controls are wired and the call proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
