package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ErrScriptInvalid wraps a Lua parse error from Validate.
type ErrScriptInvalid struct {
	Err error
}

func (e *ErrScriptInvalid) Error() string {
	return fmt.Sprintf("script invalid: %v", e.Err)
}

func (e *ErrScriptInvalid) Unwrap() error { return e.Err }

// Validate parses src as Lua without executing it, the same syntax check
// a real ArduPilot Lua runtime would reject the script on load with.
func Validate(src string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if _, err := L.LoadString(src); err != nil {
		return &ErrScriptInvalid{Err: err}
	}
	return nil
}
