// Package open hands finished downloads over to the desktop.
package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/anisan-cli/anidl/constant"
)

// File launches path with app, or with the default handler when app is empty.
// It returns once the handler has started.
func File(path, app string) error {
	cmd, err := command(runtime.GOOS, path, app)
	if err != nil {
		return err
	}
	return cmd.Start()
}

// Folder opens the directory containing path in the file manager.
func Folder(path string) error {
	return File(filepath.Dir(path), "")
}

func command(goos, input, app string) (*exec.Cmd, error) {
	switch goos {
	case constant.Windows:
		if app != "" {
			return exec.Command("cmd", "/C", "start", "", app, input), nil
		}
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		return exec.Command(rundll, "url.dll,FileProtocolHandler", input), nil
	case constant.Darwin:
		if app != "" {
			return exec.Command("open", "-a", app, input), nil
		}
		return exec.Command("open", input), nil
	case constant.Linux:
		if app != "" {
			return exec.Command(app, input), nil
		}
		return exec.Command("xdg-open", input), nil
	case constant.Android:
		return exec.Command("termux-open", input), nil
	default:
		return nil, fmt.Errorf("opening files is not supported on %s", goos)
	}
}
