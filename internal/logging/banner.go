package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mdp/qrterminal/v3"
)

// ANSI color codes.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	cyan  = "\033[36m"
	green = "\033[32m"
	dim   = "\033[2m"
)

// logoLines is the ASCII art logo printed on startup.
var logoLines = [5]string{
	`  ___ ___ ___ _  _ _____ _  _ ___ `,
	` / __/ _ \ _ \ \| |_   _| \| | __|`,
	`| (_| (_) |   / .` + "`" + ` | | | | .` + "`" + ` | _| `,
	` \___\___/_|_\_|\_| |_| |_|\_|___|`,
	`                                   `,
}

// PrintBanner prints the startup ASCII art logo, version, and listen
// address. Colors are used only when stderr is a TTY.
func PrintBanner(ver, addr string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	for _, line := range logoLines {
		if color {
			fmt.Fprintf(os.Stderr, "%s%s%s\n", bold+cyan, line, reset)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if color {
		fmt.Fprintf(os.Stderr, "\n  %sversion%s %s   %saddr%s %s\n\n", dim, reset, ver, dim, reset, addr)
	} else {
		fmt.Fprintf(os.Stderr, "\n  version %s   addr %s\n\n", ver, addr)
	}
}

// addrURL converts a listen address (e.g. ":4327") to a loggable URL hint.
func addrURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return green + "http://localhost" + addr + reset
	}
	return green + "http://" + addr + reset
}

// PrintListening prints a single "listening on <url>" line.
func PrintListening(addr string) {
	isTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if isTTY {
		fmt.Fprintf(os.Stderr, "  %s➜%s  listening on %s\n\n", bold+green, reset, addrURL(addr))
	} else {
		fmt.Fprintf(os.Stderr, "  listening on http://localhost%s\n\n", addr)
	}
}

// PrintQRCode prints a scannable QR code for the agent WebSocket endpoint's
// URL to stderr, TTY only — a convenience for pointing a phone-based agent
// runner or a quick manual test client at the right address without
// retyping it.
func PrintQRCode(wsURL string) {
	if !(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) {
		return
	}
	qrterminal.GenerateWithConfig(wsURL, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         os.Stderr,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
	})
	fmt.Fprintln(os.Stderr)
}
