// Package uninstall removes installed croner binaries after asking the user.
package uninstall

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

const binaryName = "croner"

// Env is the slice of the environment uninstall consults.
type Env struct {
	GOOS    string
	Home    string
	GoBin   string
	GoPath  string
	Program string // path of the running executable, if known
}

// CurrentEnv reads HOME (USERPROFILE on Windows), GOBIN and GOPATH.
func CurrentEnv() Env {
	e := Env{GOOS: runtime.GOOS, GoBin: os.Getenv("GOBIN"), GoPath: os.Getenv("GOPATH")}
	if e.GOOS == "windows" {
		e.Home = os.Getenv("USERPROFILE")
	} else {
		e.Home = os.Getenv("HOME")
	}
	if exe, err := os.Executable(); err == nil {
		e.Program = exe
	}
	return e
}

// Candidates lists every path a croner binary may have been installed to,
// without duplicates. Existence is not checked.
func Candidates(e Env) []string {
	name := binaryName
	if e.GOOS == "windows" {
		name += ".exe"
	}

	var dirs []string
	if e.GoBin != "" {
		dirs = append(dirs, e.GoBin)
	}
	for _, gp := range filepath.SplitList(e.GoPath) {
		if gp != "" {
			dirs = append(dirs, filepath.Join(gp, "bin"))
		}
	}
	if e.Home != "" {
		dirs = append(dirs,
			filepath.Join(e.Home, "go", "bin"),
			filepath.Join(e.Home, ".local", "bin"),
			filepath.Join(e.Home, "bin"),
		)
	}
	if e.GOOS != "windows" {
		dirs = append(dirs, "/usr/local/bin", "/usr/bin", "/opt/croner/bin")
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(dirs)+1)
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, d := range dirs {
		add(filepath.Join(d, name))
	}
	if e.Program != "" && strings.EqualFold(filepath.Base(e.Program), name) {
		add(e.Program)
	}
	return out
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// SurveyConfirmer prompts on the terminal.
type SurveyConfirmer struct{}

func (SurveyConfirmer) Confirm(message string) (bool, error) {
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

// LineConfirmer reads one line and accepts "y" or "yes" in any case. It is
// used when stdin is not a terminal.
type LineConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c LineConfirmer) Confirm(message string) (bool, error) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s [y/N]: ", message)
	}
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// DefaultConfirmer picks the survey prompt on a terminal and the line
// reader otherwise.
func DefaultConfirmer() Confirmer {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return SurveyConfirmer{}
	}
	return LineConfirmer{In: os.Stdin, Out: os.Stdout}
}

type Options struct {
	Env     Env
	Confirm Confirmer
	Out     io.Writer
	// Remove deletes one file; os.Remove when nil.
	Remove func(path string) error
}

// ErrCancelled is returned when the user declines.
var ErrCancelled = errors.New("uninstall cancelled")

// Run finds installed binaries, asks once, removes them and reports each
// result. It returns an error if any removal failed.
func Run(opts Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	remove := opts.Remove
	if remove == nil {
		remove = os.Remove
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = DefaultConfirmer()
	}

	var found []string
	for _, p := range Candidates(opts.Env) {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		fmt.Fprintln(out, "No croner installation found.")
		return nil
	}

	fmt.Fprintln(out, "Found:")
	for _, p := range found {
		fmt.Fprintf(out, "  %s\n", p)
	}
	ok, err := confirm.Confirm(fmt.Sprintf("Remove %d file(s)?", len(found)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Aborted.")
		return ErrCancelled
	}

	var errs []error
	for _, p := range found {
		if err := remove(p); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				err = fmt.Errorf("%w (try again with elevated privileges)", err)
			}
			fmt.Fprintf(out, "  failed %s: %v\n", p, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "  removed %s\n", p)
	}
	return errors.Join(errs...)
}
