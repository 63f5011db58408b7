package engine

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

// recordingRunner records commands and fails the ones listed in fail
type recordingRunner struct {
	commands []string
	fail     map[string]bool
}

func (r *recordingRunner) Run(name string, args ...string) error {
	command := strings.Join(append([]string{name}, args...), " ")
	r.commands = append(r.commands, command)
	if r.fail[command] {
		return errors.New("exit status 100")
	}
	return nil
}

func lookPathOnly(names ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, name := range names {
			if name == file {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func newTestInstaller(runner *recordingRunner, sudo bool, managers ...string) (*Installer, *bytes.Buffer) {
	var out bytes.Buffer
	return &Installer{
		Runner:   runner,
		LookPath: lookPathOnly(managers...),
		Sudo:     sudo,
		Out:      &out,
	}, &out
}

func TestInstallDependencies_MuPDF(t *testing.T) {
	runner := &recordingRunner{}
	installer, out := newTestInstaller(runner, false, "apt-get")

	if !installer.InstallDependencies() {
		t.Fatal("Expected installation to succeed")
	}
	if len(runner.commands) != 1 || runner.commands[0] != "apt-get install -y libmupdf-dev" {
		t.Errorf("Unexpected commands: %v", runner.commands)
	}
	if !strings.Contains(out.String(), "MuPDF installed successfully") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestInstallDependencies_FallsBackToPoppler(t *testing.T) {
	runner := &recordingRunner{fail: map[string]bool{"brew install mupdf": true}}
	installer, out := newTestInstaller(runner, false, "brew")

	if !installer.InstallDependencies() {
		t.Fatal("Expected fallback installation to succeed")
	}
	want := []string{"brew install mupdf", "brew install poppler"}
	if strings.Join(runner.commands, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, runner.commands)
	}
	if !strings.Contains(out.String(), "poppler installed successfully") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestInstallDependencies_BothFail(t *testing.T) {
	runner := &recordingRunner{fail: map[string]bool{
		"dnf install -y mupdf-devel":   true,
		"dnf install -y poppler-utils": true,
	}}
	installer, out := newTestInstaller(runner, false, "dnf", "yum")

	if installer.InstallDependencies() {
		t.Fatal("Expected installation to fail")
	}
	if len(runner.commands) != 2 {
		t.Errorf("Expected exactly two attempts, got %v", runner.commands)
	}
	if !strings.Contains(out.String(), "dependency installation failed") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestInstallDependencies_NoPackageManager(t *testing.T) {
	runner := &recordingRunner{}
	installer, out := newTestInstaller(runner, false)

	if installer.InstallDependencies() {
		t.Fatal("Expected installation to fail without a package manager")
	}
	if len(runner.commands) != 0 {
		t.Errorf("Expected no commands, got %v", runner.commands)
	}
	if !strings.Contains(out.String(), "install manually") {
		t.Errorf("Expected manual instructions, got %q", out.String())
	}
}

func TestInstallDependencies_Sudo(t *testing.T) {
	runner := &recordingRunner{}
	installer, _ := newTestInstaller(runner, true, "apt-get")

	installer.InstallDependencies()
	if len(runner.commands) != 1 || runner.commands[0] != "sudo apt-get install -y libmupdf-dev" {
		t.Errorf("Expected sudo prefix, got %v", runner.commands)
	}

	runner = &recordingRunner{}
	installer, _ = newTestInstaller(runner, true, "brew")
	installer.InstallDependencies()
	if len(runner.commands) != 1 || runner.commands[0] != "brew install mupdf" {
		t.Errorf("brew should never run under sudo, got %v", runner.commands)
	}
}
