package engine

import (
	"fmt"
	"io"
	"os/exec"
)

// CommandRunner runs an external command to completion
type CommandRunner interface {
	Run(name string, args ...string) error
}

type execRunner struct {
	out io.Writer
}

func (r execRunner) Run(name string, args ...string) error {
	installCMD := exec.Command(name, args...)
	installCMD.Stdout = r.out
	installCMD.Stderr = r.out
	Logger.Debug("Running install command", "command", installCMD.String())
	return installCMD.Run()
}

// PackageManager describes how to install the MuPDF library and the poppler tools
type PackageManager struct {
	Name            string
	InstallArgs     []string
	MuPDFPackages   []string
	PopplerPackages []string
	NeedsRoot       bool
}

// packageManagers are probed in order, the first one on PATH is used
var packageManagers = []PackageManager{
	{Name: "apt-get", InstallArgs: []string{"install", "-y"}, MuPDFPackages: []string{"libmupdf-dev"}, PopplerPackages: []string{"poppler-utils"}, NeedsRoot: true},
	{Name: "dnf", InstallArgs: []string{"install", "-y"}, MuPDFPackages: []string{"mupdf-devel"}, PopplerPackages: []string{"poppler-utils"}, NeedsRoot: true},
	{Name: "yum", InstallArgs: []string{"install", "-y"}, MuPDFPackages: []string{"mupdf-devel"}, PopplerPackages: []string{"poppler-utils"}, NeedsRoot: true},
	{Name: "brew", InstallArgs: []string{"install"}, MuPDFPackages: []string{"mupdf"}, PopplerPackages: []string{"poppler"}},
}

// Installer installs rendering dependencies with the system package manager.
// It is only used by --install-deps and never during conversion.
type Installer struct {
	Runner   CommandRunner
	LookPath func(file string) (string, error)
	Sudo     bool
	Out      io.Writer
}

// NewInstaller creates an installer that runs real package manager commands
func NewInstaller(out io.Writer, sudo bool) *Installer {
	return &Installer{
		Runner:   execRunner{out: out},
		LookPath: exec.LookPath,
		Sudo:     sudo,
		Out:      out,
	}
}

// detectPackageManager returns the first supported package manager found on PATH
func (i *Installer) detectPackageManager() (PackageManager, bool) {
	for _, pm := range packageManagers {
		if _, err := i.LookPath(pm.Name); err == nil {
			return pm, true
		}
	}
	return PackageManager{}, false
}

func (i *Installer) install(pm PackageManager, packages []string) error {
	args := append(append([]string{}, pm.InstallArgs...), packages...)
	if i.Sudo && pm.NeedsRoot {
		return i.Runner.Run("sudo", append([]string{pm.Name}, args...)...)
	}
	return i.Runner.Run(pm.Name, args...)
}

// InstallDependencies tries to install MuPDF and falls back to poppler-utils.
// It reports progress to Out and returns whether either installation succeeded.
func (i *Installer) InstallDependencies() bool {
	fmt.Fprintln(i.Out, "installing dependencies...")

	pm, found := i.detectPackageManager()
	if !found {
		Logger.Error("No supported package manager found")
		fmt.Fprintln(i.Out, "no supported package manager found (apt-get, dnf, yum, brew)")
		fmt.Fprint(i.Out, manualInstructions)
		return false
	}
	Logger.Info("Installing dependencies", "packageManager", pm.Name)

	err := i.install(pm, pm.MuPDFPackages)
	if err == nil {
		fmt.Fprintln(i.Out, "MuPDF installed successfully!")
		return true
	}
	Logger.Warn("MuPDF installation failed", "packageManager", pm.Name, "error", err)
	fmt.Fprintln(i.Out, "MuPDF installation failed, trying poppler...")

	err = i.install(pm, pm.PopplerPackages)
	if err == nil {
		fmt.Fprintln(i.Out, "poppler installed successfully!")
		fmt.Fprintln(i.Out, "note: the poppler backend runs pdftoppm, make sure it is on your PATH")
		fmt.Fprint(i.Out, popplerInstructions)
		return true
	}
	Logger.Error("poppler installation failed", "packageManager", pm.Name, "error", err)
	fmt.Fprintln(i.Out, "dependency installation failed!")
	return false
}

const popplerInstructions = `Ubuntu/Debian: sudo apt-get install poppler-utils
CentOS/RHEL: sudo yum install poppler-utils
macOS: brew install poppler
`

const manualInstructions = `
or install manually:
  MuPDF (recommended):
    Ubuntu/Debian: sudo apt-get install libmupdf-dev
    CentOS/RHEL: sudo yum install mupdf-devel
    macOS: brew install mupdf
  or poppler:
    Ubuntu/Debian: sudo apt-get install poppler-utils
    CentOS/RHEL: sudo yum install poppler-utils
    macOS: brew install poppler
`

// RemediationText tells the operator how to get a rendering backend
func RemediationText() string {
	return "error: no usable PDF conversion backend found!\n" +
		"run the following command to install dependencies:\n" +
		"pdf2png --install-deps\n" +
		manualInstructions
}
