package languages

import (
	"fmt"
	"os"
	"path/filepath"
)

// CSharp builds a generated project file with dotnet. The target framework
// can be overridden with -p:TargetFramework=net<version> in the benchmark
// options.
type CSharp struct{}

func (CSharp) Name() string      { return "CSharp" }
func (CSharp) Aliases() []string { return []string{"c#", "cs", "csharp"} }
func (CSharp) SourceFile() string {
	return "Program.cs"
}
func (CSharp) TargetFile() string {
	return filepath.Join("bin", "Release", "net*", "program")
}

func (CSharp) BuildCommand(p Paths) string {
	return fmt.Sprintf("dotnet build %s --nologo -v q -p:WarningLevel=0 -p:UseSharedCompilation=false", p.BenchmarkDir)
}

func (CSharp) MeasureCommand(p Paths) string {
	// sudo resets PATH, so resolve the runtime root from the dotnet binary.
	return fmt.Sprintf("env DOTNET_ROOT=$(dirname $(readlink -f $(which dotnet))) %s", p.Target)
}

func (CSharp) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -rf %s %s %s",
		filepath.Join(p.BenchmarkDir, "bin"),
		filepath.Join(p.BenchmarkDir, "obj"),
		filepath.Join(p.BenchmarkDir, "program.csproj"))
}

// Prepare writes the project file the dotnet build expects.
func (CSharp) Prepare(p Paths) error {
	csproj := `<Project Sdk="Microsoft.NET.Sdk"><PropertyGroup><TargetFramework>net9.0</TargetFramework></PropertyGroup></Project>`
	return os.WriteFile(filepath.Join(p.BenchmarkDir, "program.csproj"), []byte(csproj), 0o644)
}
