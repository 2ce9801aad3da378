package languages

import "fmt"

// Rust links against the cdylib RAPL interface next to the workspace root.
type Rust struct{}

func (Rust) Name() string      { return "Rust" }
func (Rust) Aliases() []string { return []string{"rust", "rs"} }
func (Rust) SourceFile() string {
	return "main.rs"
}
func (Rust) TargetFile() string {
	return "main"
}

func (Rust) BuildCommand(p Paths) string {
	return fmt.Sprintf("rustc -O -L %s -l rapl_interface %s -o %s", p.BaseDir, p.Source, p.Target)
}

func (Rust) MeasureCommand(p Paths) string {
	return p.Target
}

func (Rust) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -f %s", p.Target)
}
