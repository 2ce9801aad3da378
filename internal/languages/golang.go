package languages

import "fmt"

// Golang builds with the go toolchain; the RAPL interface is reached through
// cgo, so the compiler flags come in over CPATH and LIBRARY_PATH.
type Golang struct{}

func (Golang) Name() string      { return "Go" }
func (Golang) Aliases() []string { return []string{"go", "golang"} }
func (Golang) SourceFile() string {
	return "main.go"
}
func (Golang) TargetFile() string {
	return "main"
}

func (Golang) BuildCommand(p Paths) string {
	return fmt.Sprintf("go build -o %s %s", p.Target, p.Source)
}

func (Golang) MeasureCommand(p Paths) string {
	return p.Target
}

func (Golang) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -f %s", p.Target)
}
