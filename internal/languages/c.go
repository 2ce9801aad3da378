package languages

import "fmt"

// C compiles with gcc and links the RAPL interface library from the
// workspace root.
type C struct{}

func (C) Name() string      { return "C" }
func (C) Aliases() []string { return []string{"c"} }
func (C) SourceFile() string {
	return "main.c"
}
func (C) TargetFile() string {
	return "main"
}

func (C) BuildCommand(p Paths) string {
	return fmt.Sprintf("gcc %s -o %s -w -lrapl_interface", p.Source, p.Target)
}

func (C) MeasureCommand(p Paths) string {
	return p.Target
}

func (C) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -f %s", p.Target)
}
