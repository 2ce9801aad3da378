package languages

import "fmt"

// Cpp mirrors C with g++ and a main.cpp source.
type Cpp struct{}

func (Cpp) Name() string      { return "Cpp" }
func (Cpp) Aliases() []string { return []string{"c++", "cpp", "cplus", "cplusplus"} }
func (Cpp) SourceFile() string {
	return "main.cpp"
}
func (Cpp) TargetFile() string {
	return "main"
}

func (Cpp) BuildCommand(p Paths) string {
	return fmt.Sprintf("g++ %s -o %s -w -lrapl_interface", p.Source, p.Target)
}

func (Cpp) MeasureCommand(p Paths) string {
	return p.Target
}

func (Cpp) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -f %s", p.Target)
}
