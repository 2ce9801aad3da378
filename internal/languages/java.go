package languages

import "fmt"

// Java compiles into the benchmark directory and runs the resolved java
// binary so sudo does not strip it from PATH.
type Java struct{}

func (Java) Name() string      { return "Java" }
func (Java) Aliases() []string { return []string{"java", "openjdk", "graalvm", "semeru"} }
func (Java) SourceFile() string {
	return "Program.java"
}
func (Java) TargetFile() string {
	return "Program"
}

func classpathFlag(p Paths) string {
	return fmt.Sprintf("-cp %s:%s", p.BaseDir, p.BenchmarkDir)
}

func (Java) BuildCommand(p Paths) string {
	return fmt.Sprintf("javac -nowarn -d %s %s %s", p.BenchmarkDir, classpathFlag(p), p.Source)
}

func (j Java) MeasureCommand(p Paths) string {
	return fmt.Sprintf("$(which java) --enable-native-access=ALL-UNNAMED %s %s", classpathFlag(p), j.TargetFile())
}

func (Java) CleanCommand(p Paths) string {
	return fmt.Sprintf("rm -f %s/*.class", p.BenchmarkDir)
}
