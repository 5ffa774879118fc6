// Command ashc is the Ash compiler and runtime's CLI: run a script file,
// or drop into a REPL when none is given.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	c "github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/debug"
	"github.com/ashlang/ashc/internal/modules"
	"github.com/ashlang/ashc/internal/natives"
	"github.com/ashlang/ashc/internal/vm"
)

func app() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ashc [script]",
		Short: "Compile and run an Ash script, or start a REPL",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().SortFlags = true
	defaultVerbosity := debug.Load().LogLevel
	verbosity := cmd.Flags().StringP("verbosity", "v", defaultVerbosity, "logging verbosity, defaults to $ASHC_LOG_LEVEL")
	disassembly := cmd.Flags().Bool("disassembly", false, "dump bytecode for every compiled function before running it")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			lvl, _ = logrus.ParseLevel(defaultVerbosity)
		}
		logrus.SetLevel(lvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		if len(args) == 1 {
			return runFile(args[0], *disassembly)
		}
		return repl(*disassembly)
	}
	return cmd
}

func newVM(baseDir string) *vm.VM {
	v := vm.New()
	natives.Install(v)
	loader := modules.NewLoader(baseDir)
	v.Importer = loader.Load
	return v
}

// compileAndRun compiles src, optionally dumping its full, nested
// bytecode listing to stdout before handing the compiled function to v.
func compileAndRun(v *vm.VM, src string, disassembly bool) error {
	fun, err := c.Compile(src)
	if err != nil {
		return err
	}
	if disassembly {
		fmt.Print(fun.Chunk().DisassembleAll(fun.Name()))
	}
	return v.Run(fun)
}

func runFile(path string, disassembly bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	v := newVM(filepath.Dir(path))
	if err := compileAndRun(v, string(src), disassembly); err != nil {
		logrus.Error(err)
		os.Exit(65)
	}
	return nil
}

func main() {
	_ = debug.Load() // memoize ASHC_DEBUG/ASHC_LOG_LEVEL before the first compile.
	if err := app().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
