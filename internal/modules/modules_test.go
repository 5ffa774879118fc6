package modules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	c "github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/modules"
)

type fakeVM struct {
	globals map[string]c.Value
	ran     []c.VFun
}

func newFakeVM() *fakeVM { return &fakeVM{globals: map[string]c.Value{}} }

func (f *fakeVM) Define(name string, val c.Value) { f.globals[name] = val }
func (f *fakeVM) Run(fun c.VFun) error             { f.ran = append(f.ran, fun); return nil }

func TestLoadNativesModule(t *testing.T) {
	loader := modules.NewLoader(t.TempDir())
	target := newFakeVM()

	assert.NoError(t, loader.Load("natives", target))
	assert.NotNil(t, target.globals["len"])
}

func TestLoadFileModuleRunsItOnce(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "greet.ash"), []byte(`have greeting := "hi";`), 0o644))

	loader := modules.NewLoader(dir)
	target := newFakeVM()

	assert.NoError(t, loader.Load("greet", target))
	assert.NoError(t, loader.Load("greet", target))
	assert.Len(t, target.ran, 1, "a module's top level should run at most once per loader")
}

func TestLoadMissingFileIsRuntimeError(t *testing.T) {
	loader := modules.NewLoader(t.TempDir())
	target := newFakeVM()

	err := loader.Load("nope", target)
	assert.ErrorContains(t, err, "can't open module")
}
