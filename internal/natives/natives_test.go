package natives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	c "github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/natives"
)

type fakeTarget struct{ globals map[string]c.Value }

func newFakeTarget() *fakeTarget { return &fakeTarget{globals: map[string]c.Value{}} }

func (f *fakeTarget) Define(name string, val c.Value) { f.globals[name] = val }

func (f *fakeTarget) call(t *testing.T, name string, args ...c.Value) (c.Value, error) {
	t.Helper()
	fn, ok := f.globals[name].(c.VNative)
	assert.True(t, ok, "native %q not installed", name)
	return fn.Call(args)
}

func TestLenRequiresOneStringArg(t *testing.T) {
	target := newFakeTarget()
	natives.Install(target)

	val, err := target.call(t, "len", c.NewVStr("hello"))
	assert.NoError(t, err)
	assert.Equal(t, c.VNum(5), val)

	_, err = target.call(t, "len", c.VNum(1), c.VNum(2))
	assert.ErrorContains(t, err, "expected 1 arguments but got 2")

	_, err = target.call(t, "len", c.VNum(1))
	assert.ErrorContains(t, err, "must be a string")
}

func TestStrConvertsAnyValue(t *testing.T) {
	target := newFakeTarget()
	natives.Install(target)

	val, err := target.call(t, "str", c.VNum(42))
	assert.NoError(t, err)
	assert.Equal(t, c.NewVStr("42"), val)
}

func TestNumCoercesTruthiness(t *testing.T) {
	target := newFakeTarget()
	natives.Install(target)

	val, err := target.call(t, "num", c.VBool(false))
	assert.NoError(t, err)
	assert.Equal(t, c.VNum(0), val)

	val, err = target.call(t, "num", c.NewValue())
	assert.NoError(t, err)
	assert.Equal(t, c.VNum(0), val)

	val, err = target.call(t, "num", c.VNum(7))
	assert.NoError(t, err)
	assert.Equal(t, c.VNum(7), val)

	val, err = target.call(t, "num", c.NewVStr("anything"))
	assert.NoError(t, err)
	assert.Equal(t, c.VNum(1), val)
}

func TestClockTakesNoArgs(t *testing.T) {
	target := newFakeTarget()
	natives.Install(target)

	val, err := target.call(t, "clock")
	assert.NoError(t, err)
	_, ok := val.(c.VNum)
	assert.True(t, ok)
}
