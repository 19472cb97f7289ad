package kernel

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/chazu/jsos/vm"
)

// mathLib backs the Math global. Its generator is per kernel so seeded runs
// are reproducible.
type mathLib struct {
	rand *rand.Rand
}

// installMath creates the Math object. A zero seed seeds from the clock.
func (k *Kernel) installMath(seed uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	k.math = &mathLib{rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}

	obj := k.VM.MakeObject()
	k.define(k.VM.Global(), "Math", obj)
	for _, f := range []struct {
		name string
		fn   func(float64) float64
	}{
		{"floor", math.Floor},
		{"round", func(x float64) float64 { return math.Floor(x + 0.5) }},
		{"cos", math.Cos},
		{"sin", math.Sin},
		{"tan", math.Tan},
		{"sqrt", math.Sqrt},
		{"abs", math.Abs},
	} {
		k.define(obj, f.name, k.VM.NewNativeFunction(f.name, f.fn, mathUnary, nil))
	}
	k.defineFunction(obj, "min", mathMin)
	k.defineFunction(obj, "max", mathMax)
	k.defineFunction(obj, "pow", mathPow)
	k.define(obj, "random", k.VM.NewNativeFunction("random", k.math, mathRandom, nil))
	k.define(obj, "PI", vm.Number(math.Pi))
}

func numberArg(machine *vm.VM, args []vm.Value, i int) (float64, error) {
	var x vm.Value
	if err := machine.ScanArgs(args[min(i, len(args)):], "n", &x); err != nil {
		return 0, err
	}
	return x.Float64(), nil
}

func mathUnary(machine *vm.VM, state any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	x, err := numberArg(machine, args, 0)
	if err != nil {
		return vm.Undefined, err
	}
	return vm.Number(state.(func(float64) float64)(x)), nil
}

// NaN arguments never compare below the running minimum and are skipped.
func mathMin(machine *vm.VM, _ any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	lo := math.Inf(1)
	for i := range args {
		x, err := numberArg(machine, args, i)
		if err != nil {
			return vm.Undefined, err
		}
		if x < lo {
			lo = x
		}
	}
	return vm.Number(lo), nil
}

func mathMax(machine *vm.VM, _ any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	hi := math.Inf(-1)
	for i := range args {
		x, err := numberArg(machine, args, i)
		if err != nil {
			return vm.Undefined, err
		}
		if x > hi {
			hi = x
		}
	}
	return vm.Number(hi), nil
}

func mathPow(machine *vm.VM, _ any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	var a, b vm.Value
	if err := machine.ScanArgs(args, "nn", &a, &b); err != nil {
		return vm.Undefined, err
	}
	return vm.Number(math.Pow(a.Float64(), b.Float64())), nil
}

func mathRandom(_ *vm.VM, state any, _ vm.Value, _ []vm.Value) (vm.Value, error) {
	return vm.Number(state.(*mathLib).rand.Float64()), nil
}
