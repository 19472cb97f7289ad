// Package kernel boots a VM as the sole environment of a script kernel. It
// installs the host bindings (console, Kernel, Math), fills the module
// registry and hands control to the init image.
package kernel

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/jsos/config"
	"github.com/chazu/jsos/image"
	"github.com/chazu/jsos/interp"
	"github.com/chazu/jsos/vm"
)

// HaltError is returned by Boot when the kernel stops for good: the init
// image is missing or broken, or an exception reached the top level.
type HaltError struct {
	Message string

	// Exception is set when the halt was caused by an unhandled throw.
	Exception *vm.Exception
}

func (e *HaltError) Error() string {
	return e.Message
}

func (e *HaltError) Unwrap() error {
	if e.Exception == nil {
		return nil
	}
	return e.Exception
}

// Kernel owns a VM and its host bindings.
type Kernel struct {
	VM     *vm.VM
	Interp *interp.Interpreter

	config  *config.Config
	console io.Writer
	object  vm.Value
	modules vm.Value
	math    *mathLib
	log     commonlog.Logger
}

// New creates a kernel from cfg, writing console output to console. A nil
// cfg selects the defaults rooted at the working directory; a nil console
// selects stdout. A heap limit too small for the library objects is
// reported as *vm.Fatal.
func New(cfg *config.Config, console io.Writer) (_ *Kernel, err error) {
	defer vm.RecoverFatal(&err)

	if cfg == nil {
		cfg = config.Default(".")
	}
	if console == nil {
		console = os.Stdout
	}
	machine := vm.New(vm.Options{
		HeapLimit:    cfg.Heap.Limit,
		MaxCallDepth: cfg.Kernel.MaxCallDepth,
	})
	k := &Kernel{
		VM:      machine,
		Interp:  interp.New(machine),
		config:  cfg,
		console: console,
		object:  vm.Undefined,
		modules: vm.Undefined,
		log:     commonlog.GetLogger("jsos.kernel"),
	}
	machine.Heap.RegisterRoot(k)

	k.installConsole()
	k.installKernel()
	k.installMath(cfg.Kernel.Seed)
	return k, nil
}

// TraceRoots keeps the Kernel object and the module registry alive even if
// scripts drop their global bindings.
func (k *Kernel) TraceRoots(t *vm.Tracer) {
	t.Mark(k.object)
	t.Mark(k.modules)
}

// Config returns the configuration the kernel was built from.
func (k *Kernel) Config() *config.Config {
	return k.config
}

// Modules returns the registry object exposed as Kernel.modules.
func (k *Kernel) Modules() vm.Value {
	return k.modules
}

// ---------------------------------------------------------------------------
// Boot
// ---------------------------------------------------------------------------

// Boot loads the configured module directories, then runs the init module
// at global scope with this bound to null. It returns when the init image
// finishes. Host-fatal violations raised while running are returned as
// *vm.Fatal.
func (k *Kernel) Boot() (err error) {
	defer vm.RecoverFatal(&err)

	if err := k.LoadModuleDirs(k.config.ModuleDirPaths()); err != nil {
		return err
	}

	name := k.config.Kernel.Init
	data, err := k.VM.Get(k.modules, name)
	if err != nil || !k.VM.IsString(data) {
		return &HaltError{Message: fmt.Sprintf("could not load %s", name)}
	}
	img, err := image.Parse([]byte(k.VM.StringOf(data)))
	if err != nil {
		return &HaltError{Message: fmt.Sprintf("could not parse %s: %v", name, err)}
	}

	k.log.Info("handing over control to JavaScript")
	if _, err := k.VM.Exec(img, 0, k.VM.GlobalScope, vm.Null, nil); err != nil {
		ex, ok := vm.AsException(err)
		if !ok {
			return err
		}
		msg := "Unhandled exception: " + ex.Error()
		k.log.Critical(msg)
		return &HaltError{Message: msg, Exception: ex}
	}
	k.log.Info("init image returned")
	return nil
}

// Run executes an already decoded image at global scope, as loadImage does.
func (k *Kernel) Run(img *vm.Image) (result vm.Value, err error) {
	defer vm.RecoverFatal(&err)
	return k.VM.Exec(img, 0, k.VM.GlobalScope, vm.Null, nil)
}

// ---------------------------------------------------------------------------
// Host bindings
// ---------------------------------------------------------------------------

func (k *Kernel) define(obj vm.Value, name string, v vm.Value) {
	if err := k.VM.Put(obj, name, v); err != nil {
		vm.Panicf("cannot install %s: %v", name, err)
	}
}

func (k *Kernel) defineFunction(obj vm.Value, name string, fn vm.NativeFunc) {
	k.define(obj, name, k.VM.NewNativeFunction(name, k, fn, nil))
}

func (k *Kernel) installConsole() {
	console := k.VM.MakeObject()
	k.defineFunction(console, "log", k.consoleLog)
	k.define(k.VM.Global(), "console", console)
}

func (k *Kernel) installKernel() {
	k.object = k.VM.MakeObject()
	k.define(k.VM.Global(), "Kernel", k.object)
	k.defineFunction(k.object, "loadImage", k.loadImage)
	k.defineFunction(k.object, "memoryUsage", k.memoryUsage)
	k.defineFunction(k.object, "runGC", k.runGC)

	k.modules = k.VM.MakeObject()
	k.define(k.object, "modules", k.modules)
}

// consoleLog writes its arguments converted with ToString, separated by
// spaces and terminated by a newline.
func (k *Kernel) consoleLog(machine *vm.VM, _ any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	var sb strings.Builder
	for i, a := range args {
		s, err := machine.ToGoString(a)
		if err != nil {
			return vm.Undefined, err
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(k.console, sb.String()); err != nil {
		k.log.Errorf("console write failed: %s", err)
	}
	return vm.Undefined, nil
}

func (k *Kernel) loadImage(machine *vm.VM, _ any, _ vm.Value, args []vm.Value) (vm.Value, error) {
	var data vm.Value
	if machine.ScanArgs(args, "S", &data) != nil {
		return vm.Undefined, machine.ThrowMessage("Kernel.loadImage() expects string")
	}
	img, err := image.Parse([]byte(machine.StringOf(data)))
	if err != nil {
		k.log.Debugf("loadImage: %s", err)
		return vm.Undefined, machine.ThrowMessage("Couldn't parse image")
	}
	if _, err := machine.Exec(img, 0, machine.GlobalScope, vm.Null, nil); err != nil {
		return vm.Undefined, err
	}
	return vm.True, nil
}

func (k *Kernel) memoryUsage(machine *vm.VM, _ any, _ vm.Value, _ []vm.Value) (vm.Value, error) {
	return vm.Number(float64(machine.Heap.Usage())), nil
}

// runGC collects at a safe point: the caller's arguments and operands are
// held by the frame stack and the interpreter, both of which are roots.
func (k *Kernel) runGC(machine *vm.VM, _ any, _ vm.Value, _ []vm.Value) (vm.Value, error) {
	freed := machine.Collect()
	k.log.Debugf("runGC freed %d blocks", freed)
	return vm.Undefined, nil
}
