package kernel

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/jsos/image"
	"github.com/chazu/jsos/interp"
	"github.com/chazu/jsos/vm"
)

// SourceExt marks assembler sources. They are assembled when registered and
// stored under the same name with ImageExt in place of SourceExt.
const (
	SourceExt = ".jsa.yaml"
	ImageExt  = ".jmg"
)

// AddModule registers data under name in Kernel.modules.
func (k *Kernel) AddModule(name string, data []byte) {
	k.define(k.modules, name, k.VM.NewString(string(data)))
}

// LoadModuleDirs registers every regular file below each directory, named
// by its slash-separated path relative to that directory with a leading
// slash. Missing directories are skipped.
func (k *Kernel) LoadModuleDirs(dirs []string) error {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			k.log.Debugf("module directory %s does not exist", dir)
			continue
		}
		if err := k.loadModuleDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kernel) loadModuleDir(dir string) error {
	var names []string
	files := map[string][]byte{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read module %s: %w", path, err)
		}
		name := "/" + filepath.ToSlash(rel)
		if strings.HasSuffix(name, SourceExt) {
			if data, err = assemble(data); err != nil {
				return fmt.Errorf("cannot assemble module %s: %w", path, err)
			}
			name = strings.TrimSuffix(name, SourceExt) + ImageExt
		}
		names = append(names, name)
		files[name] = data
		return nil
	})
	if err != nil {
		return err
	}

	k.log.Infof("loading %d modules from %s", len(names), dir)
	for _, name := range names {
		k.log.Infof("  %s", name)
		k.AddModule(name, files[name])
	}
	return nil
}

func assemble(src []byte) ([]byte, error) {
	img, err := interp.Assemble(src)
	if err != nil {
		return nil, err
	}
	return image.Marshal(img)
}

// ModuleNames lists the registered modules in registration order.
func (k *Kernel) ModuleNames() []string {
	return k.VM.Keys(k.modules)
}

// Module returns the data registered under name.
func (k *Kernel) Module(name string) ([]byte, bool) {
	v, err := k.VM.Get(k.modules, name)
	if err != nil || !k.VM.IsString(v) {
		return nil, false
	}
	return []byte(k.VM.StringOf(v)), true
}

var _ vm.RootSet = (*Kernel)(nil)
