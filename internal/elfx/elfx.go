// Package elfx opens ELF executables and indexes their function symbols so
// that a code address or a symbol name can be mapped to a code range.
package elfx

import (
	"debug/elf"
	"debug/gosym"
	"sort"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"
)

type Image struct {
	Path    string
	File    *elf.File
	Machine elf.Machine
	Type    elf.Type
	Loads   []Seg
	Text    Section
	Syms    []Sym // function symbols ordered by address
	byName  map[string]int
}

type Seg struct {
	Vaddr, Off, Filesz, Memsz uint64
	Align                     uint64
	Flags                     elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Sym is a function symbol. Addresses are link-time virtual addresses.
type Sym struct {
	Name      string
	Demangled string // same as Name unless Name is a mangled C++ symbol
	Addr      uint64
	Size      uint64
}

// End returns the first address past the function.
func (s Sym) End() uint64 { return s.Addr + s.Size }

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open elf")
	}

	im := &Image{Path: path, File: f, Machine: f.Machine, Type: f.Type}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Memsz:  p.Memsz,
			Align:  p.Align,
			Flags:  p.Flags,
		})
	}
	if s := f.Section(".text"); s != nil {
		im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
	} else {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}

	im.loadStaticSymbols()
	im.loadDynamicSymbols()
	if len(im.Syms) == 0 {
		// Stripped Go binaries still carry the runtime's pc tables.
		if err := im.loadPclntab(); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "%s has no symbol information", path)
		}
	}
	im.index()
	return im, nil
}

// Close closes the underlying file.
func (im *Image) Close() error {
	if im.File == nil {
		return nil
	}
	err := im.File.Close()
	im.File = nil
	return err
}

// LinkBase is the page aligned address of the first PT_LOAD segment. For
// position independent images the runtime load bias is added to it.
func (im *Image) LinkBase() uint64 {
	if len(im.Loads) == 0 {
		return 0
	}
	first := im.Loads[0]
	for _, l := range im.Loads[1:] {
		if l.Vaddr < first.Vaddr {
			first = l
		}
	}
	align := first.Align
	if align == 0 {
		align = 0x1000
	}
	return first.Vaddr &^ (align - 1)
}

// Relocatable reports whether the image may be loaded at any address.
func (im *Image) Relocatable() bool { return im.Type == elf.ET_DYN }

// Lookup finds a function by its symbol name or demangled name.
func (im *Image) Lookup(name string) (Sym, bool) {
	i, ok := im.byName[name]
	if !ok {
		return Sym{}, false
	}
	return im.Syms[i], true
}

// SymbolAt returns the function starting exactly at addr.
func (im *Image) SymbolAt(addr uint64) (Sym, bool) {
	i := sort.Search(len(im.Syms), func(i int) bool { return im.Syms[i].Addr >= addr })
	if i < len(im.Syms) && im.Syms[i].Addr == addr {
		return im.Syms[i], true
	}
	return Sym{}, false
}

// FuncContaining returns the function whose range includes addr.
func (im *Image) FuncContaining(addr uint64) (Sym, bool) {
	i := sort.Search(len(im.Syms), func(i int) bool { return im.Syms[i].Addr > addr })
	if i == 0 {
		return Sym{}, false
	}
	s := im.Syms[i-1]
	if addr < s.End() {
		return s, true
	}
	return Sym{}, false
}

// loadStaticSymbols loads function symbols from .symtab.
func (im *Image) loadStaticSymbols() {
	syms, err := im.File.Symbols()
	if err != nil {
		return // stripped
	}
	im.addSymbols(syms)
}

// loadDynamicSymbols adds exported functions from .dynsym.
func (im *Image) loadDynamicSymbols() {
	syms, err := im.File.DynamicSymbols()
	if err != nil {
		return
	}
	im.addSymbols(syms)
}

func (im *Image) addSymbols(syms []elf.Symbol) {
	for _, sym := range syms {
		// Skip undefined symbols and anything that is not code.
		if sym.Value == 0 || sym.Section == elf.SHN_UNDEF || elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		im.Syms = append(im.Syms, Sym{
			Name:      sym.Name,
			Demangled: demangleName(sym.Name),
			Addr:      sym.Value,
			Size:      sym.Size,
		})
	}
}

// loadPclntab reads function bounds from the Go runtime's pc/line table.
func (im *Image) loadPclntab() error {
	sec := im.File.Section(".gopclntab")
	if sec == nil {
		sec = im.File.Section(".data.rel.ro.gopclntab")
	}
	if sec == nil {
		return errors.New("no .symtab, .dynsym or .gopclntab")
	}
	data, err := sec.Data()
	if err != nil {
		return errors.Wrap(err, "read .gopclntab")
	}
	table, err := gosym.NewTable(nil, gosym.NewLineTable(data, im.Text.VA))
	if err != nil {
		return errors.Wrap(err, "parse .gopclntab")
	}
	for _, fn := range table.Funcs {
		im.Syms = append(im.Syms, Sym{
			Name:      fn.Name,
			Demangled: fn.Name,
			Addr:      fn.Entry,
			Size:      fn.End - fn.Entry,
		})
	}
	return nil
}

// index orders symbols by address, drops duplicates (the same function can
// appear in .symtab and .dynsym) and builds the name index.
func (im *Image) index() {
	sort.SliceStable(im.Syms, func(i, j int) bool {
		a, b := im.Syms[i], im.Syms[j]
		switch {
		case a.Addr != b.Addr:
			return a.Addr < b.Addr
		case a.Size != b.Size:
			return a.Size > b.Size
		}
		return a.Name < b.Name
	})
	out := im.Syms[:0]
	for _, s := range im.Syms {
		if n := len(out); n > 0 && out[n-1].Addr == s.Addr && out[n-1].Name == s.Name {
			continue
		}
		out = append(out, s)
	}
	im.Syms = out

	im.byName = make(map[string]int, 2*len(im.Syms))
	for i, s := range im.Syms {
		if _, dup := im.byName[s.Name]; !dup {
			im.byName[s.Name] = i
		}
		if s.Demangled != s.Name {
			if _, dup := im.byName[s.Demangled]; !dup {
				im.byName[s.Demangled] = i
			}
			short := stripParams(s.Demangled)
			if _, dup := im.byName[short]; !dup {
				im.byName[short] = i
			}
		}
	}
}

func demangleName(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}
	return demangle.Filter(name, demangle.NoClones)
}

// stripParams removes the parameter list from a demangled C++ signature.
func stripParams(sig string) string {
	if i := strings.Index(sig, "("); i > 0 {
		return sig[:i]
	}
	return sig
}
